package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/reposcout/cmd/reposcout/cmd/inspect"
	"github.com/agentstation/reposcout/cmd/reposcout/cmd/reconcile"
	"github.com/agentstation/reposcout/internal/cmd/globals"
	"github.com/agentstation/reposcout/internal/cmd/output"
)

// Execute runs the reposcout CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// rootFlags selects the mode of a bare `reposcout` invocation.
type rootFlags struct {
	all       bool
	checkView bool
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	modes := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:     "reposcout",
		Short:   "Reconcile Airtable contract records with GitHub code search",
		Version: a.version,
		Long: `Reposcout searches GitHub code for the address of every contract record
in an Airtable view and writes back whether the address was found and in
how many distinct repositories.

Run without a subcommand it reconciles the configured view (--all), or
describes it with --check_view.`,
		Example: `  reposcout --all           # Reconcile every unprocessed record
  reposcout --check_view    # Show the view's fields
  reposcout reconcile --dry-run --limit 10`,
		Args:              cobra.NoArgs,
		PersistentPreRunE: a.setupCommand,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// both modes need both tokens; fail before any request
			if err := a.ValidateCredentials(); err != nil {
				return err
			}
			if modes.checkView {
				return inspect.Execute(cmd.Context(), a, nil, cmd.OutOrStdout())
			}
			return reconcile.Execute(cmd.Context(), a, nil, cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "tools",
		Title: "Tools:",
	})

	globals.AddFlags(rootCmd, a.flags)

	rootCmd.Flags().BoolVar(&modes.all, "all", false, "reconcile every unprocessed record of the view (default)")
	rootCmd.Flags().BoolVar(&modes.checkView, "check_view", false, "show the fields of the view and exit")
	// --check-view is a hidden alias for --check_view
	rootCmd.Flags().BoolVar(&modes.checkView, "check-view", false, "")
	_ = rootCmd.Flags().MarkHidden("check-view")
	rootCmd.MarkFlagsMutuallyExclusive("all", "check_view")
	rootCmd.MarkFlagsMutuallyExclusive("all", "check-view")

	rootCmd.SetVersionTemplate("reposcout {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	// These flags are defined as persistent flags in createRootCommand, so errors indicate programming errors
	configFile := mustGetString(cmd, "config")
	verbose := mustGetBool(cmd, "verbose")
	quiet := mustGetBool(cmd, "quiet")
	noColor := mustGetBool(cmd, "no-color")
	format := mustGetString(cmd, "format")
	logLevel := mustGetString(cmd, "log-level")

	if _, err := output.ParseFormat(format); err != nil {
		return err
	}

	if configFile != "" && configFile != a.config.ConfigFile {
		config, err := LoadConfig(configFile)
		if err != nil {
			return err
		}
		a.config = config
		a.resetTransport()
	}

	a.config.UpdateFromFlags(verbose, quiet, noColor, format, logLevel)

	// Reinitialize logger with updated config
	logger := NewLogger(a.config)
	a.logger = &logger

	return nil
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
