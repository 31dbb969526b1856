// Package globals provides shared flag structures and utilities for CLI commands.
package globals

import "github.com/spf13/cobra"

// Flags holds global common flags across all commands.
type Flags struct {
	ConfigFile string
	Format     string
	LogLevel   string
	Quiet      bool
	Verbose    bool
	NoColor    bool
}

// AddFlags adds common flags to the root command, binding them to flags.
func AddFlags(cmd *cobra.Command, flags *Flags) *Flags {
	if flags == nil {
		flags = &Flags{}
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.ConfigFile, "config", "", "config file (default is $HOME/.reposcout.yaml)")
	pf.StringVarP(&flags.Format, "format", "o", "", "output format: table, json, yaml")
	// --output is kept as a hidden alias for --format
	pf.StringVar(&flags.Format, "output", "", "")
	_ = pf.MarkHidden("output")
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	pf.BoolVar(&flags.NoColor, "no-color", false, "disable colored output")

	return flags
}

// Parse extracts global flags from the command hierarchy.
// Subcommands use it when they were not handed the flags struct directly.
func Parse(cmd *cobra.Command) (*Flags, error) {
	root := cmd
	for root.Parent() != nil {
		root = root.Parent()
	}
	pf := root.PersistentFlags()

	configFile, _ := pf.GetString("config")
	format, _ := pf.GetString("format")
	logLevel, _ := pf.GetString("log-level")
	quiet, _ := pf.GetBool("quiet")
	verbose, _ := pf.GetBool("verbose")
	noColor, _ := pf.GetBool("no-color")

	return &Flags{
		ConfigFile: configFile,
		Format:     format,
		LogLevel:   logLevel,
		Quiet:      quiet,
		Verbose:    verbose,
		NoColor:    noColor,
	}, nil
}
