// Package version provides the version command implementation.
package version

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/reposcout/internal/appcontext"
	"github.com/agentstation/reposcout/internal/cmd/globals"
)

// NewCommand creates the version command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags, err := globals.Parse(cmd)
			if err != nil {
				return err
			}

			cmd.Printf("reposcout %s\n", app.Version())
			if flags.Verbose {
				cmd.Printf("  commit:   %s\n", app.Commit())
				cmd.Printf("  built:    %s\n", app.Date())
				cmd.Printf("  built by: %s\n", app.BuiltBy())
			}
			return nil
		},
	}
}
