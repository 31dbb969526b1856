// Package origins provides the origins command implementation.
package origins

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/reposcout/internal/appcontext"
	"github.com/agentstation/reposcout/internal/cmd/output"
)

// NewCommand creates the origins command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var view string

	cmd := &cobra.Command{
		Use:     "origins",
		GroupID: "tools",
		Short:   "List the origin keys used in a view",
		Args:    cobra.NoArgs,
		Example: `  reposcout origins
  reposcout origins --view viwXXXXXXXXXXXXXX -o yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := app.RecordStore("")
			if err != nil {
				return err
			}
			if view == "" {
				view = app.ViewID()
			}
			keys, err := store.ListOriginKeys(cmd.Context(), view)
			if err != nil {
				return err
			}
			return output.FormatOriginKeys(cmd.OutOrStdout(), keys, output.DetectFormat(app.OutputFormat()))
		},
	}

	cmd.Flags().StringVar(&view, "view", "", "Airtable view (default is the configured view)")

	return cmd
}
