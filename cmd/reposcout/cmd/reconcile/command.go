// Package reconcile provides the reconcile command implementation.
package reconcile

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/reposcout/internal/appcontext"
)

// NewCommand creates the reconcile command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var flags *Flags

	cmd := &cobra.Command{
		Use:     "reconcile",
		GroupID: "core",
		Short:   "Search GitHub for every unprocessed record and write the counts back",
		Args:    cobra.NoArgs,
		Long: `Reconcile fetches every record of the Airtable view whose repo_count
is still blank, searches GitHub code for the record's address and writes
the number of distinct repositories back to the record.

The command will:
• Fetch the unprocessed records of the view
• Search GitHub code for each address, one record at a time
• Write github_found and repo_count back to the record
• Skip records whose search or update keeps failing after retries
• Stop on rejected credentials or a missing view

Records already written stay written when the run stops, so a rerun
picks up where the previous one left off.`,
		Example: `  reposcout reconcile                          # Process the configured view
  reposcout reconcile --view viwXXXXXXXXXXXXXX # Process another view
  reposcout reconcile --origin-key solana      # Only records of one origin
  reposcout reconcile --dry-run --limit 5      # Preview five records
  reposcout reconcile --report run.json        # Save the summary`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("pacing") {
				flags.Pacing = app.Pacing()
			}
			return Execute(cmd.Context(), app, flags, cmd.OutOrStdout())
		},
	}

	flags = AddFlags(cmd)

	return cmd
}
