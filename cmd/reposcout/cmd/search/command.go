// Package search provides the search command implementation.
package search

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/reposcout/internal/appcontext"
	"github.com/agentstation/reposcout/internal/cmd/output"
	"github.com/agentstation/reposcout/pkg/contracts"
)

// NewCommand creates the search command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "search ADDRESS",
		GroupID: "tools",
		Short:   "Count the GitHub repositories that mention an address",
		Args:    cobra.ExactArgs(1),
		Long: `Search runs the same GitHub code search the reconciler uses for a
single address and prints the result. Nothing is written to Airtable.`,
		Example: `  reposcout search 0x6B175474E89094C44Da98b954EedeAC495271d0F
  reposcout search 0xabc -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			address := strings.TrimSpace(args[0])
			if err := contracts.ValidateAddress(address); err != nil {
				return err
			}

			searcher, err := app.SearchProvider()
			if err != nil {
				return err
			}
			result, err := searcher.Search(cmd.Context(), address)
			if err != nil {
				return err
			}
			return output.FormatSearchResult(cmd.OutOrStdout(), address, result, output.DetectFormat(app.OutputFormat()))
		},
	}
}
