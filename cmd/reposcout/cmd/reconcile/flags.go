package reconcile

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/reposcout/pkg/constants"
)

// Flags holds the reconcile options.
type Flags struct {
	View             string
	OriginKey        string
	DryRun           bool
	Limit            int
	IncludeRepoPaths bool
	Pacing           time.Duration
	Timeout          time.Duration
	Report           string
}

// AddFlags adds reconcile flags to a command.
func AddFlags(cmd *cobra.Command) *Flags {
	flags := &Flags{}

	cmd.Flags().StringVar(&flags.View, "view", "",
		"Airtable view to process (default is the configured view)")
	cmd.Flags().StringVar(&flags.OriginKey, "origin-key", "",
		"Only process records with this origin_key")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false,
		"Search without writing results back")
	cmd.Flags().IntVarP(&flags.Limit, "limit", "l", 0,
		"Process at most this many records (0 = all)")
	cmd.Flags().BoolVar(&flags.IncludeRepoPaths, "include-repo-paths", false,
		"Also write the matching repository names")
	cmd.Flags().DurationVar(&flags.Pacing, "pacing", constants.RecordPacing,
		"Minimum interval between two records")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0,
		"Stop the run after this long (0 = no limit)")
	cmd.Flags().StringVar(&flags.Report, "report", "",
		"Write the run summary to this file (.json, .yaml)")

	return flags
}
