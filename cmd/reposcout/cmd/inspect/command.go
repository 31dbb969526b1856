// Package inspect provides the check-view command implementation.
package inspect

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/reposcout/internal/appcontext"
	"github.com/agentstation/reposcout/internal/cmd/output"
	"github.com/agentstation/reposcout/internal/inspect"
)

// Flags holds the inspect options.
type Flags struct {
	View string
}

// NewCommand creates the inspect command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "inspect",
		Aliases: []string{"check-view"},
		GroupID: "core",
		Short:   "Show the fields of an Airtable view",
		Args:    cobra.NoArgs,
		Long: `Inspect fetches a sample of the view's records and lists the field
names present in them, together with the values of the first record.
Fields the reconciler writes that never appear in the sample are
reported as missing. Nothing is written.`,
		Example: `  reposcout inspect
  reposcout inspect --view viwXXXXXXXXXXXXXX
  reposcout inspect -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd.Context(), app, flags, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.View, "view", "",
		"Airtable view to inspect (default is the configured view)")

	return cmd
}

// Execute describes the view and prints the result.
func Execute(ctx context.Context, app appcontext.Interface, flags *Flags, w io.Writer) error {
	if flags == nil {
		flags = &Flags{}
	}
	store, err := app.RecordStore("")
	if err != nil {
		return err
	}

	view := flags.View
	if view == "" {
		view = app.ViewID()
	}

	summary, err := inspect.New(store, inspect.WithLogger(app.Logger())).Inspect(ctx, view)
	if err != nil {
		return err
	}
	return output.FormatViewSummary(w, summary, output.DetectFormat(app.OutputFormat()))
}
