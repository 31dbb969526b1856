package reconcile

import (
	"context"
	"io"

	"github.com/agentstation/reposcout/internal/appcontext"
	"github.com/agentstation/reposcout/internal/cmd/output"
	reconciler "github.com/agentstation/reposcout/internal/reconcile"
	"github.com/agentstation/reposcout/pkg/logging"
)

// Execute runs one reconciliation pass and prints its summary.
// The summary is printed and saved even when the run stops early; the
// error that stopped it is returned afterwards.
func Execute(ctx context.Context, app appcontext.Interface, flags *Flags, w io.Writer) error {
	if flags == nil {
		flags = &Flags{Pacing: app.Pacing()}
	}
	logger := app.Logger()

	if err := app.ValidateCredentials(); err != nil {
		return err
	}
	store, err := app.RecordStore(flags.OriginKey)
	if err != nil {
		return err
	}
	searcher, err := app.SearchProvider()
	if err != nil {
		return err
	}

	view := flags.View
	if view == "" {
		view = app.ViewID()
	}

	if flags.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.Timeout)
		defer cancel()
	}
	ctx = logging.WithLogger(ctx, logger)

	r := reconciler.New(store, searcher,
		reconciler.WithLogger(logger),
		reconciler.WithPacing(flags.Pacing),
		reconciler.WithDryRun(flags.DryRun),
		reconciler.WithLimit(flags.Limit),
		reconciler.WithIncludeRepoPaths(flags.IncludeRepoPaths),
	)

	summary, runErr := r.Run(ctx, view)
	if summary != nil {
		if err := output.FormatSummary(w, summary, output.DetectFormat(app.OutputFormat())); err != nil {
			return err
		}
		if flags.Report != "" {
			if err := output.WriteReport(flags.Report, summary); err != nil {
				return err
			}
			logger.Info().Str("path", flags.Report).Msg("Report written")
		}
	}
	return runErr
}
