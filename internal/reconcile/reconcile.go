// Package reconcile runs the batch loop that looks every unprocessed contract
// record up in code search and writes the result back to the record store.
package reconcile

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/agentstation/reposcout/pkg/constants"
	"github.com/agentstation/reposcout/pkg/contracts"
	"github.com/agentstation/reposcout/pkg/errors"
	"github.com/agentstation/reposcout/pkg/logging"
)

// Store reads unprocessed records and writes results back.
type Store interface {
	FetchUnprocessed(ctx context.Context, viewID string) (contracts.Batch, error)
	UpdateRecord(ctx context.Context, id string, fields contracts.Fields) error
}

// Searcher looks a single address up.
type Searcher interface {
	Search(ctx context.Context, query string) (contracts.SearchResult, error)
}

// Reconciler processes one view at a time, strictly sequentially.
type Reconciler struct {
	store    Store
	searcher Searcher
	logger   *zerolog.Logger

	pacing           time.Duration
	includeRepoPaths bool
	dryRun           bool
	limit            int

	now   func() time.Time
	newID func() string
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPacing sets the minimum interval between two records. Zero disables pacing.
func WithPacing(d time.Duration) Option {
	return func(r *Reconciler) {
		if d < 0 {
			d = 0
		}
		r.pacing = d
	}
}

// WithIncludeRepoPaths also writes the matching repository names.
func WithIncludeRepoPaths(include bool) Option {
	return func(r *Reconciler) {
		r.includeRepoPaths = include
	}
}

// WithDryRun searches every record but writes nothing back.
func WithDryRun(dryRun bool) Option {
	return func(r *Reconciler) {
		r.dryRun = dryRun
	}
}

// WithLimit processes at most n records of the batch. Zero means no limit.
func WithLimit(n int) Option {
	return func(r *Reconciler) {
		if n < 0 {
			n = 0
		}
		r.limit = n
	}
}

// WithClock replaces the time source used for summary timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRunIDGenerator replaces the run id generator.
func WithRunIDGenerator(fn func() string) Option {
	return func(r *Reconciler) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// New creates a Reconciler.
func New(store Store, searcher Searcher, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:    store,
		searcher: searcher,
		logger:   logging.Default(),
		pacing:   constants.RecordPacing,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reconciles every unprocessed record of the view.
//
// Transient and validation failures skip the record and are listed in the
// summary. A fatal or configuration error, or a cancelled context, stops the
// run: the partial summary is returned together with the error. Records
// updated before the stop stay updated.
func (r *Reconciler) Run(ctx context.Context, viewID string) (*contracts.Summary, error) {
	summary := &contracts.Summary{
		RunID:     r.newID(),
		ViewID:    viewID,
		DryRun:    r.dryRun,
		StartedAt: r.timestamp(),
	}
	ctx = logging.WithLogger(ctx, r.logger)
	ctx = logging.WithRunID(ctx, summary.RunID)
	logger := logging.FromContext(ctx)

	batch, err := r.store.FetchUnprocessed(ctx, viewID)
	if err != nil {
		return r.abort(ctx, summary, fmt.Errorf("fetch unprocessed records: %w", err))
	}
	batch = batch.Unprocessed()
	summary.Total = len(batch)

	if r.limit > 0 && len(batch) > r.limit {
		summary.Remaining = len(batch) - r.limit
		batch = batch[:r.limit]
	}

	if len(batch) == 0 {
		logger.Info().Str("view_id", viewID).Msg("No unprocessed records")
		summary.FinishedAt = r.timestamp()
		return summary, nil
	}

	logger.Info().
		Str("view_id", viewID).
		Int("records", len(batch)).
		Int("deferred", summary.Remaining).
		Bool("dry_run", r.dryRun).
		Msg("Starting reconciliation")

	var limiter *rate.Limiter
	if r.pacing > 0 {
		limiter = rate.NewLimiter(rate.Every(r.pacing), 1)
	}

	for i, record := range batch {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				summary.Remaining += len(batch) - i
				return r.abort(ctx, summary, contextError(ctx, err))
			}
		}

		if err := r.reconcileRecord(ctx, summary, record, i+1, len(batch)); err != nil {
			summary.Remaining += len(batch) - i
			return r.abort(ctx, summary, err)
		}
	}

	summary.FinishedAt = r.timestamp()
	logger.Info().
		Int("total", summary.Total).
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("found", summary.Found).
		Int("not_found", summary.NotFound).
		Dur("duration", summary.Duration()).
		Msg("Reconciliation complete")
	return summary, nil
}

// reconcileRecord handles one record. It returns an error only when the run must stop.
func (r *Reconciler) reconcileRecord(ctx context.Context, summary *contracts.Summary, record contracts.ContractRecord, position, total int) error {
	ctx = logging.WithRecord(ctx, record.ID, record.Address)
	logger := logging.FromContext(ctx)

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := contracts.ValidateAddress(record.Address); err != nil {
		logger.Warn().Err(err).Str("outcome", string(contracts.OutcomeSkippedValidation)).Msg("Skipping record with invalid address")
		summary.RecordSkipped(record, contracts.OutcomeSkippedValidation, reason(err))
		return nil
	}

	result, err := r.searcher.Search(ctx, strings.TrimSpace(record.Address))
	if err != nil {
		return r.skipOrStop(ctx, summary, record, "search", err)
	}

	if !r.dryRun {
		fields := contracts.FieldsFor(result, r.includeRepoPaths)
		if err := r.store.UpdateRecord(ctx, record.ID, fields); err != nil {
			return r.skipOrStop(ctx, summary, record, "update", err)
		}
	}

	summary.RecordUpdated(result)
	logger.Info().
		Int("position", position).
		Int("of", total).
		Bool("github_found", result.Found).
		Int("repo_count", result.Count).
		Bool("dry_run", r.dryRun).
		Str("outcome", string(contracts.OutcomeUpdated)).
		Msg("Record reconciled")
	return nil
}

// skipOrStop records a per-record failure, or returns it when it must stop the run.
func (r *Reconciler) skipOrStop(ctx context.Context, summary *contracts.Summary, record contracts.ContractRecord, stage string, err error) error {
	logger := logging.FromContext(ctx)

	if mustStop(ctx, err) {
		logger.Error().Err(err).Str("stage", stage).Msg("Stopping run")
		return fmt.Errorf("%s record %s: %w", stage, record.ID, err)
	}

	outcome := contracts.OutcomeSkippedError
	if errors.IsValidationError(err) {
		outcome = contracts.OutcomeSkippedValidation
	}
	logger.Warn().
		Err(err).
		Str("stage", stage).
		Str("outcome", string(outcome)).
		Bool("rate_limited", errors.IsRateLimited(err)).
		Msg("Skipping record")
	summary.RecordSkipped(record, outcome, stage+": "+reason(err))
	return nil
}

// mustStop reports whether err ends the run rather than the record.
func mustStop(ctx context.Context, err error) bool {
	switch {
	case errors.IsFatal(err), errors.IsConfig(err):
		return true
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return true
	case ctx.Err() != nil:
		return true
	}
	return false
}

func (r *Reconciler) abort(ctx context.Context, summary *contracts.Summary, err error) (*contracts.Summary, error) {
	summary.Abort(err)
	summary.FinishedAt = r.timestamp()
	logging.FromContext(ctx).Error().
		Err(err).
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("untouched", summary.Remaining).
		Msg("Reconciliation aborted")
	return summary, err
}

func (r *Reconciler) timestamp() utc.Time {
	return utc.Time{Time: r.now().UTC()}
}

// contextError prefers the context's own error over the limiter's wrapper.
func contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func reason(err error) string {
	var validation *errors.ValidationError
	if stderrors.As(err, &validation) {
		return validation.Message
	}
	return err.Error()
}
