// Package inspect reports the structure of a record store view.
package inspect

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/agentstation/reposcout/pkg/constants"
	"github.com/agentstation/reposcout/pkg/contracts"
	"github.com/agentstation/reposcout/pkg/logging"
)

// Describer samples a view.
type Describer interface {
	DescribeView(ctx context.Context, viewID string) (contracts.ViewSummary, error)
}

// RequiredFields are the columns reconciliation reads and writes.
var RequiredFields = []string{
	constants.FieldAddress,
	constants.FieldGitHubFound,
	constants.FieldRepoCount,
}

// Inspector is a read-only diagnostic over the record store.
type Inspector struct {
	store    Describer
	required []string
	logger   *zerolog.Logger
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithRequiredFields overrides the columns checked for presence.
func WithRequiredFields(fields ...string) Option {
	return func(i *Inspector) {
		i.required = fields
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(i *Inspector) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New creates an Inspector.
func New(store Describer, opts ...Option) *Inspector {
	i := &Inspector{
		store:    store,
		required: RequiredFields,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Inspect describes the view and lists required fields missing from the sample.
// Fields that are blank on every sampled record do not appear in the sample,
// so a missing field is a hint for the operator rather than an error.
func (i *Inspector) Inspect(ctx context.Context, viewID string) (contracts.ViewSummary, error) {
	summary, err := i.store.DescribeView(ctx, viewID)
	if err != nil {
		return contracts.ViewSummary{}, fmt.Errorf("describe view %s: %w", viewID, err)
	}

	summary.MissingFields = nil
	if summary.SampleRecordCount > 0 {
		for _, f := range i.required {
			if !summary.HasField(f) {
				summary.MissingFields = append(summary.MissingFields, f)
			}
		}
	}

	level := zerolog.InfoLevel
	if len(summary.MissingFields) > 0 {
		level = zerolog.WarnLevel
	}
	i.logger.WithLevel(level).
		Str("view_id", summary.ViewID).
		Strs("missing_fields", summary.MissingFields).
		Int("fields", len(summary.FieldNames)).
		Int("sample_records", summary.SampleRecordCount).
		Msg("Inspected view")
	return summary, nil
}
