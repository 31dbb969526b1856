package contracts

import (
	"time"

	"github.com/agentstation/utc"
)

// Outcome is the terminal state of one record in a run.
type Outcome string

// Record outcomes.
const (
	OutcomeUpdated           Outcome = "updated"
	OutcomeSkippedValidation Outcome = "skipped_validation"
	OutcomeSkippedError      Outcome = "skipped_error"
)

// SkippedRecord explains why a record was left unprocessed.
type SkippedRecord struct {
	ID      string  `json:"id" yaml:"id"`
	Address string  `json:"address" yaml:"address"`
	Outcome Outcome `json:"outcome" yaml:"outcome"`
	Reason  string  `json:"reason" yaml:"reason"`
}

// Summary reports one reconciliation run.
type Summary struct {
	RunID       string          `json:"run_id" yaml:"run_id"`
	ViewID      string          `json:"view_id" yaml:"view_id"`
	DryRun      bool            `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	StartedAt   utc.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt  utc.Time        `json:"finished_at" yaml:"finished_at"`
	Total       int             `json:"total" yaml:"total"`
	Processed   int             `json:"processed" yaml:"processed"`
	Skipped     int             `json:"skipped" yaml:"skipped"`
	Remaining   int             `json:"remaining,omitempty" yaml:"remaining,omitempty"`
	Found       int             `json:"found" yaml:"found"`
	NotFound    int             `json:"not_found" yaml:"not_found"`
	Aborted     bool            `json:"aborted,omitempty" yaml:"aborted,omitempty"`
	AbortReason string          `json:"abort_reason,omitempty" yaml:"abort_reason,omitempty"`
	SkippedList []SkippedRecord `json:"skipped_records,omitempty" yaml:"skipped_records,omitempty"`
}

// RecordUpdated counts a successfully written record.
func (s *Summary) RecordUpdated(result SearchResult) {
	s.Processed++
	if result.Found {
		s.Found++
	} else {
		s.NotFound++
	}
}

// RecordSkipped counts and enumerates a skipped record.
func (s *Summary) RecordSkipped(record ContractRecord, outcome Outcome, reason string) {
	s.Skipped++
	s.SkippedList = append(s.SkippedList, SkippedRecord{
		ID:      record.ID,
		Address: record.Address,
		Outcome: outcome,
		Reason:  reason,
	})
}

// Abort marks the run as aborted.
func (s *Summary) Abort(err error) {
	s.Aborted = true
	if err != nil {
		s.AbortReason = err.Error()
	}
}

// Duration is the wall time of the run.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.Time.IsZero() {
		return 0
	}
	return s.FinishedAt.Time.Sub(s.StartedAt.Time)
}

// ViewSummary describes the structure of a view for operators.
type ViewSummary struct {
	ViewID            string         `json:"view_id" yaml:"view_id"`
	FieldNames        []string       `json:"field_names" yaml:"field_names"`
	SampleRecordCount int            `json:"sample_record_count" yaml:"sample_record_count"`
	SampleRecord      map[string]any `json:"sample_record,omitempty" yaml:"sample_record,omitempty"`
	MissingFields     []string       `json:"missing_fields,omitempty" yaml:"missing_fields,omitempty"`
}

// HasField reports whether name was seen in the sampled records.
func (v ViewSummary) HasField(name string) bool {
	for _, f := range v.FieldNames {
		if f == name {
			return true
		}
	}
	return false
}
