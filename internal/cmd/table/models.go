// Package table converts reconciliation results into rows for table output.
package table

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/reposcout/internal/cmd/emoji"
	"github.com/agentstation/reposcout/pkg/contracts"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// SummaryToTableData converts a run summary to a property/value table.
func SummaryToTableData(s *contracts.Summary) Data {
	status := emoji.Success + " completed"
	if s.Aborted {
		status = emoji.Error + " aborted: " + s.AbortReason
	} else if s.Skipped > 0 {
		status = emoji.Warning + " completed with skipped records"
	}

	rows := [][]string{
		{"Run", s.RunID},
		{"View", s.ViewID},
		{"Status", status},
		{"Total", strconv.Itoa(s.Total)},
		{"Processed", strconv.Itoa(s.Processed)},
		{"Skipped", strconv.Itoa(s.Skipped)},
		{"Found", strconv.Itoa(s.Found)},
		{"Not Found", strconv.Itoa(s.NotFound)},
	}
	if s.Remaining > 0 {
		rows = append(rows, []string{"Untouched", strconv.Itoa(s.Remaining)})
	}
	if s.DryRun {
		rows = append(rows, []string{"Dry Run", "yes (nothing written)"})
	}
	rows = append(rows, []string{"Duration", s.Duration().Round(time.Millisecond).String()})

	return Data{
		Headers:         []string{"Property", "Value"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft},
	}
}

// SkippedToTableData lists the skipped records of a run.
func SkippedToTableData(skipped []contracts.SkippedRecord) Data {
	rows := make([][]string, 0, len(skipped))
	for _, r := range skipped {
		address := r.Address
		if address == "" {
			address = emoji.Optional
		}
		rows = append(rows, []string{r.ID, address, string(r.Outcome), truncate(r.Reason, 80)})
	}
	return Data{
		Headers: []string{"Record", "Address", "Outcome", "Reason"},
		Rows:    rows,
	}
}

// ViewSummaryToTableData lists the fields of a view with a sample value.
func ViewSummaryToTableData(v contracts.ViewSummary) Data {
	missing := make(map[string]bool, len(v.MissingFields))
	for _, f := range v.MissingFields {
		missing[f] = true
	}

	rows := make([][]string, 0, len(v.FieldNames)+len(v.MissingFields))
	for _, name := range v.FieldNames {
		sample := emoji.Optional
		if value, ok := v.SampleRecord[name]; ok {
			sample = truncate(formatValue(value), 60)
		}
		rows = append(rows, []string{name, emoji.Success, sample})
	}
	names := append([]string(nil), v.MissingFields...)
	sort.Strings(names)
	for _, name := range names {
		rows = append(rows, []string{name, emoji.Error + " missing", emoji.Optional})
	}

	return Data{
		Headers: []string{"Field", "Present", "Sample"},
		Rows:    rows,
	}
}

// SearchResultToTableData lists the repositories of one search.
func SearchResultToTableData(address string, r contracts.SearchResult) Data {
	rows := [][]string{
		{"Address", address},
		{"Found", strconv.FormatBool(r.Found)},
		{"Repo Count", strconv.Itoa(r.Count)},
		{"Total Matches", strconv.Itoa(r.TotalCount)},
		{"Excluded Repos", strconv.Itoa(r.Excluded)},
	}
	for i, repo := range r.Repositories {
		label := ""
		if i == 0 {
			label = "Repositories"
		}
		rows = append(rows, []string{label, repo})
	}
	return Data{
		Headers: []string{"Property", "Value"},
		Rows:    rows,
	}
}

// OriginKeysToTableData lists origin keys.
func OriginKeysToTableData(keys []string) Data {
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k})
	}
	return Data{
		Headers: []string{"Origin Key"},
		Rows:    rows,
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.ReplaceAll(t, "\n", " ")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = formatValue(p)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", t)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
