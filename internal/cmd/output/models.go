package output

import (
	"io"
	"os"
	"strconv"

	"github.com/agentstation/reposcout/internal/cmd/table"
	"github.com/agentstation/reposcout/pkg/constants"
	"github.com/agentstation/reposcout/pkg/contracts"
	"github.com/agentstation/reposcout/pkg/errors"
)

// FormatSummary writes a run summary. Tables get a second table listing
// skipped records when there are any.
func FormatSummary(w io.Writer, s *contracts.Summary, format Format) error {
	if format != FormatTable {
		return NewFormatter(format).Format(w, s)
	}
	f := &TableFormatter{}
	if err := f.Format(w, table.SummaryToTableData(s)); err != nil {
		return err
	}
	if len(s.SkippedList) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, "\nSkipped records (still unprocessed, picked up by the next run):\n"); err != nil {
		return err
	}
	return f.Format(w, table.SkippedToTableData(s.SkippedList))
}

// FormatViewSummary writes the result of a view inspection.
func FormatViewSummary(w io.Writer, v contracts.ViewSummary, format Format) error {
	if format != FormatTable {
		return NewFormatter(format).Format(w, v)
	}
	f := &TableFormatter{}
	if _, err := io.WriteString(w, "View "+v.ViewID+": "+strconv.Itoa(v.SampleRecordCount)+" sampled record(s)\n"); err != nil {
		return err
	}
	return f.Format(w, table.ViewSummaryToTableData(v))
}

// FormatSearchResult writes the result of a single lookup.
func FormatSearchResult(w io.Writer, address string, r contracts.SearchResult, format Format) error {
	if format != FormatTable {
		return NewFormatter(format).Format(w, struct {
			Address string `json:"address" yaml:"address"`
			contracts.SearchResult `yaml:",inline"`
		}{address, r})
	}
	return NewFormatter(format).Format(w, table.SearchResultToTableData(address, r))
}

// FormatOriginKeys writes a list of origin keys.
func FormatOriginKeys(w io.Writer, keys []string, format Format) error {
	if format != FormatTable {
		return NewFormatter(format).Format(w, keys)
	}
	return NewFormatter(format).Format(w, table.OriginKeysToTableData(keys))
}

// WriteReport saves data to path as JSON, or YAML for .yaml/.yml paths.
func WriteReport(path string, data any) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	if err := NewFormatter(FormatFromPath(path)).Format(file, data); err != nil {
		_ = file.Close()
		return errors.WrapIO("write", path, err)
	}
	return errors.WrapIO("close", path, file.Close())
}
