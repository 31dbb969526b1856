// Package emoji provides symbol constants for CLI output.
package emoji

// Symbols used in table cells and status lines.
const (
	// Success marks a completed run or a present field.
	Success = "✓"

	// Error marks an aborted run or a missing field.
	Error = "✗"

	// Warning marks a run that completed with skipped records.
	Warning = "!"

	// Optional fills cells that have no value.
	Optional = "-"
)
