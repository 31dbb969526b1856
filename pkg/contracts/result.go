package contracts

import (
	"strings"

	"github.com/agentstation/reposcout/pkg/constants"
)

// SearchResult is the normalized outcome of one code search.
// Found is always Count > 0.
type SearchResult struct {
	Found        bool     `json:"found" yaml:"found"`
	Count        int      `json:"count" yaml:"count"`
	TotalCount   int      `json:"total_count" yaml:"total_count"`
	Excluded     int      `json:"excluded" yaml:"excluded"`
	Repositories []string `json:"repositories,omitempty" yaml:"repositories,omitempty"`
}

// NewSearchResult builds a result from the distinct matching repositories.
func NewSearchResult(repositories []string, totalCount, excluded int) SearchResult {
	return SearchResult{
		Found:        len(repositories) > 0,
		Count:        len(repositories),
		TotalCount:   totalCount,
		Excluded:     excluded,
		Repositories: repositories,
	}
}

// Fields is the payload written back to a record.
type Fields map[string]any

// FieldsFor builds the update payload for a search result.
func FieldsFor(result SearchResult, includeRepoPaths bool) Fields {
	fields := Fields{
		constants.FieldGitHubFound: result.Count > 0,
		constants.FieldRepoCount:   result.Count,
	}
	if includeRepoPaths {
		fields[constants.FieldRepoPaths] = strings.Join(result.Repositories, "\n")
	}
	return fields
}
