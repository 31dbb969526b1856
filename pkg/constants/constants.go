// Package constants provides shared constants used throughout the reposcout codebase.
// This includes API endpoints, timeouts, retry defaults, field names and other
// values that should be consistent across the application.
package constants

import "time"

// Remote API endpoints
const (
	// AirtableAPIURL is the base URL of the Airtable REST API
	AirtableAPIURL = "https://api.airtable.com/v0"

	// GitHubAPIURL is the base URL of the GitHub REST API
	GitHubAPIURL = "https://api.github.com"

	// GitHubAPIVersion is sent as X-GitHub-Api-Version on every search request
	GitHubAPIVersion = "2022-11-28"
)

// Default Airtable locations
const (
	// DefaultAirtableBaseID is the base holding the contracts table
	DefaultAirtableBaseID = "appZWDvjvDmVnOici"

	// DefaultAirtableTableID is the contracts table
	DefaultAirtableTableID = "tblcXnFAf0IEvAQA6"

	// DefaultAirtableViewID is the view that reconciliation reads from
	DefaultAirtableViewID = "viwF2Xc24CGNO7u5C"
)

// DefaultExcludedRepos are repositories that list almost every contract
// address and would make every lookup a hit. An entry ending in "/"
// excludes the whole owner.
var DefaultExcludedRepos = []string{
	"HelayLiu/utils_download",
	"KeystoneHQ/Smart-Contract-Metadata-Registry",
	"tangtj/",
}

// Record field names in the contracts table
const (
	// FieldAddress holds the contract address used as the search key
	FieldAddress = "address"

	// FieldGitHubFound is written with whether any repository matched
	FieldGitHubFound = "github_found"

	// FieldRepoCount is written with the number of matching repositories.
	// A blank value marks the record as unprocessed.
	FieldRepoCount = "repo_count"

	// FieldRepoPaths optionally receives the matching repositories, one per line
	FieldRepoPaths = "repo_paths"

	// FieldOriginKey groups records by source chain
	FieldOriginKey = "origin_key"
)

// Timeout constants
const (
	// DefaultHTTPTimeout is the standard timeout for a single HTTP request
	DefaultHTTPTimeout = 30 * time.Second

	// ShutdownTimeout bounds cleanup after a failed command
	ShutdownTimeout = 5 * time.Second
)

// Retry and pacing defaults. These are configurable, not contractual.
const (
	// MaxRetries is the default number of attempts for a retryable request
	MaxRetries = 4

	// RetryBackoff is the base backoff duration for retries
	RetryBackoff = 1 * time.Second

	// MaxRetryBackoff is the maximum backoff duration for retries
	MaxRetryBackoff = 60 * time.Second

	// RetryMultiplier is the growth factor between attempts
	RetryMultiplier = 2.0

	// RetryJitter is the fraction of each delay that is randomized
	RetryJitter = 0.1

	// RateLimitResetBuffer is added to X-RateLimit-Reset waits
	RateLimitResetBuffer = 5 * time.Second

	// RecordPacing is the minimum interval between two records of a batch
	RecordPacing = 2 * time.Second

	// PageDelay is the pause between two pages of an Airtable listing
	PageDelay = 200 * time.Millisecond

	// SearchPageDelay is the pause between two pages of a code search
	SearchPageDelay = 1 * time.Second
)

// Limit constants
const (
	// AirtablePageSize is the maximum page size accepted by Airtable
	AirtablePageSize = 100

	// SearchPageSize is the number of code search items requested per page
	SearchPageSize = 100

	// MaxSearchPages bounds code search pagination (GitHub serves at most 1000 results)
	MaxSearchPages = 10

	// ViewSampleSize is the number of records fetched by the view inspector
	ViewSampleSize = 10

	// MaxSearchQueryLength is the longest query GitHub code search accepts
	MaxSearchQueryLength = 256

	// MaxAddressLength leaves room for the quotes around the search term
	MaxAddressLength = MaxSearchQueryLength - 2
)

// File permission constants
const (
	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)
