package airtable

import (
	"strings"
	"time"

	"github.com/agentstation/reposcout/pkg/constants"
	"github.com/agentstation/reposcout/pkg/errors"
)

// FieldNames maps the logical record fields onto the column names of the table.
type FieldNames struct {
	Address     string `mapstructure:"address" yaml:"address"`
	GitHubFound string `mapstructure:"github_found" yaml:"github_found"`
	RepoCount   string `mapstructure:"repo_count" yaml:"repo_count"`
	RepoPaths   string `mapstructure:"repo_paths" yaml:"repo_paths"`
	OriginKey   string `mapstructure:"origin_key" yaml:"origin_key"`
}

// DefaultFieldNames returns the column names of the contracts table.
func DefaultFieldNames() FieldNames {
	return FieldNames{
		Address:     constants.FieldAddress,
		GitHubFound: constants.FieldGitHubFound,
		RepoCount:   constants.FieldRepoCount,
		RepoPaths:   constants.FieldRepoPaths,
		OriginKey:   constants.FieldOriginKey,
	}
}

// withDefaults fills empty names from DefaultFieldNames.
func (f FieldNames) withDefaults() FieldNames {
	d := DefaultFieldNames()
	if f.Address == "" {
		f.Address = d.Address
	}
	if f.GitHubFound == "" {
		f.GitHubFound = d.GitHubFound
	}
	if f.RepoCount == "" {
		f.RepoCount = d.RepoCount
	}
	if f.RepoPaths == "" {
		f.RepoPaths = d.RepoPaths
	}
	if f.OriginKey == "" {
		f.OriginKey = d.OriginKey
	}
	return f
}

// column translates a logical field name into the configured column name.
func (f FieldNames) column(logical string) string {
	switch logical {
	case constants.FieldAddress:
		return f.Address
	case constants.FieldGitHubFound:
		return f.GitHubFound
	case constants.FieldRepoCount:
		return f.RepoCount
	case constants.FieldRepoPaths:
		return f.RepoPaths
	case constants.FieldOriginKey:
		return f.OriginKey
	}
	return logical
}

// Config holds everything the adapter needs to reach one table.
type Config struct {
	BaseURL string
	BaseID  string
	TableID string
	ViewID  string
	Token   string

	// OriginKey restricts FetchUnprocessed to one origin when set.
	OriginKey string

	PageSize   int
	PageDelay  time.Duration
	SampleSize int
	Fields     FieldNames
}

// DefaultConfig returns a Config for the contracts table without a token.
func DefaultConfig() Config {
	return Config{
		BaseURL:    constants.AirtableAPIURL,
		BaseID:     constants.DefaultAirtableBaseID,
		TableID:    constants.DefaultAirtableTableID,
		ViewID:     constants.DefaultAirtableViewID,
		PageSize:   constants.AirtablePageSize,
		PageDelay:  constants.PageDelay,
		SampleSize: constants.ViewSampleSize,
		Fields:     DefaultFieldNames(),
	}
}

// Validate reports missing settings as configuration errors.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Token) == "":
		return errors.NewConfigError("airtable", "AIRTABLE_TOKEN is not set", errors.ErrAPIKeyRequired)
	case c.BaseID == "":
		return errors.NewConfigError("airtable", "base id is not set", nil)
	case c.TableID == "":
		return errors.NewConfigError("airtable", "table id is not set", nil)
	}
	return nil
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.PageSize <= 0 || c.PageSize > constants.AirtablePageSize {
		c.PageSize = d.PageSize
	}
	if c.PageDelay < 0 {
		c.PageDelay = 0
	}
	if c.SampleSize <= 0 {
		c.SampleSize = d.SampleSize
	}
	c.Fields = c.Fields.withDefaults()
	return c
}
