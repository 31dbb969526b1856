package github

import (
	"strings"
	"time"

	"github.com/agentstation/reposcout/pkg/constants"
	"github.com/agentstation/reposcout/pkg/errors"
)

// Config holds the settings of the code search adapter.
type Config struct {
	BaseURL string
	Token   string

	PageSize  int
	MaxPages  int
	PageDelay time.Duration

	// ExcludedRepos lists "owner/name" repositories, or "owner/" prefixes,
	// whose matches are not counted.
	ExcludedRepos []string
}

// DefaultConfig returns a Config for api.github.com without a token.
func DefaultConfig() Config {
	return Config{
		BaseURL:   constants.GitHubAPIURL,
		PageSize:  constants.SearchPageSize,
		MaxPages:  constants.MaxSearchPages,
		PageDelay: constants.SearchPageDelay,
	}
}

// Validate reports missing settings as configuration errors.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return errors.NewConfigError("github", "GITHUB_TOKEN is not set", errors.ErrAPIKeyRequired)
	}
	return nil
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.PageSize <= 0 || c.PageSize > constants.SearchPageSize {
		c.PageSize = d.PageSize
	}
	if c.MaxPages <= 0 {
		c.MaxPages = d.MaxPages
	}
	if c.PageDelay < 0 {
		c.PageDelay = 0
	}
	return c
}

// exclusions matches repository names against the excluded list.
type exclusions struct {
	exact    map[string]struct{}
	prefixes []string
}

func newExclusions(repos []string) exclusions {
	ex := exclusions{exact: make(map[string]struct{})}
	for _, r := range repos {
		r = strings.ToLower(strings.TrimSpace(r))
		switch {
		case r == "":
		case strings.HasSuffix(r, "/"):
			ex.prefixes = append(ex.prefixes, r)
		default:
			ex.exact[r] = struct{}{}
		}
	}
	return ex
}

func (ex exclusions) match(fullName string) bool {
	name := strings.ToLower(fullName)
	if _, ok := ex.exact[name]; ok {
		return true
	}
	for _, p := range ex.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
