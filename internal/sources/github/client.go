// Package github looks contract addresses up with the GitHub code search API.
package github

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/reposcout/internal/transport"
	"github.com/agentstation/reposcout/pkg/constants"
	"github.com/agentstation/reposcout/pkg/contracts"
	"github.com/agentstation/reposcout/pkg/errors"
	"github.com/agentstation/reposcout/pkg/logging"
)

const serviceName = "github"

// Response structures for the code search API.
type searchResponse struct {
	TotalCount        int          `json:"total_count"`
	IncompleteResults bool         `json:"incomplete_results"`
	Items             []searchItem `json:"items"`
}

type searchItem struct {
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	HTMLURL    string     `json:"html_url"`
	Repository repository `json:"repository"`
}

type repository struct {
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

// Client is the search provider adapter for GitHub code search.
type Client struct {
	cfg       Config
	excluded  exclusions
	auth      transport.Authenticator
	transport *transport.Client
	sleep     transport.Sleeper
	logger    *zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTransport sets the HTTP transport.
func WithTransport(t *transport.Client) Option {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPageSleeper replaces the wait used between result pages.
func WithPageSleeper(s transport.Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

// New validates cfg and creates a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalized()
	c := &Client{
		cfg:      cfg,
		excluded: newExclusions(cfg.ExcludedRepos),
		auth:     &transport.TokenAuth{Token: cfg.Token},
		sleep:    transport.SleepContext,
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = transport.New(transport.WithLogger(c.logger))
	}
	return c, nil
}

// Search counts the distinct repositories whose code mentions query.
// A failed lookup is returned as an error, never as a zero count.
func (c *Client) Search(ctx context.Context, query string) (contracts.SearchResult, error) {
	term := strings.TrimSpace(query)
	if term == "" {
		return contracts.SearchResult{}, errors.NewValidationError("query", query, "search query is empty")
	}
	if len(strconv.Quote(term)) > constants.MaxSearchQueryLength {
		return contracts.SearchResult{}, errors.NewValidationError("query", query, "search query is too long")
	}

	var (
		repos    []string
		seen     = make(map[string]struct{})
		excluded = make(map[string]struct{})
		total    int
	)
	for page := 1; page <= c.cfg.MaxPages; page++ {
		body, err := c.searchPage(ctx, term, page)
		if err != nil {
			return contracts.SearchResult{}, err
		}
		total = body.TotalCount

		for _, item := range body.Items {
			name := item.Repository.FullName
			if name == "" {
				continue
			}
			if c.excluded.match(name) {
				excluded[name] = struct{}{}
				continue
			}
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				repos = append(repos, name)
			}
		}

		c.logger.Debug().
			Str("query", term).
			Int("page", page).
			Int("items", len(body.Items)).
			Int("total_count", body.TotalCount).
			Bool("incomplete", body.IncompleteResults).
			Msg("Fetched search page")

		if len(body.Items) < c.cfg.PageSize || page*c.cfg.PageSize >= body.TotalCount {
			break
		}
		if page < c.cfg.MaxPages {
			if err := c.sleep(ctx, c.cfg.PageDelay); err != nil {
				return contracts.SearchResult{}, err
			}
		}
	}

	result := contracts.NewSearchResult(repos, total, len(excluded))
	c.logger.Debug().
		Str("query", term).
		Int("repo_count", result.Count).
		Int("excluded", result.Excluded).
		Msg("Search complete")
	return result, nil
}

func (c *Client) searchPage(ctx context.Context, term string, page int) (*searchResponse, error) {
	q := url.Values{}
	q.Set("q", strconv.Quote(term))
	q.Set("per_page", strconv.Itoa(c.cfg.PageSize))
	q.Set("page", strconv.Itoa(page))

	header := http.Header{}
	header.Set("Accept", "application/vnd.github+json")
	header.Set("X-GitHub-Api-Version", constants.GitHubAPIVersion)

	resp, err := c.transport.Do(ctx, &transport.Request{
		Service:   serviceName,
		Operation: "code search",
		Method:    http.MethodGet,
		URL:       c.cfg.BaseURL + "/search/code",
		Query:     q,
		Header:    header,
		Auth:      c.auth,
	})
	if err != nil {
		return nil, err
	}

	var body searchResponse
	if err := transport.DecodeJSON(resp, &body); err != nil {
		return nil, err
	}
	return &body, nil
}
