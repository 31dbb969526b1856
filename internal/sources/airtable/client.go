// Package airtable reads and writes contract records in an Airtable table.
package airtable

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/agentstation/reposcout/internal/transport"
	"github.com/agentstation/reposcout/pkg/contracts"
	"github.com/agentstation/reposcout/pkg/errors"
	"github.com/agentstation/reposcout/pkg/logging"
)

const serviceName = "airtable"

// Client is the record store adapter for one Airtable table.
type Client struct {
	cfg       Config
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

// WithPageSleeper replaces the wait used between pages.
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
	c := &Client{
		cfg:    cfg.normalized(),
		auth:   &transport.BearerAuth{Token: cfg.Token},
		sleep:  transport.SleepContext,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = transport.New(transport.WithLogger(c.logger))
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// FetchUnprocessed returns every record of the view whose repo count is blank,
// in the order the table returns them. All pages are read before returning.
func (c *Client) FetchUnprocessed(ctx context.Context, viewID string) (contracts.Batch, error) {
	f := c.cfg.Fields
	formula := blankFormula(f.RepoCount)
	if c.cfg.OriginKey != "" {
		formula = and(formula, equalsFormula(f.OriginKey, c.cfg.OriginKey))
	}

	// Airtable rejects unknown fields[] with 422, so origin_key is only
	// requested when it is filtered on
	columns := []string{f.Address, f.GitHubFound, f.RepoCount}
	if c.cfg.OriginKey != "" {
		columns = append(columns, f.OriginKey)
	}

	query := url.Values{}
	query.Set("filterByFormula", formula)
	for _, name := range columns {
		query.Add("fields[]", name)
	}

	records, err := c.list(ctx, "fetch unprocessed", c.view(viewID), query, 0)
	if err != nil {
		return nil, err
	}

	batch := make(contracts.Batch, 0, len(records))
	for _, r := range records {
		batch = append(batch, f.toContract(r))
	}

	// the formula already excludes processed rows; a stale or edited view
	// must still never hand back a zero count
	unprocessed := batch.Unprocessed()
	if dropped := len(batch) - len(unprocessed); dropped > 0 {
		c.logger.Warn().
			Int("dropped", dropped).
			Msg("Server returned records that already have a repo count")
	}

	c.logger.Info().
		Str("view_id", c.view(viewID)).
		Str("origin_key", c.cfg.OriginKey).
		Int("records", len(unprocessed)).
		Msg("Fetched unprocessed records")
	return unprocessed, nil
}

// UpdateRecord writes fields to the record with the given id. Failures are
// returned as *errors.RecordUpdateError wrapping the transient or fatal cause.
func (c *Client) UpdateRecord(ctx context.Context, id string, fields contracts.Fields) error {
	if id == "" {
		return errors.NewValidationError("id", id, "record id is empty")
	}

	body := updateRequest{Fields: make(map[string]any, len(fields)), Typecast: true}
	for k, v := range fields {
		body.Fields[c.cfg.Fields.column(k)] = v
	}

	resp, err := c.transport.Do(ctx, &transport.Request{
		Service:   serviceName,
		Operation: "update record",
		Method:    http.MethodPatch,
		URL:       c.tableURL() + "/" + url.PathEscape(id),
		Body:      body,
		Auth:      c.auth,
	})
	if err != nil {
		return errors.NewRecordUpdateError(id, err)
	}

	var updated record
	if err := transport.DecodeJSON(resp, &updated); err != nil {
		return errors.NewRecordUpdateError(id, err)
	}

	c.logger.Debug().Str("record_id", id).Msg("Updated record")
	return nil
}

// DescribeView samples the view and reports the field names it exposes.
func (c *Client) DescribeView(ctx context.Context, viewID string) (contracts.ViewSummary, error) {
	view := c.view(viewID)
	records, err := c.list(ctx, "describe view", view, url.Values{}, c.cfg.SampleSize)
	if err != nil {
		return contracts.ViewSummary{}, err
	}

	summary := contracts.ViewSummary{
		ViewID:            view,
		FieldNames:        []string{},
		SampleRecordCount: len(records),
	}
	seen := make(map[string]struct{})
	for _, r := range records {
		for name := range r.Fields {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				summary.FieldNames = append(summary.FieldNames, name)
			}
		}
	}
	sort.Strings(summary.FieldNames)
	if len(records) > 0 {
		summary.SampleRecord = records[0].Fields
	}
	return summary, nil
}

// ListOriginKeys returns the distinct origin keys present in the view, sorted.
func (c *Client) ListOriginKeys(ctx context.Context, viewID string) ([]string, error) {
	query := url.Values{}
	query.Add("fields[]", c.cfg.Fields.OriginKey)

	records, err := c.list(ctx, "list origin keys", c.view(viewID), query, 0)
	if err != nil {
		if unknownField(err) {
			return nil, errors.NewConfigError("airtable",
				"view has no "+c.cfg.Fields.OriginKey+" column", err)
		}
		return nil, err
	}

	seen := make(map[string]struct{})
	keys := []string{}
	for _, r := range records {
		key := stringField(r.Fields[c.cfg.Fields.OriginKey])
		if key == "" {
			continue
		}
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// unknownField reports a 422 rejection, which Airtable returns for a
// fields[] or formula column that does not exist.
func unknownField(err error) bool {
	var fatal *errors.FatalError
	return stderrors.As(err, &fatal) && fatal.StatusCode == http.StatusUnprocessableEntity
}

// list reads pages of the table until there is no offset or maxRecords
// (when positive) records have been read.
func (c *Client) list(ctx context.Context, operation, view string, query url.Values, maxRecords int) ([]record, error) {
	base := url.Values{}
	for k, vs := range query {
		base[k] = append([]string(nil), vs...)
	}
	if view != "" {
		base.Set("view", view)
	}
	pageSize := c.cfg.PageSize
	if maxRecords > 0 {
		base.Set("maxRecords", strconv.Itoa(maxRecords))
		if maxRecords < pageSize {
			pageSize = maxRecords
		}
	}
	base.Set("pageSize", strconv.Itoa(pageSize))

	var (
		all    []record
		offset string
	)
	for page := 1; ; page++ {
		q := url.Values{}
		for k, vs := range base {
			q[k] = vs
		}
		if offset != "" {
			q.Set("offset", offset)
		}

		resp, err := c.transport.Do(ctx, &transport.Request{
			Service:   serviceName,
			Operation: operation,
			Method:    http.MethodGet,
			URL:       c.tableURL(),
			Query:     q,
			Auth:      c.auth,
		})
		if err != nil {
			return nil, err
		}

		var body listResponse
		if err := transport.DecodeJSON(resp, &body); err != nil {
			return nil, err
		}
		all = append(all, body.Records...)

		c.logger.Debug().
			Str("operation", operation).
			Int("page", page).
			Int("page_records", len(body.Records)).
			Int("total", len(all)).
			Msg("Fetched page")

		if body.Offset == "" || (maxRecords > 0 && len(all) >= maxRecords) {
			break
		}
		offset = body.Offset
		if err := c.sleep(ctx, c.cfg.PageDelay); err != nil {
			return nil, err
		}
	}

	if maxRecords > 0 && len(all) > maxRecords {
		all = all[:maxRecords]
	}
	return all, nil
}

func (c *Client) tableURL() string {
	return c.cfg.BaseURL + "/" + url.PathEscape(c.cfg.BaseID) + "/" + url.PathEscape(c.cfg.TableID)
}

func (c *Client) view(viewID string) string {
	if viewID != "" {
		return viewID
	}
	return c.cfg.ViewID
}
