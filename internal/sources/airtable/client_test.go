package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/reposcout/internal/transport"
	"github.com/agentstation/reposcout/pkg/contracts"
	"github.com/agentstation/reposcout/pkg/errors"
	"github.com/agentstation/reposcout/pkg/logging"
)

func loadTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

// newTestClient points a client at server with retries that never block.
func newTestClient(t *testing.T, server *httptest.Server, mutate func(*Config)) (*Client, *[]time.Duration) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.BaseID = "appTest"
	cfg.TableID = "tblTest"
	cfg.ViewID = "viwDefault"
	cfg.Token = "patTest"
	if mutate != nil {
		mutate(&cfg)
	}

	var pauses []time.Duration
	noSleep := func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	tr := transport.New(
		transport.WithRetryPolicy(transport.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}),
		transport.WithSleeper(noSleep),
		transport.WithLogger(logging.NewNopLogger()),
	)
	client, err := New(cfg,
		WithTransport(tr),
		WithLogger(logging.NewNopLogger()),
		WithPageSleeper(func(ctx context.Context, d time.Duration) error {
			pauses = append(pauses, d)
			return nil
		}),
	)
	require.NoError(t, err)
	return client, &pauses
}

func TestNewRequiresToken(t *testing.T) {
	cfg := DefaultConfig()
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
	assert.ErrorIs(t, err, errors.ErrAPIKeyRequired)

	cfg.Token = "pat"
	cfg.TableID = ""
	_, err = New(cfg)
	assert.True(t, errors.IsConfig(err))
}

func TestFetchUnprocessedPaginates(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []map[string][]string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/appTest/tblTest", r.URL.Path)
		assert.Equal(t, "Bearer patTest", r.Header.Get("Authorization"))

		mu.Lock()
		queries = append(queries, r.URL.Query())
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("offset") == "" {
			_, _ = w.Write(loadTestdata(t, "list_records_page1.json"))
			return
		}
		_, _ = w.Write(loadTestdata(t, "list_records_page2.json"))
	}))
	defer server.Close()

	client, pauses := newTestClient(t, server, nil)
	batch, err := client.FetchUnprocessed(context.Background(), "viwContracts")
	require.NoError(t, err)

	// recB2 has repo_count 0 and is dropped by the client side guard
	assert.Equal(t, []string{"recA1", "recA2", "recB1"}, batch.IDs())
	assert.Equal(t, "0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2", batch[1].Address)
	require.NotNil(t, batch[1].GitHubFound)
	assert.False(t, *batch[1].GitHubFound)
	assert.Equal(t, "solana", batch[2].OriginKey)
	for _, r := range batch {
		assert.Nil(t, r.RepoCount)
	}

	require.Len(t, queries, 2)
	assert.Equal(t, "viwContracts", queries[0]["view"][0])
	assert.Equal(t, "LEN({repo_count}&'')=0", queries[0]["filterByFormula"][0])
	assert.Equal(t, "100", queries[0]["pageSize"][0])
	assert.ElementsMatch(t, []string{"address", "github_found", "repo_count"}, queries[0]["fields[]"])
	assert.Empty(t, queries[0]["offset"])
	assert.Equal(t, "itrPage2/recA2", queries[1]["offset"][0])
	assert.Equal(t, "LEN({repo_count}&'')=0", queries[1]["filterByFormula"][0])

	assert.Equal(t, []time.Duration{200 * time.Millisecond}, *pauses)
}

func TestFetchUnprocessedUsesDefaultViewAndOriginFilter(t *testing.T) {
	var got map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server, func(c *Config) {
		c.OriginKey = "o'brien"
	})
	batch, err := client.FetchUnprocessed(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, batch)

	assert.Equal(t, "viwDefault", got["view"][0])
	assert.Equal(t, `AND(LEN({repo_count}&'')=0,{origin_key}='o\'brien')`, got["filterByFormula"][0])
	assert.Contains(t, got["fields[]"], "origin_key")
}

// strictTable serves a table that only has the three columns reconciliation
// needs and rejects any other fields[] with 422 like Airtable does.
func strictTable(t *testing.T) *httptest.Server {
	t.Helper()
	known := map[string]bool{"address": true, "github_found": true, "repo_count": true}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, name := range r.URL.Query()["fields[]"] {
			if !known[name] {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(`{"error":{"type":"UNKNOWN_FIELD_NAME","message":"Unknown field name: \"` + name + `\""}}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"records":[{"id":"rec1","fields":{"address":"0xabc"}}]}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchUnprocessedWithoutOriginKeyColumn(t *testing.T) {
	client, _ := newTestClient(t, strictTable(t), nil)

	batch, err := client.FetchUnprocessed(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"rec1"}, batch.IDs())
	assert.Empty(t, batch[0].OriginKey)
}

func TestListOriginKeysWithoutOriginKeyColumn(t *testing.T) {
	client, _ := newTestClient(t, strictTable(t), nil)

	_, err := client.ListOriginKeys(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
	assert.Contains(t, err.Error(), "origin_key")
}

func TestFetchUnprocessedCustomFieldNames(t *testing.T) {
	var got map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{"records":[{"id":"rec1","fields":{"Contract":"0xabc","Repos":null}}]}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server, func(c *Config) {
		c.Fields = FieldNames{Address: "Contract", RepoCount: "Repos"}
	})
	batch, err := client.FetchUnprocessed(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, batch, 1)
	assert.Equal(t, "0xabc", batch[0].Address)
	assert.Equal(t, "LEN({Repos}&'')=0", got["filterByFormula"][0])
}

func TestFetchUnprocessedFatalOnUnauthorized(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":{"type":"AUTHENTICATION_REQUIRED"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server, nil)
	_, err := client.FetchUnprocessed(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.True(t, errors.IsAPIKeyError(err))
	assert.Equal(t, 1, calls)
}

func TestUpdateRecordSendsFields(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/appTest/tblTest/recA1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"id":"recA1","fields":{}}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server, func(c *Config) {
		c.Fields.RepoPaths = "Repository Paths"
	})
	result := contracts.NewSearchResult([]string{"acme/vault"}, 3, 0)
	err := client.UpdateRecord(context.Background(), "recA1", contracts.FieldsFor(result, true))
	require.NoError(t, err)

	assert.Equal(t, true, body["typecast"])
	fields := body["fields"].(map[string]any)
	assert.Equal(t, true, fields["github_found"])
	assert.Equal(t, float64(1), fields["repo_count"])
	assert.Equal(t, "acme/vault", fields["Repository Paths"])
}

func TestUpdateRecordWritesZero(t *testing.T) {
	var body updateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"id":"recA2"}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server, nil)
	err := client.UpdateRecord(context.Background(), "recA2", contracts.FieldsFor(contracts.NewSearchResult(nil, 0, 0), false))
	require.NoError(t, err)

	assert.Equal(t, false, body.Fields["github_found"])
	assert.Equal(t, float64(0), body.Fields["repo_count"])
	assert.NotContains(t, body.Fields, "repo_paths")
}

func TestUpdateRecordErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
		calls     int
	}{
		{name: "server errors exhaust retries", status: http.StatusServiceUnavailable, transient: true, calls: 3},
		{name: "rate limited", status: http.StatusTooManyRequests, transient: true, calls: 3},
		{name: "forbidden is fatal", status: http.StatusForbidden, calls: 1},
		{name: "unknown field is fatal", status: http.StatusUnprocessableEntity, calls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client, _ := newTestClient(t, server, nil)
			err := client.UpdateRecord(context.Background(), "recX", contracts.Fields{"repo_count": 1})
			require.Error(t, err)

			var updateErr *errors.RecordUpdateError
			require.ErrorAs(t, err, &updateErr)
			assert.Equal(t, "recX", updateErr.RecordID)
			assert.Equal(t, tt.transient, errors.IsTransient(err))
			assert.Equal(t, !tt.transient, errors.IsFatal(err))
			assert.Equal(t, tt.calls, calls)
		})
	}
}

func TestUpdateRecordRejectsEmptyID(t *testing.T) {
	client, err := New(Config{Token: "pat", BaseID: "app", TableID: "tbl"})
	require.NoError(t, err)
	err = client.UpdateRecord(context.Background(), "", contracts.Fields{})
	assert.True(t, errors.IsValidationError(err))
}

func TestDescribeView(t *testing.T) {
	var got map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{
			"records": [
				{"id": "rec1", "fields": {"address": "0xabc", "origin_key": "base"}},
				{"id": "rec2", "fields": {"address": "0xdef", "repo_count": 0, "github_found": false}}
			],
			"offset": "more"
		}`))
	}))
	defer server.Close()

	client, pauses := newTestClient(t, server, func(c *Config) {
		c.SampleSize = 2
	})
	summary, err := client.DescribeView(context.Background(), "viwInspect")
	require.NoError(t, err)

	assert.Equal(t, "viwInspect", summary.ViewID)
	assert.Equal(t, 2, summary.SampleRecordCount)
	assert.Equal(t, []string{"address", "github_found", "origin_key", "repo_count"}, summary.FieldNames)
	assert.Equal(t, "0xabc", summary.SampleRecord["address"])

	assert.Equal(t, "2", got["maxRecords"][0])
	assert.Equal(t, "2", got["pageSize"][0])
	assert.Empty(t, got["filterByFormula"])
	assert.Empty(t, *pauses)
}

func TestDescribeViewEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server, nil)
	summary, err := client.DescribeView(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "viwDefault", summary.ViewID)
	assert.Zero(t, summary.SampleRecordCount)
	assert.Empty(t, summary.FieldNames)
	assert.Nil(t, summary.SampleRecord)
}

func TestListOriginKeys(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"origin_key"}, r.URL.Query()["fields[]"])
		if r.URL.Query().Get("offset") == "" {
			_, _ = w.Write(loadTestdata(t, "list_records_page1.json"))
			return
		}
		_, _ = w.Write(loadTestdata(t, "list_records_page2.json"))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server, nil)
	keys, err := client.ListOriginKeys(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"ethereum", "solana"}, keys)
}

func TestFormulas(t *testing.T) {
	assert.Equal(t, "LEN({repo_count}&'')=0", blankFormula("repo_count"))
	assert.Equal(t, "{origin_key}='a\\'b'", equalsFormula("origin_key", "a'b"))
	assert.Equal(t, "x", and("", "x"))
	assert.Equal(t, "", and())
	assert.Equal(t, "AND(a,b)", and("a", "b"))
}

func TestToContractParsesCounts(t *testing.T) {
	f := DefaultFieldNames()

	c := f.toContract(record{ID: "r", Fields: map[string]any{"repo_count": float64(4), "github_found": true}})
	require.NotNil(t, c.RepoCount)
	assert.Equal(t, 4, *c.RepoCount)
	assert.True(t, *c.GitHubFound)

	c = f.toContract(record{ID: "r", Fields: map[string]any{"repo_count": ""}})
	assert.Nil(t, c.RepoCount)

	c = f.toContract(record{ID: "r", Fields: map[string]any{"repo_count": "0"}})
	require.NotNil(t, c.RepoCount)
	assert.Zero(t, *c.RepoCount)
}
