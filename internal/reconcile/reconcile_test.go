package reconcile

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/reposcout/internal/utils/ptr"
	"github.com/agentstation/reposcout/pkg/constants"
	"github.com/agentstation/reposcout/pkg/contracts"
	"github.com/agentstation/reposcout/pkg/errors"
	"github.com/agentstation/reposcout/pkg/logging"
)

var testNow = time.Date(2025, 4, 2, 8, 30, 0, 0, time.UTC)

func newTestReconciler(store Store, searcher Searcher, opts ...Option) *Reconciler {
	base := []Option{
		WithLogger(logging.NewNopLogger()),
		WithPacing(0),
		WithClock(func() time.Time { return testNow }),
		WithRunIDGenerator(func() string { return "run-1" }),
	}
	return New(store, searcher, append(base, opts...)...)
}

func transientErr() error {
	return errors.NewTransientError("github code search", 503, 4, fmt.Errorf("service unavailable"))
}

func authErr() error {
	return errors.NewFatalError("airtable update record", 401, "invalid token", nil)
}

func TestRunSkipsAddressTooLongForSearch(t *testing.T) {
	long := strings.Repeat("A", constants.MaxSearchQueryLength)
	store := newMemoryStore(
		contracts.ContractRecord{ID: "r1", Address: "0xABC"},
		contracts.ContractRecord{ID: "r2", Address: long},
		contracts.ContractRecord{ID: "r3", Address: "0xDEF"},
	)
	searcher := newFakeSearcher()
	// GitHub rejects the quoted query with 422, which would stop the run
	searcher.errs[long] = errors.NewFatalError("github code search", 422, "query too long", nil)

	summary, err := newTestReconciler(store, searcher).Run(context.Background(), "viwTest")
	require.NoError(t, err)

	assert.Equal(t, []string{"0xABC", "0xDEF"}, searcher.queries)
	assert.Equal(t, []string{"r1", "r3"}, store.updates)
	assert.False(t, summary.Aborted)
	assert.Equal(t, 2, summary.Processed)
	require.Len(t, summary.SkippedList, 1)
	assert.Equal(t, "r2", summary.SkippedList[0].ID)
	assert.Equal(t, contracts.OutcomeSkippedValidation, summary.SkippedList[0].Outcome)
	assert.Nil(t, store.get("r2").RepoCount)
}

func TestRunScenario(t *testing.T) {
	store := newMemoryStore(
		contracts.ContractRecord{ID: "rec1", Address: "0xABC"},
		contracts.ContractRecord{ID: "rec2", Address: ""},
		contracts.ContractRecord{ID: "rec3", Address: "0xDEF"},
	)
	searcher := newFakeSearcher()
	searcher.repos["0xABC"] = withRepos(7)

	summary, err := newTestReconciler(store, searcher).Run(context.Background(), "viwTest")
	require.NoError(t, err)

	rec1 := store.get("rec1")
	require.NotNil(t, rec1.RepoCount)
	assert.Equal(t, 7, *rec1.RepoCount)
	assert.True(t, *rec1.GitHubFound)

	rec2 := store.get("rec2")
	assert.Nil(t, rec2.RepoCount)
	assert.Nil(t, rec2.GitHubFound)

	rec3 := store.get("rec3")
	require.NotNil(t, rec3.RepoCount)
	assert.Equal(t, 0, *rec3.RepoCount)
	assert.False(t, *rec3.GitHubFound)

	// the empty address never reaches the search provider
	assert.Equal(t, []string{"0xABC", "0xDEF"}, searcher.queries)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Found)
	assert.Equal(t, 1, summary.NotFound)
	require.Len(t, summary.SkippedList, 1)
	assert.Equal(t, "rec2", summary.SkippedList[0].ID)
	assert.Equal(t, contracts.OutcomeSkippedValidation, summary.SkippedList[0].Outcome)
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, "viwTest", summary.ViewID)
	assert.False(t, summary.Aborted)
	assert.Equal(t, testNow, summary.StartedAt.Time)
	assert.Equal(t, testNow, summary.FinishedAt.Time)
}

func TestRunIsIdempotent(t *testing.T) {
	store := newMemoryStore(
		contracts.ContractRecord{ID: "rec1", Address: "0xaaa"},
		contracts.ContractRecord{ID: "rec2", Address: "0xbbb"},
	)
	searcher := newFakeSearcher()
	searcher.repos["0xaaa"] = withRepos(2)

	reconciler := newTestReconciler(store, searcher)

	first, err := reconciler.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Processed)

	second, err := reconciler.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, second.Total)
	assert.Zero(t, second.Processed)
	assert.Zero(t, second.Skipped)
	assert.Len(t, searcher.queries, 2)
	assert.Equal(t, []string{"rec1", "rec2"}, store.updates)
}

func TestRunNeverRefetchesZeroCounts(t *testing.T) {
	store := newMemoryStore(
		contracts.ContractRecord{ID: "rec1", Address: "0xaaa"},
		contracts.ContractRecord{ID: "rec2", Address: "0xbbb", RepoCount: ptr.To(0)},
	)
	searcher := newFakeSearcher()

	summary, err := newTestReconciler(store, searcher).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, []string{"0xaaa"}, searcher.queries)

	batch, err := store.FetchUnprocessed(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestRunIgnoresProcessedRecordsFromStore(t *testing.T) {
	stale := staleStore{batch: contracts.Batch{
		{ID: "rec1", Address: "0xaaa", RepoCount: ptr.To(0)},
		{ID: "rec2", Address: "0xbbb"},
	}}
	searcher := newFakeSearcher()

	summary, err := newTestReconciler(&stale, searcher).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, []string{"0xbbb"}, searcher.queries)
	assert.Equal(t, []string{"rec2"}, stale.updated)
}

func TestRunWrittenResultsSatisfyInvariant(t *testing.T) {
	var records []contracts.ContractRecord
	searcher := newFakeSearcher()
	for i := 0; i < 6; i++ {
		addr := fmt.Sprintf("0x%02x", i)
		records = append(records, contracts.ContractRecord{ID: fmt.Sprintf("rec%d", i), Address: addr})
		searcher.repos[addr] = withRepos(i % 3)
	}
	store := newMemoryStore(records...)

	_, err := newTestReconciler(store, searcher).Run(context.Background(), "")
	require.NoError(t, err)

	for _, r := range store.records {
		require.NotNil(t, r.RepoCount, r.ID)
		assert.GreaterOrEqual(t, *r.RepoCount, 0)
		assert.Equal(t, *r.RepoCount > 0, *r.GitHubFound, r.ID)
	}
}

func TestRunIsolatesTransientFailures(t *testing.T) {
	var records []contracts.ContractRecord
	for i := 1; i <= 5; i++ {
		records = append(records, contracts.ContractRecord{ID: fmt.Sprintf("rec%d", i), Address: fmt.Sprintf("0x%d", i)})
	}
	store := newMemoryStore(records...)
	searcher := newFakeSearcher()
	searcher.errs["0x3"] = transientErr()

	summary, err := newTestReconciler(store, searcher).Run(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"rec1", "rec2", "rec4", "rec5"}, store.updates)
	assert.Nil(t, store.get("rec3").RepoCount)
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.SkippedList, 1)
	assert.Equal(t, "rec3", summary.SkippedList[0].ID)
	assert.Equal(t, contracts.OutcomeSkippedError, summary.SkippedList[0].Outcome)
	assert.Contains(t, summary.SkippedList[0].Reason, "search")
}

func TestRunSkipsTransientUpdateFailures(t *testing.T) {
	store := newMemoryStore(
		contracts.ContractRecord{ID: "rec1", Address: "0x1"},
		contracts.ContractRecord{ID: "rec2", Address: "0x2"},
	)
	store.updateErr["rec1"] = errors.NewTransientError("airtable update record", 429, 4, fmt.Errorf("rate limited"))

	summary, err := newTestReconciler(store, newFakeSearcher()).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"rec2"}, store.updates)
	assert.Equal(t, 1, summary.Skipped)
	assert.Contains(t, summary.SkippedList[0].Reason, "update")
}

func TestRunAbortsOnFatalUpdate(t *testing.T) {
	var records []contracts.ContractRecord
	for i := 1; i <= 10; i++ {
		records = append(records, contracts.ContractRecord{ID: fmt.Sprintf("rec%d", i), Address: fmt.Sprintf("0x%d", i)})
	}
	store := newMemoryStore(records...)
	store.updateErr["rec3"] = authErr()
	searcher := newFakeSearcher()

	summary, err := newTestReconciler(store, searcher).Run(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.True(t, errors.IsAPIKeyError(err))

	assert.Equal(t, []string{"rec1", "rec2"}, store.updates)
	for i := 3; i <= 10; i++ {
		assert.Nil(t, store.get(fmt.Sprintf("rec%d", i)).RepoCount)
	}
	assert.Len(t, searcher.queries, 3)

	require.NotNil(t, summary)
	assert.True(t, summary.Aborted)
	assert.Equal(t, 10, summary.Total)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 8, summary.Remaining)
	assert.Zero(t, summary.Skipped)
}

func TestRunAbortsOnFatalSearch(t *testing.T) {
	store := newMemoryStore(
		contracts.ContractRecord{ID: "rec1", Address: "0x1"},
		contracts.ContractRecord{ID: "rec2", Address: "0x2"},
	)
	searcher := newFakeSearcher()
	searcher.errs["0x1"] = errors.NewFatalError("github code search", 401, "Bad credentials", nil)

	summary, err := newTestReconciler(store, searcher).Run(context.Background(), "")
	assert.True(t, errors.IsFatal(err))
	assert.Empty(t, store.updates)
	assert.Equal(t, 2, summary.Remaining)
	assert.Contains(t, summary.AbortReason, "Bad credentials")
}

func TestRunFetchFailure(t *testing.T) {
	store := newMemoryStore()
	store.fetchErr = errors.NewFatalError("airtable fetch unprocessed", 404, "view not found", nil)

	summary, err := newTestReconciler(store, newFakeSearcher()).Run(context.Background(), "viwMissing")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.True(t, summary.Aborted)
	assert.Zero(t, summary.Total)
}

func TestRunEmptyBatch(t *testing.T) {
	summary, err := newTestReconciler(newMemoryStore(), newFakeSearcher()).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.Processed)
	assert.False(t, summary.Aborted)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	store := newMemoryStore(contracts.ContractRecord{ID: "rec1", Address: "0x1"})
	searcher := newFakeSearcher()
	searcher.repos["0x1"] = withRepos(1)

	summary, err := newTestReconciler(store, searcher, WithDryRun(true)).Run(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Found)
	assert.Empty(t, store.updates)
	assert.Nil(t, store.get("rec1").RepoCount)
}

func TestRunLimit(t *testing.T) {
	store := newMemoryStore(
		contracts.ContractRecord{ID: "rec1", Address: "0x1"},
		contracts.ContractRecord{ID: "rec2", Address: "0x2"},
		contracts.ContractRecord{ID: "rec3", Address: "0x3"},
	)

	summary, err := newTestReconciler(store, newFakeSearcher(), WithLimit(2)).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"rec1", "rec2"}, store.updates)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Remaining)
}

func TestRunIncludesRepoPaths(t *testing.T) {
	store := newMemoryStore(contracts.ContractRecord{ID: "rec1", Address: "0x1"})
	searcher := newFakeSearcher()
	searcher.repos["0x1"] = []string{"a/b", "c/d"}

	_, err := newTestReconciler(store, searcher, WithIncludeRepoPaths(true)).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "a/b\nc/d", store.written["rec1"]["repo_paths"])
}

func TestRunStopsOnCancellation(t *testing.T) {
	store := newMemoryStore(
		contracts.ContractRecord{ID: "rec1", Address: "0x1"},
		contracts.ContractRecord{ID: "rec2", Address: "0x2"},
	)
	ctx, cancel := context.WithCancel(context.Background())
	searcher := &cancellingSearcher{cancel: cancel}

	summary, err := newTestReconciler(store, searcher).Run(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, summary.Aborted)
	assert.Equal(t, []string{"rec1"}, store.updates)
	assert.Equal(t, 1, summary.Remaining)
}

func TestRunPacesRecords(t *testing.T) {
	store := newMemoryStore(
		contracts.ContractRecord{ID: "rec1", Address: "0x1"},
		contracts.ContractRecord{ID: "rec2", Address: "0x2"},
		contracts.ContractRecord{ID: "rec3", Address: "0x3"},
	)

	start := time.Now()
	_, err := newTestReconciler(store, newFakeSearcher(), WithPacing(20*time.Millisecond)).Run(context.Background(), "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
	assert.Len(t, store.updates, 3)
}

func TestRunLogsSkippedRecords(t *testing.T) {
	logger := logging.NewTestLogger(t)
	store := newMemoryStore(contracts.ContractRecord{ID: "rec1", Address: ""})

	_, err := newTestReconciler(store, newFakeSearcher(), WithLogger(logger.Logger)).Run(context.Background(), "")
	require.NoError(t, err)
	logger.AssertContains(t, `"record_id":"rec1"`)
	logger.AssertContains(t, `"run_id":"run-1"`)
	logger.AssertContains(t, "invalid address")
	logger.AssertContains(t, `"outcome":"skipped_validation"`)
}

func TestRunLogsUpdatedOutcome(t *testing.T) {
	logger := logging.NewTestLogger(t)
	store := newMemoryStore(contracts.ContractRecord{ID: "rec1", Address: "0xABC"})

	summary, err := newTestReconciler(store, newFakeSearcher(), WithLogger(logger.Logger)).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	logger.AssertContains(t, "Record reconciled")
	logger.AssertContains(t, `"outcome":"updated"`)
}

// staleStore returns a fixed batch, including rows a view should have filtered.
type staleStore struct {
	batch   contracts.Batch
	updated []string
}

func (s *staleStore) FetchUnprocessed(ctx context.Context, viewID string) (contracts.Batch, error) {
	return s.batch, nil
}

func (s *staleStore) UpdateRecord(ctx context.Context, id string, fields contracts.Fields) error {
	s.updated = append(s.updated, id)
	return nil
}

// cancellingSearcher cancels the run after its first successful lookup.
type cancellingSearcher struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancellingSearcher) Search(ctx context.Context, query string) (contracts.SearchResult, error) {
	c.calls++
	if c.calls == 1 {
		defer c.cancel()
		return contracts.NewSearchResult(nil, 0, 0), nil
	}
	return contracts.SearchResult{}, ctx.Err()
}
