package reconcile

import (
	"context"
	"fmt"

	"github.com/agentstation/reposcout/internal/utils/ptr"
	"github.com/agentstation/reposcout/pkg/constants"
	"github.com/agentstation/reposcout/pkg/contracts"
	"github.com/agentstation/reposcout/pkg/errors"
)

// memoryStore is an in-memory table that filters unprocessed records the way
// the Airtable adapter does.
type memoryStore struct {
	records   []*contracts.ContractRecord
	updateErr map[string]error
	fetchErr  error

	fetches int
	updates []string
	written map[string]contracts.Fields
}

func newMemoryStore(records ...contracts.ContractRecord) *memoryStore {
	s := &memoryStore{
		updateErr: make(map[string]error),
		written:   make(map[string]contracts.Fields),
	}
	for i := range records {
		r := records[i]
		s.records = append(s.records, &r)
	}
	return s
}

func (s *memoryStore) FetchUnprocessed(ctx context.Context, viewID string) (contracts.Batch, error) {
	s.fetches++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var batch contracts.Batch
	for _, r := range s.records {
		if r.RepoCount == nil {
			batch = append(batch, *r)
		}
	}
	return batch, nil
}

func (s *memoryStore) UpdateRecord(ctx context.Context, id string, fields contracts.Fields) error {
	if err := s.updateErr[id]; err != nil {
		return errors.NewRecordUpdateError(id, err)
	}
	r := s.get(id)
	if r == nil {
		return errors.NewRecordUpdateError(id, errors.NewFatalError("update record", 404, "record not found", nil))
	}
	r.GitHubFound = ptr.To(fields[constants.FieldGitHubFound].(bool))
	r.RepoCount = ptr.To(fields[constants.FieldRepoCount].(int))
	s.updates = append(s.updates, id)
	s.written[id] = fields
	return nil
}

func (s *memoryStore) get(id string) *contracts.ContractRecord {
	for _, r := range s.records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// fakeSearcher answers from a table of repositories per address.
type fakeSearcher struct {
	repos   map[string][]string
	errs    map[string]error
	queries []string
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{repos: make(map[string][]string), errs: make(map[string]error)}
}

func (f *fakeSearcher) Search(ctx context.Context, query string) (contracts.SearchResult, error) {
	f.queries = append(f.queries, query)
	if err := f.errs[query]; err != nil {
		return contracts.SearchResult{}, err
	}
	return contracts.NewSearchResult(f.repos[query], len(f.repos[query]), 0), nil
}

// withRepos returns n distinct repository names.
func withRepos(n int) []string {
	repos := make([]string, n)
	for i := range repos {
		repos[i] = fmt.Sprintf("org/repo-%d", i)
	}
	return repos
}
