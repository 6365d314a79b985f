// Package searchtest provides a search.Searcher double for tests.
package searchtest

import (
	"context"
	"strings"
	"sync"

	"github.com/jonathan/pitch-agent/internal/search"
	"github.com/jonathan/pitch-agent/internal/types"
)

// FakeSearcher answers queries from a table. A query with no entry gets an
// empty, non-degraded response unless Degraded is set.
type FakeSearcher struct {
	// Results maps a substring of the query to the results returned for it.
	// Keys should not overlap; map order decides between overlapping keys.
	Results  map[string][]types.SearchResult
	Degraded bool

	mu      sync.Mutex
	queries []string
}

// Search implements search.Searcher.
func (f *FakeSearcher) Search(_ context.Context, query string, maxResults int) search.Response {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	var out []types.SearchResult
	for key, results := range f.Results {
		if strings.Contains(query, key) {
			for _, r := range results {
				r.Query = query
				r.EngineUsed = "fake"
				out = append(out, r)
			}
			break
		}
	}
	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	if out == nil {
		out = []types.SearchResult{}
	}
	engine := "fake"
	if f.Degraded {
		engine = ""
	}
	return search.Response{Results: out, EngineUsed: engine, Degraded: f.Degraded}
}

// Queries returns the queries seen so far.
func (f *FakeSearcher) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}
