package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jonathan/pitch-agent/internal/types"
)

type fakeEngine struct {
	name    string
	results []types.SearchResult
	err     error
	delay   time.Duration

	mu    sync.Mutex
	calls int
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Search(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.results, f.err
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func hits(urls ...string) []types.SearchResult {
	out := make([]types.SearchResult, len(urls))
	for i, u := range urls {
		out[i] = types.SearchResult{Title: "t", URL: u, Snippet: "snippet text long enough", Rank: i + 1}
	}
	return out
}

func failing(name string, kind ErrorKind) *fakeEngine {
	return &fakeEngine{name: name, err: &EngineError{Engine: name, Kind: kind, Cause: errors.New("boom")}}
}

func TestOrchestrator_FirstSuccessShortCircuits(t *testing.T) {
	first := &fakeEngine{name: "a", results: hits("https://a.example/1")}
	second := &fakeEngine{name: "b", results: hits("https://b.example/1")}
	o := NewOrchestrator([]Engine{first, second}, Config{}, zaptest.NewLogger(t))

	resp := o.Search(context.Background(), "acme industry", 5)

	assert.False(t, resp.Degraded)
	assert.Equal(t, "a", resp.EngineUsed)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a", resp.Results[0].EngineUsed)
	assert.Equal(t, "acme industry", resp.Results[0].Query)
	assert.Equal(t, 0, second.callCount())
}

func TestOrchestrator_FallsThroughFailures(t *testing.T) {
	rate := failing("a", RateLimited)
	down := failing("b", Unreachable)
	ok := &fakeEngine{name: "c", results: hits("https://c.example")}
	o := NewOrchestrator([]Engine{rate, down, ok}, Config{}, nil)

	resp := o.Search(context.Background(), "q", 5)

	assert.Equal(t, "c", resp.EngineUsed)
	assert.False(t, resp.Degraded)
	assert.Equal(t, 1, rate.callCount())
	assert.Equal(t, 1, down.callCount(), "failed engines are not retried within a call")
}

func TestOrchestrator_AllFailIsDegradedNotError(t *testing.T) {
	o := NewOrchestrator([]Engine{
		failing("a", RateLimited),
		failing("b", Unreachable),
		failing("c", InvalidResponse),
	}, Config{}, nil)

	resp := o.Search(context.Background(), "q", 5)

	assert.True(t, resp.Degraded)
	assert.Empty(t, resp.Results)
	assert.NotNil(t, resp.Results)
	assert.Equal(t, "", resp.EngineUsed)
}

func TestOrchestrator_NoEnginesIsDegraded(t *testing.T) {
	resp := NewOrchestrator(nil, Config{}, nil).Search(context.Background(), "q", 5)
	assert.True(t, resp.Degraded)
}

func TestOrchestrator_EmptyResultsMoveOnWithoutDegrading(t *testing.T) {
	empty := &fakeEngine{name: "a"}
	ok := &fakeEngine{name: "b", results: hits("https://b.example")}
	o := NewOrchestrator([]Engine{empty, ok}, Config{}, nil)

	resp := o.Search(context.Background(), "q", 5)
	assert.Equal(t, "b", resp.EngineUsed)

	onlyEmpty := NewOrchestrator([]Engine{&fakeEngine{name: "a"}}, Config{}, nil)
	resp = onlyEmpty.Search(context.Background(), "q", 5)
	assert.False(t, resp.Degraded)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, onlyEmpty.health.failures("a"))
}

func TestOrchestrator_TimeoutCountsAsFailure(t *testing.T) {
	slow := &fakeEngine{name: "slow", delay: time.Second, results: hits("https://slow.example")}
	fast := &fakeEngine{name: "fast", results: hits("https://fast.example")}
	o := NewOrchestrator([]Engine{slow, fast}, Config{EngineTimeout: 20 * time.Millisecond}, nil)

	start := time.Now()
	resp := o.Search(context.Background(), "q", 5)

	assert.Equal(t, "fast", resp.EngineUsed)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 1, o.health.failures("slow"))
}

func TestOrchestrator_DedupesByNormalizedURL(t *testing.T) {
	e := &fakeEngine{name: "a", results: hits(
		"https://www.acme.com/about/",
		"https://acme.com/about?utm_source=x",
		"https://acme.com/about#team",
		"https://acme.com/news",
	)}
	resp := NewOrchestrator([]Engine{e}, Config{}, nil).Search(context.Background(), "q", 10)

	require.Len(t, resp.Results, 2)
	assert.Equal(t, "https://www.acme.com/about/", resp.Results[0].URL)
	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.Equal(t, 2, resp.Results[1].Rank)
}

func TestOrchestrator_TruncatesToMaxResults(t *testing.T) {
	e := &fakeEngine{name: "a", results: hits("https://a.example/1", "https://a.example/2", "https://a.example/3")}
	resp := NewOrchestrator([]Engine{e}, Config{}, nil).Search(context.Background(), "q", 2)
	assert.Len(t, resp.Results, 2)
}

func TestOrchestrator_EmptyQuery(t *testing.T) {
	e := &fakeEngine{name: "a", results: hits("https://a.example")}
	resp := NewOrchestrator([]Engine{e}, Config{}, nil).Search(context.Background(), "   ", 5)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, e.callCount())
}

func TestOrchestrator_DemotesAfterConsecutiveFailuresAndRecovers(t *testing.T) {
	flaky := failing("flaky", Unreachable)
	backup := &fakeEngine{name: "backup", results: hits("https://backup.example")}
	o := NewOrchestrator([]Engine{flaky, backup}, Config{FailureThreshold: 2, BaseBackoff: time.Minute, MaxBackoff: time.Hour}, nil)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return now }

	o.Search(context.Background(), "q", 5)
	o.Search(context.Background(), "q", 5)
	require.Equal(t, 2, flaky.callCount())
	assert.Equal(t, []Engine{backup, flaky}, o.order(), "demoted engine moves behind healthy ones")

	// While demoted the healthy engine answers first
	o.Search(context.Background(), "q", 5)
	assert.Equal(t, 2, flaky.callCount())

	// After the backoff window the engine regains its priority and a success resets it
	now = now.Add(2 * time.Minute)
	flaky.err = nil
	flaky.results = hits("https://flaky.example")
	resp := o.Search(context.Background(), "q", 5)
	assert.Equal(t, "flaky", resp.EngineUsed)
	assert.Equal(t, 0, o.health.failures("flaky"))
	assert.False(t, o.health.demoted("flaky", now))
}

func TestOrchestrator_DemotedEnginesStillTriedLast(t *testing.T) {
	only := failing("only", Unreachable)
	o := NewOrchestrator([]Engine{only}, Config{FailureThreshold: 1}, nil)
	o.Search(context.Background(), "q", 5)
	o.Search(context.Background(), "q", 5)
	assert.Equal(t, 2, only.callCount())
}

func TestOrchestrator_CancelledContextDoesNotPenalizeEngines(t *testing.T) {
	slow := &fakeEngine{name: "slow", delay: time.Second}
	o := NewOrchestrator([]Engine{slow}, Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	resp := o.Search(ctx, "q", 5)

	assert.True(t, resp.Degraded)
	assert.Equal(t, 0, o.health.failures("slow"))
}

func TestHealthTable_BackoffIsExponentialAndCapped(t *testing.T) {
	h := newHealthTable(2, time.Second, 4*time.Second)
	now := time.Unix(0, 0)

	assert.False(t, h.recordFailure("e", now))
	assert.True(t, h.recordFailure("e", now))
	assert.True(t, h.demoted("e", now.Add(999*time.Millisecond)))
	assert.False(t, h.demoted("e", now.Add(time.Second)))

	h.recordFailure("e", now) // 2s
	assert.True(t, h.demoted("e", now.Add(1500*time.Millisecond)))
	h.recordFailure("e", now) // 4s
	h.recordFailure("e", now) // capped at 4s
	assert.True(t, h.demoted("e", now.Add(3900*time.Millisecond)))
	assert.False(t, h.demoted("e", now.Add(4*time.Second)))

	h.recordSuccess("e")
	assert.Equal(t, 0, h.failures("e"))
	assert.False(t, h.demoted("e", now))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, RateLimited, KindOf(&EngineError{Kind: RateLimited}))
	assert.Equal(t, Unreachable, KindOf(context.DeadlineExceeded))
	assert.Equal(t, InvalidResponse, KindOf(statusError("x", 400)))
	assert.Equal(t, RateLimited, KindOf(statusError("x", 429)))
	assert.Equal(t, Unreachable, KindOf(statusError("x", 503)))
	assert.Equal(t, Unreachable, KindOf(statusError("x", 401)))
}
