package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jonathan/pitch-agent/internal/db"
	"github.com/jonathan/pitch-agent/internal/industry"
	"github.com/jonathan/pitch-agent/internal/intel"
	"github.com/jonathan/pitch-agent/internal/llm"
	"github.com/jonathan/pitch-agent/internal/llm/llmtest"
	"github.com/jonathan/pitch-agent/internal/matching"
	"github.com/jonathan/pitch-agent/internal/pitch"
	"github.com/jonathan/pitch-agent/internal/portfolio"
	"github.com/jonathan/pitch-agent/internal/search/searchtest"
	"github.com/jonathan/pitch-agent/internal/types"
)

const pitchJSON = `{"short": "Acme can cut costs.", "long": "Business Context\nAcme is growing.", "sections": [{"title": "Business Context", "bullet_points": [{"summary": "Growth", "details": ["Acme is growing."]}]}]}`

type fixedEngine struct {
	vec   []float32
	err   error
	calls atomic.Int32
}

func (f *fixedEngine) Embed(context.Context, string) ([]float32, error) {
	f.calls.Add(1)
	return f.vec, f.err
}

func (f *fixedEngine) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

func (f *fixedEngine) Name() string { return "fixed" }

type recordedRun struct {
	operation string
	customer  string
	steps     []string
	status    string
	degraded  bool
}

type fakeRuns struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*recordedRun
}

func newFakeRuns() *fakeRuns { return &fakeRuns{runs: make(map[uuid.UUID]*recordedRun)} }

func (f *fakeRuns) CreateRun(_ context.Context, operation, customer string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.runs[id] = &recordedRun{operation: operation, customer: customer, status: db.RunStatusRunning}
	return id, nil
}

func (f *fakeRuns) SaveArtifact(_ context.Context, id uuid.UUID, step string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[id].steps = append(f.runs[id].steps, step)
	return nil
}

func (f *fakeRuns) CompleteRun(_ context.Context, id uuid.UUID, status string, degraded bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[id].status = status
	f.runs[id].degraded = degraded
	return nil
}

func (f *fakeRuns) only(t *testing.T) *recordedRun {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.runs, 1)
	for _, r := range f.runs {
		return r
	}
	return nil
}

// byTier answers each generation tier the way the real components expect.
func byTier(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	switch tier {
	case llm.TierLite:
		return `{"industry": "Retail", "confidence": 0.9}`, nil
	case llm.TierStandard:
		return `{"facts": []}`, nil
	default:
		return pitchJSON, nil
	}
}

type harness struct {
	svc      *Service
	mock     *llmtest.MockClient
	searcher *searchtest.FakeSearcher
	embedder *fixedEngine
	runs     *fakeRuns
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	h := &harness{
		mock: &llmtest.MockClient{GenerateJSONFunc: byTier, GenerateContentFunc: llmtest.Reply("Acme is expanding.")},
		searcher: &searchtest.FakeSearcher{Results: map[string][]types.SearchResult{
			"Acme": {{Title: "Acme Stores", URL: "https://acme.example/about", Snippet: "Acme is a retailer with 300 stores."}},
		}},
		embedder: &fixedEngine{vec: []float32{1, 0}},
		runs:     newFakeRuns(),
	}
	corpus := portfolio.NewCorpus([]types.PortfolioEntry{
		{ClientName: "Globex", Industry: "Retail", Technologies: "Snowflake"},
		{ClientName: "Initech", Industry: "Financial Services", Technologies: "Azure"},
	}, [][]float32{{1, 0}, {0, 1}}, "fixed")

	h.svc = New(Components{
		Classifier: industry.NewClassifier(h.searcher, h.mock, logger),
		Extractor:  intel.NewExtractor(h.searcher, h.mock, intel.Options{}, logger),
		Matcher:    matching.NewMatcher(corpus, h.embedder, logger),
		Composer:   pitch.NewComposer(h.mock, "Contoso", logger),
		Assistant:  pitch.NewAssistant(h.mock, h.searcher, logger),
	}, DefaultConfig(), h.runs, logger)
	return h
}

func TestClassify(t *testing.T) {
	h := newHarness(t)

	cls, err := h.svc.Classify(context.Background(), types.ClassifyRequest{Customer: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Retail", cls.Industry)
	assert.InDelta(t, 0.9, cls.Confidence, 1e-9)

	run := h.runs.only(t)
	assert.Equal(t, OpClassify, run.operation)
	assert.Equal(t, []string{db.StepClassification}, run.steps)
	assert.Equal(t, db.RunStatusCompleted, run.status)
}

func TestClassify_InvalidInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Classify(context.Background(), types.ClassifyRequest{})
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "customer", invalid.Field)
	assert.Empty(t, h.searcher.Queries())
}

func TestMatches(t *testing.T) {
	h := newHarness(t)
	var events []ProgressEvent

	out, err := h.svc.Matches(context.Background(), types.MatchRequest{Customer: "Acme"}, func(e ProgressEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)

	assert.Equal(t, "Retail", out.DetectedIndustry)
	assert.False(t, out.Degraded)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "Globex", out.Rows[0].Entry.ClientName)
	assert.Equal(t, matching.IndustryBoost, out.Rows[0].IndustryBoost, "detected industry is the default filter")
	require.NotNil(t, out.Intelligence)
	assert.Equal(t, "Retail", out.Intelligence.Industry)
	assert.NotEmpty(t, out.RunID)

	var steps []string
	for _, e := range events {
		steps = append(steps, e.Step)
		assert.Equal(t, out.RunID, e.RunID)
	}
	assert.Equal(t, []string{db.StepClassification, db.StepIntelligence, db.StepMatches}, steps)

	run := h.runs.only(t)
	assert.Equal(t, steps, run.steps)
	assert.Equal(t, db.RunStatusCompleted, run.status)
}

func TestMatches_ExplicitIndustryWins(t *testing.T) {
	h := newHarness(t)

	out, err := h.svc.Matches(context.Background(), types.MatchRequest{Customer: "Acme", Industry: "Financial Services"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Retail", out.DetectedIndustry)
	for _, r := range out.Rows {
		if r.Entry.ClientName == "Initech" {
			assert.Equal(t, matching.IndustryBoost, r.IndustryBoost)
		} else {
			assert.Zero(t, r.IndustryBoost)
		}
	}
}

func TestMatches_Limit(t *testing.T) {
	h := newHarness(t)

	one := 1
	out, err := h.svc.Matches(context.Background(), types.MatchRequest{Customer: "Acme", Limit: &one}, nil)
	require.NoError(t, err)
	assert.Len(t, out.Rows, 1)

	for _, bad := range []int{0, -3} {
		_, err := h.svc.Matches(context.Background(), types.MatchRequest{Customer: "Acme", Limit: &bad}, nil)
		var invalid *InvalidInputError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "limit", invalid.Field)
	}
}

func TestMatches_CancelledKeepsPartialIntelligence(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.svc.Matches(ctx, types.MatchRequest{Customer: "Acme"}, nil)
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, OpMatches, opErr.Operation)
	assert.NotNil(t, opErr.Partial)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, db.RunStatusFailed, h.runs.only(t).status)
}

func TestMatches_InvalidWebsite(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Matches(context.Background(), types.MatchRequest{Customer: "Acme", Website: "not a url"}, nil)
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "website", invalid.Field)
}

func TestBuildPitch(t *testing.T) {
	h := newHarness(t)
	rows := []types.MatchResult{{Entry: &types.PortfolioEntry{ClientName: "Globex", Industry: "Retail"}}}

	draft, err := h.svc.BuildPitch(context.Background(), types.PitchRequest{Customer: "Acme", SelectedRows: rows})
	require.NoError(t, err)
	assert.Equal(t, "Acme can cut costs.", draft.ShortSummary)
	assert.Equal(t, []string{db.StepPitch}, h.runs.only(t).steps)
}

func TestBuildPitch_RequiresRows(t *testing.T) {
	h := newHarness(t)

	for _, rows := range [][]types.MatchResult{nil, {{MatchScore: 50}}} {
		_, err := h.svc.BuildPitch(context.Background(), types.PitchRequest{Customer: "Acme", SelectedRows: rows})
		var invalid *InvalidInputError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "selected_rows", invalid.Field)
	}
	assert.Zero(t, h.mock.Calls())
}

func TestBuildPitch_GenerationFailure(t *testing.T) {
	h := newHarness(t)
	cause := errors.New("model overloaded")
	h.mock.GenerateJSONFunc = llmtest.Fail(cause)
	record := &types.IntelligenceRecord{Customer: "Acme", Degraded: true}
	rows := []types.MatchResult{{Entry: &types.PortfolioEntry{ClientName: "Globex"}}}

	_, err := h.svc.BuildPitch(context.Background(), types.PitchRequest{Customer: "Acme", SelectedRows: rows, IntelligenceData: record})

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Same(t, record, opErr.Partial)
	var genErr *pitch.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.True(t, genErr.Degraded)
	assert.ErrorIs(t, err, cause)

	run := h.runs.only(t)
	assert.Equal(t, db.RunStatusFailed, run.status)
	assert.True(t, run.degraded)
}

func TestRefine(t *testing.T) {
	h := newHarness(t)
	h.mock.GenerateContentFunc = llmtest.Reply(pitchJSON)

	draft, err := h.svc.Refine(context.Background(), types.RefineRequest{
		Customer:     "Acme",
		ShortPitch:   "Old short.",
		LongPitch:    "Business Context\nOld long.",
		Instructions: "Make it punchier",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme can cut costs.", draft.ShortSummary)
	assert.Contains(t, h.mock.Prompts()[0], "Make it punchier")
}

func TestRefine_RequiresDraft(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Refine(context.Background(), types.RefineRequest{Customer: "Acme", Instructions: "x"})
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "long_pitch", invalid.Field)
}

func TestChat(t *testing.T) {
	h := newHarness(t)

	reply, err := h.svc.Chat(context.Background(), types.ChatRequest{Customer: "Acme", Message: "What do they sell?"})
	require.NoError(t, err)
	assert.Equal(t, "Acme is expanding.", reply.Reply)

	_, err = h.svc.Chat(context.Background(), types.ChatRequest{Customer: "Acme"})
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "message", invalid.Field)
}

func TestChat_WhitespaceMessageIsInvalid(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Chat(context.Background(), types.ChatRequest{Customer: "Acme", Message: "   "})
	assert.True(t, IsInvalidInput(err))
}

func TestService_WithoutRunStore(t *testing.T) {
	h := newHarness(t)
	svc := New(h.svc.c, Config{}, nil, nil)

	out, err := svc.Matches(context.Background(), types.MatchRequest{Customer: "Acme"}, nil)
	require.NoError(t, err)
	assert.Empty(t, out.RunID)
	assert.Equal(t, DefaultRequestTimeout, svc.cfg.RequestTimeout)
}

func TestOperations_RejectBlankCustomer(t *testing.T) {
	rows := []types.MatchResult{{Entry: &types.PortfolioEntry{ClientName: "Globex"}}}
	ops := []struct {
		name string
		call func(s *Service) error
	}{
		{"classify", func(s *Service) error {
			_, err := s.Classify(context.Background(), types.ClassifyRequest{Customer: "   "})
			return err
		}},
		{"matches", func(s *Service) error {
			_, err := s.Matches(context.Background(), types.MatchRequest{Customer: " \t "}, nil)
			return err
		}},
		{"pitch", func(s *Service) error {
			_, err := s.BuildPitch(context.Background(), types.PitchRequest{Customer: "  ", SelectedRows: rows})
			return err
		}},
		{"refine", func(s *Service) error {
			_, err := s.Refine(context.Background(), types.RefineRequest{Customer: "\n", LongPitch: "Business Context\nA."})
			return err
		}},
		{"chat", func(s *Service) error {
			_, err := s.Chat(context.Background(), types.ChatRequest{Customer: "  ", Message: "What do they sell?"})
			return err
		}},
	}
	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			h := newHarness(t)

			err := op.call(h.svc)
			var invalid *InvalidInputError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, "customer", invalid.Field)
			assert.Equal(t, "is required", invalid.Message)

			assert.Empty(t, h.mock.Prompts())
			assert.Empty(t, h.searcher.Queries())
			assert.Zero(t, h.embedder.calls.Load())
			assert.Empty(t, h.runs.runs)
		})
	}
}

func TestMatches_SearchOutageRanksByFilters(t *testing.T) {
	h := newHarness(t)
	h.searcher.Results = nil
	h.searcher.Degraded = true
	h.embedder.err = errors.New("embedding service unreachable")

	out, err := h.svc.Matches(context.Background(), types.MatchRequest{
		Customer:   "Acme Robotics",
		Industry:   "Financial Services",
		Technology: "Azure",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, types.UnknownIndustry, out.DetectedIndustry)
	assert.Zero(t, out.IndustryConfidence)
	assert.Empty(t, out.Intelligence.PopulatedCategories())
	assert.Zero(t, out.Intelligence.ConfidenceScore)
	assert.True(t, out.Degraded)

	require.Len(t, out.Rows, 2)
	assert.Equal(t, "Initech", out.Rows[0].Entry.ClientName)
	assert.Zero(t, out.Rows[0].Similarity)
	assert.InDelta(t, matching.IndustryBoost+matching.TechnologyBoost, out.Rows[0].MatchScore, 1e-9)
	assert.Equal(t, "Globex", out.Rows[1].Entry.ClientName)
	assert.Zero(t, out.Rows[1].MatchScore)

	run := h.runs.only(t)
	assert.True(t, run.degraded)
}
