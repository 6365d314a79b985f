package industry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jonathan/pitch-agent/internal/llm/llmtest"
	"github.com/jonathan/pitch-agent/internal/search/searchtest"
	"github.com/jonathan/pitch-agent/internal/types"
)

func retailEvidence() map[string][]types.SearchResult {
	return map[string][]types.SearchResult{
		"industry": {
			{Title: "Acme Stores", URL: "https://acme.example/about", Snippet: "Acme is a retailer operating 400 stores and a growing e-commerce business."},
		},
		"overview": {
			{Title: "Acme overview", URL: "https://news.example/acme", Snippet: "The retail chain reported strong grocery sales."},
		},
	}
}

func TestClassify_UsesLLMLabel(t *testing.T) {
	searcher := &searchtest.FakeSearcher{Results: retailEvidence()}
	client := &llmtest.MockClient{GenerateJSONFunc: llmtest.Reply(`{"industry": "retail", "confidence": 0.92}`)}

	c := NewClassifier(searcher, client, zaptest.NewLogger(t))
	got := c.Classify(context.Background(), "Acme")

	assert.Equal(t, types.IndustryClassification{Industry: "Retail", Confidence: 0.92}, got)
	require.Equal(t, 1, client.Calls())
	prompt := client.Prompts()[0]
	assert.Contains(t, prompt, "Company: Acme")
	assert.Contains(t, prompt, "https://acme.example/about")
	assert.ElementsMatch(t, []string{"Acme industry", "Acme company overview"}, searcher.Queries())
}

func TestClassify_ClampsConfidence(t *testing.T) {
	searcher := &searchtest.FakeSearcher{Results: retailEvidence()}
	client := &llmtest.MockClient{GenerateJSONFunc: llmtest.Reply(`{"industry": "Retail", "confidence": 1.7}`)}

	got := NewClassifier(searcher, client, nil).Classify(context.Background(), "Acme")
	assert.Equal(t, 1.0, got.Confidence)
}

func TestClassify_UnknownLabelHasZeroConfidence(t *testing.T) {
	searcher := &searchtest.FakeSearcher{Results: retailEvidence()}
	client := &llmtest.MockClient{GenerateJSONFunc: llmtest.Reply(`{"industry": "Unknown", "confidence": 0.4}`)}

	got := NewClassifier(searcher, client, nil).Classify(context.Background(), "Acme")
	assert.Equal(t, types.IndustryClassification{Industry: types.UnknownIndustry, Confidence: 0}, got)
}

func TestClassify_NoEvidenceSkipsLLM(t *testing.T) {
	tests := []struct {
		name     string
		searcher *searchtest.FakeSearcher
	}{
		{"no hits", &searchtest.FakeSearcher{}},
		{"all engines failed", &searchtest.FakeSearcher{Degraded: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &llmtest.MockClient{GenerateJSONFunc: llmtest.Reply(`{"industry": "Retail", "confidence": 0.9}`)}
			ev := NewClassifier(tt.searcher, client, nil).ClassifyWithEvidence(context.Background(), "Nobody Inc")

			assert.Equal(t, types.UnknownIndustry, ev.Classification.Industry)
			assert.Zero(t, ev.Classification.Confidence)
			assert.Zero(t, client.Calls())
			assert.NotNil(t, ev.Results)
		})
	}
}

func TestClassify_EmptyCustomer(t *testing.T) {
	searcher := &searchtest.FakeSearcher{Results: retailEvidence()}
	got := NewClassifier(searcher, nil, nil).Classify(context.Background(), "   ")

	assert.Equal(t, types.UnknownIndustry, got.Industry)
	assert.Empty(t, searcher.Queries())
}

func TestClassify_FallsBackToKeywords(t *testing.T) {
	tests := []struct {
		name   string
		client *llmtest.MockClient
	}{
		{"generation error", &llmtest.MockClient{GenerateJSONFunc: llmtest.Fail(errors.New("quota"))}},
		{"unparseable output", &llmtest.MockClient{GenerateJSONFunc: llmtest.Reply("Retail, probably")}},
		{"missing confidence", &llmtest.MockClient{GenerateJSONFunc: llmtest.Reply(`{"industry": "Retail"}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &searchtest.FakeSearcher{Results: retailEvidence()}
			ev := NewClassifier(searcher, tt.client, nil).ClassifyWithEvidence(context.Background(), "Acme")

			assert.True(t, ev.UsedFallback)
			assert.Equal(t, "Retail", ev.Classification.Industry)
			assert.Greater(t, ev.Classification.Confidence, 0.0)
			assert.LessOrEqual(t, ev.Classification.Confidence, FallbackMaxConfidence)
		})
	}
}

func TestClassifyByKeywords(t *testing.T) {
	tests := []struct {
		name     string
		snippets []string
		want     string
		wantConf float64
	}{
		{"no hits", []string{"A company that does things."}, types.UnknownIndustry, 0},
		{"single industry", []string{"A leading insurer focused on underwriting."}, "Insurance", 0.5},
		{"tie goes to taxonomy order", []string{"A hospital chain and a bank."}, "Healthcare", 0.3},
		{"word boundaries", []string{"The gaslight district."}, types.UnknownIndustry, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var results []types.SearchResult
			for _, s := range tt.snippets {
				results = append(results, types.SearchResult{Snippet: s})
			}
			got := ClassifyByKeywords(results)
			assert.Equal(t, tt.want, got.Industry)
			assert.InDelta(t, tt.wantConf, got.Confidence, 1e-9)
		})
	}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"unknown", ""},
		{"Other", ""},
		{"financial services", "Financial Services"},
		{"Retail & Consumer", "Retail"},
		{"  Biomimetics  ", "Biomimetics"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.in))
		})
	}
}

func TestTaxonomyHasKeywords(t *testing.T) {
	for _, industry := range Taxonomy {
		assert.NotEmpty(t, taxonomyKeywords[industry], industry)
		assert.False(t, strings.Contains(industry, "  "))
	}
}
