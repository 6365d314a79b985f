// Package industry classifies a customer into an industry from web evidence.
package industry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/pitch-agent/internal/llm"
	"github.com/jonathan/pitch-agent/internal/logging"
	"github.com/jonathan/pitch-agent/internal/metrics"
	"github.com/jonathan/pitch-agent/internal/search"
	"github.com/jonathan/pitch-agent/internal/types"
	"github.com/jonathan/pitch-agent/internal/validation"
)

const (
	// DefaultTopN is how many snippets are shown to the model.
	DefaultTopN = 8
	// FallbackMaxConfidence caps the keyword fallback's confidence.
	FallbackMaxConfidence = 0.5

	resultsPerQuery = 6
	snippetChars    = 400
)

// Queries returns the classification queries for customer.
func Queries(customer string) []string {
	return []string{
		customer + " industry",
		customer + " company overview",
	}
}

// Evidence is the classification outcome together with the snippets it used,
// so later stages can reuse them.
type Evidence struct {
	Classification types.IndustryClassification
	Results        []types.SearchResult
	Degraded       bool
	UsedFallback   bool
}

// Classifier labels a customer with an industry.
type Classifier struct {
	search search.Searcher
	llm    llm.Client
	logger *zap.Logger
	topN   int
}

// NewClassifier creates a classifier. client may be nil, in which case only the
// keyword fallback is used.
func NewClassifier(searcher search.Searcher, client llm.Client, logger *zap.Logger) *Classifier {
	return &Classifier{
		search: searcher,
		llm:    client,
		logger: logging.OrNop(logger).Named("industry"),
		topN:   DefaultTopN,
	}
}

// Classify returns the industry of customer. It never fails: without evidence
// the answer is Unknown with confidence 0.
func (c *Classifier) Classify(ctx context.Context, customer string) types.IndustryClassification {
	return c.ClassifyWithEvidence(ctx, customer).Classification
}

// ClassifyWithEvidence classifies customer and returns the snippets used.
func (c *Classifier) ClassifyWithEvidence(ctx context.Context, customer string) *Evidence {
	customer = strings.TrimSpace(customer)
	ev := &Evidence{
		Classification: types.IndustryClassification{Industry: types.UnknownIndustry},
		Results:        []types.SearchResult{},
	}
	if customer == "" {
		return ev
	}

	ev.Results, ev.Degraded = c.gather(ctx, customer)
	if len(ev.Results) == 0 {
		c.logger.Info("no evidence for classification", zap.String("customer", customer))
		return ev
	}

	top := ev.Results
	if len(top) > c.topN {
		top = top[:c.topN]
	}

	if c.llm != nil {
		cls, err := c.classifyWithLLM(ctx, customer, top)
		if err == nil {
			ev.Classification = cls
			return ev
		}
		metrics.GenerationFailures.WithLabelValues("classify").Inc()
		c.logger.Warn("llm classification failed, using keyword fallback",
			zap.String("customer", customer), zap.Error(err))
	}

	ev.UsedFallback = true
	ev.Classification = ClassifyByKeywords(top)
	return ev
}

// gather runs the classification queries concurrently and merges the results
// in query order.
func (c *Classifier) gather(ctx context.Context, customer string) ([]types.SearchResult, bool) {
	queries := Queries(customer)
	responses := make([]search.Response, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			responses[i] = c.search.Search(gctx, q, resultsPerQuery)
			return nil
		})
	}
	_ = g.Wait()

	var merged []types.SearchResult
	degraded := true
	for _, r := range responses {
		if !r.Degraded {
			degraded = false
		}
		merged = append(merged, r.Results...)
	}
	return search.Dedupe(merged), degraded
}

type llmClassification struct {
	Industry   string   `json:"industry"`
	Confidence *float64 `json:"confidence"`
}

func (c *Classifier) classifyWithLLM(ctx context.Context, customer string, results []types.SearchResult) (types.IndustryClassification, error) {
	prompt := llm.BuildExtractionPrompt(
		llm.IndustrySchema(Taxonomy),
		"Company: "+customer+"\n\n"+validation.SnippetBlock(results, snippetChars, c.logger),
	)

	raw, err := c.llm.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return types.IndustryClassification{}, fmt.Errorf("generation failed: %w", err)
	}

	var parsed llmClassification
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(raw)), &parsed); err != nil {
		return types.IndustryClassification{}, fmt.Errorf("unparseable classification %q: %w", logging.Truncate(raw, 120), err)
	}
	if strings.TrimSpace(parsed.Industry) == "" || parsed.Confidence == nil {
		return types.IndustryClassification{}, fmt.Errorf("classification missing fields: %q", logging.Truncate(raw, 120))
	}

	label := Canonical(parsed.Industry)
	if label == "" {
		return types.IndustryClassification{Industry: types.UnknownIndustry, Confidence: 0}, nil
	}
	return types.IndustryClassification{
		Industry:   label,
		Confidence: types.ClampConfidence(*parsed.Confidence),
	}, nil
}

// ClassifyByKeywords matches snippets against the taxonomy keywords. The best
// scoring industry wins, ties going to taxonomy order. Confidence grows with
// the winner's share of all hits and never exceeds FallbackMaxConfidence.
func ClassifyByKeywords(results []types.SearchResult) types.IndustryClassification {
	var sb strings.Builder
	for _, r := range results {
		sb.WriteString(r.Title)
		sb.WriteString(" ")
		sb.WriteString(r.Snippet)
		sb.WriteString("\n")
	}
	scores := keywordScores(sb.String())

	best, bestScore, total := "", 0, 0
	for _, industry := range Taxonomy {
		s := scores[industry]
		total += s
		if s > bestScore {
			best, bestScore = industry, s
		}
	}
	if bestScore == 0 {
		return types.IndustryClassification{Industry: types.UnknownIndustry, Confidence: 0}
	}

	share := float64(bestScore) / float64(total)
	confidence := 0.1 + 0.4*share
	if confidence > FallbackMaxConfidence {
		confidence = FallbackMaxConfidence
	}
	return types.IndustryClassification{Industry: best, Confidence: confidence}
}
