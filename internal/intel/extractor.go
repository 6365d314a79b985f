// Package intel gathers public business intelligence about a customer and
// structures it into categorized facts.
package intel

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/pitch-agent/internal/fetch"
	"github.com/jonathan/pitch-agent/internal/llm"
	"github.com/jonathan/pitch-agent/internal/logging"
	"github.com/jonathan/pitch-agent/internal/metrics"
	"github.com/jonathan/pitch-agent/internal/search"
	"github.com/jonathan/pitch-agent/internal/types"
	"github.com/jonathan/pitch-agent/internal/validation"
)

// Defaults for Options.
const (
	DefaultResultsPerQuery = 5
	DefaultMaxFacts        = 12
	DefaultMaxSnippets     = 12
	DefaultConcurrency     = 4
	snippetChars           = 500
)

// Subject identifies who to research.
type Subject struct {
	Customer string
	Industry string
	Focus    string
	Website  string
}

// Options tunes extraction.
type Options struct {
	ResultsPerQuery int
	MaxFacts        int
	MaxSnippets     int
	Concurrency     int
	// Site, when set, scrapes the customer's own website for evidence.
	Site *fetch.SiteScraper
}

func (o Options) withDefaults() Options {
	if o.ResultsPerQuery <= 0 {
		o.ResultsPerQuery = DefaultResultsPerQuery
	}
	if o.MaxFacts <= 0 {
		o.MaxFacts = DefaultMaxFacts
	}
	if o.MaxSnippets <= 0 {
		o.MaxSnippets = DefaultMaxSnippets
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}

// Extractor builds IntelligenceRecords.
type Extractor struct {
	search search.Searcher
	llm    llm.Client
	opts   Options
	logger *zap.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(searcher search.Searcher, client llm.Client, opts Options, logger *zap.Logger) *Extractor {
	return &Extractor{
		search: searcher,
		llm:    client,
		opts:   opts.withDefaults(),
		logger: logging.OrNop(logger).Named("intel"),
	}
}

type categoryOutcome struct {
	facts    []types.Fact
	degraded bool
}

// Extract researches subject and returns its intelligence record. seed results
// (for example the classifier's evidence) join every category's evidence.
// Extract never fails; categories that yield nothing are simply absent.
func (e *Extractor) Extract(ctx context.Context, subject Subject, seed []types.SearchResult) *types.IntelligenceRecord {
	record := types.NewIntelligenceRecord(strings.TrimSpace(subject.Customer))
	record.Industry = subject.Industry
	if record.Customer == "" {
		return record
	}

	shared := append([]types.SearchResult(nil), seed...)
	if e.opts.Site != nil && strings.TrimSpace(subject.Website) != "" {
		pages := e.opts.Site.Scrape(ctx, subject.Website)
		e.logger.Debug("scraped company website",
			zap.String("website", subject.Website), zap.Int("pages", len(pages)))
		shared = append(shared, pages...)
	}

	outcomes := make([]categoryOutcome, len(types.AllCategories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, category := range types.AllCategories {
		g.Go(func() error {
			outcomes[i] = e.extractCategory(gctx, category, subject, shared)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	for i, category := range types.AllCategories {
		out := outcomes[i]
		if out.degraded {
			record.Degraded = true
		}
		if len(out.facts) == 0 {
			continue
		}
		record.Categories[category] = out.facts
		for _, f := range out.facts {
			if f.IsConfirmed() && !seen[*f.Evidence] {
				seen[*f.Evidence] = true
				record.Sources = append(record.Sources, *f.Evidence)
			}
		}
	}
	record.Recompute()

	e.logger.Info("intelligence extracted",
		zap.String("customer", record.Customer),
		zap.Int("categories", len(record.Categories)),
		zap.Float64("confidence", record.ConfidenceScore),
		zap.Bool("degraded", record.Degraded))
	return record
}

func (e *Extractor) extractCategory(ctx context.Context, category types.Category, subject Subject, shared []types.SearchResult) categoryOutcome {
	var (
		out      categoryOutcome
		evidence []types.SearchResult
	)
	for _, q := range QueriesFor(category, subject.Customer, subject.Industry, subject.Focus) {
		if ctx.Err() != nil {
			break
		}
		resp := e.search.Search(ctx, q, e.opts.ResultsPerQuery)
		if resp.Degraded {
			out.degraded = true
		}
		evidence = append(evidence, resp.Results...)
	}
	evidence = search.Dedupe(append(evidence, shared...))
	if len(evidence) == 0 || e.llm == nil {
		return out
	}
	search.SortByPriority(evidence)
	if len(evidence) > e.opts.MaxSnippets {
		evidence = evidence[:e.opts.MaxSnippets]
	}

	prompt := llm.BuildExtractionPrompt(
		llm.CategoryFactsSchema(string(category), categoryGuidance[category], e.opts.MaxFacts),
		"Company: "+subject.Customer+"\n\n"+validation.SnippetBlock(evidence, snippetChars, e.logger),
	)
	raw, err := e.llm.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err == nil {
		var parsed []rawFact
		parsed, err = parseFacts(llm.CleanJSONBlock(raw))
		if err == nil {
			facts := ResolveConflicts(normalizeFacts(parsed, evidence))
			if len(facts) > e.opts.MaxFacts {
				facts = facts[:e.opts.MaxFacts]
			}
			out.facts = facts
			return out
		}
	}

	metrics.GenerationFailures.WithLabelValues("extract").Inc()
	e.logger.Warn("category extraction failed",
		zap.String("customer", subject.Customer),
		zap.String("category", string(category)),
		zap.Error(err))
	return out
}
