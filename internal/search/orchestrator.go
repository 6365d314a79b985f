package search

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/pitch-agent/internal/logging"
	"github.com/jonathan/pitch-agent/internal/metrics"
	"github.com/jonathan/pitch-agent/internal/types"
)

// Default cascade settings.
const (
	DefaultEngineTimeout    = 15 * time.Second
	DefaultFailureThreshold = 2
	DefaultBaseBackoff      = 30 * time.Second
	DefaultMaxBackoff       = 5 * time.Minute
	DefaultMaxResults       = 8
	maxResultsCap           = 20
)

// Config tunes the cascade.
type Config struct {
	EngineTimeout    time.Duration
	FailureThreshold int
	BaseBackoff      time.Duration
	MaxBackoff       time.Duration
}

// DefaultConfig returns the default cascade settings.
func DefaultConfig() Config {
	return Config{
		EngineTimeout:    DefaultEngineTimeout,
		FailureThreshold: DefaultFailureThreshold,
		BaseBackoff:      DefaultBaseBackoff,
		MaxBackoff:       DefaultMaxBackoff,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.EngineTimeout <= 0 {
		c.EngineTimeout = d.EngineTimeout
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = d.BaseBackoff
	}
	if c.MaxBackoff < c.BaseBackoff {
		c.MaxBackoff = c.BaseBackoff
	}
	return c
}

// Response is the outcome of one cascade call.
type Response struct {
	Results    []types.SearchResult
	EngineUsed string
	Degraded   bool
}

// Searcher is the cascade contract consumed by the classifier, the extractor
// and the chat assistant.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) Response
}

// Orchestrator tries engines in priority order and returns the first success.
type Orchestrator struct {
	engines []Engine
	cfg     Config
	health  *healthTable
	logger  *zap.Logger
	now     func() time.Time
}

// NewOrchestrator builds a cascade over engines, highest priority first.
func NewOrchestrator(engines []Engine, cfg Config, logger *zap.Logger) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		engines: engines,
		cfg:     cfg,
		health:  newHealthTable(cfg.FailureThreshold, cfg.BaseBackoff, cfg.MaxBackoff),
		logger:  logging.OrNop(logger).Named("search"),
		now:     time.Now,
	}
}

// Engines returns the configured engine names in priority order.
func (o *Orchestrator) Engines() []string {
	names := make([]string, len(o.engines))
	for i, e := range o.engines {
		names[i] = e.Name()
	}
	return names
}

// order returns healthy engines first, then demoted ones, each group keeping
// its configured priority.
func (o *Orchestrator) order() []Engine {
	now := o.now()
	healthy := make([]Engine, 0, len(o.engines))
	var demoted []Engine
	for _, e := range o.engines {
		if o.health.demoted(e.Name(), now) {
			demoted = append(demoted, e)
			continue
		}
		healthy = append(healthy, e)
	}
	return append(healthy, demoted...)
}

// Search runs the cascade. It never returns an error: when every engine fails
// the response is empty and Degraded is set. An engine that answers with no
// results does not count as a failure but lets the next engine try.
func (o *Orchestrator) Search(ctx context.Context, query string, maxResults int) Response {
	query = strings.TrimSpace(query)
	if query == "" {
		return Response{}
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if maxResults > maxResultsCap {
		maxResults = maxResultsCap
	}

	failed := 0
	for _, engine := range o.order() {
		if ctx.Err() != nil {
			break
		}
		name := engine.Name()

		results, err := o.call(ctx, engine, query, maxResults)
		if err != nil {
			// A cancelled request is not the engine's fault
			if ctx.Err() != nil {
				break
			}
			failed++
			metrics.SearchEngineCalls.WithLabelValues(name, metrics.OutcomeFailure).Inc()
			if o.health.recordFailure(name, o.now()) {
				metrics.SearchEngineDemoted.WithLabelValues(name).Set(1)
			}
			o.logger.Warn("engine failed",
				zap.String("engine", name),
				zap.String("kind", string(KindOf(err))),
				zap.String("query", logging.Truncate(query, 80)),
				zap.Error(err))
			continue
		}

		o.health.recordSuccess(name)
		metrics.SearchEngineDemoted.WithLabelValues(name).Set(0)

		results = Dedupe(results)
		if len(results) == 0 {
			metrics.SearchEngineCalls.WithLabelValues(name, metrics.OutcomeSkipped).Inc()
			o.logger.Debug("engine returned no results", zap.String("engine", name), zap.String("query", query))
			continue
		}
		metrics.SearchEngineCalls.WithLabelValues(name, metrics.OutcomeSuccess).Inc()

		if len(results) > maxResults {
			results = results[:maxResults]
		}
		for i := range results {
			results[i].EngineUsed = name
			if results[i].Query == "" {
				results[i].Query = query
			}
		}
		o.logger.Debug("search succeeded",
			zap.String("engine", name),
			zap.Int("results", len(results)),
			zap.String("query", logging.Truncate(query, 80)))
		return Response{Results: results, EngineUsed: name}
	}

	degraded := len(o.engines) == 0 || failed == len(o.engines) || ctx.Err() != nil
	if degraded {
		metrics.SearchDegraded.Inc()
		o.logger.Warn("all search engines failed", zap.String("query", logging.Truncate(query, 80)))
	}
	return Response{Results: []types.SearchResult{}, Degraded: degraded}
}

// call runs one engine under the per-engine timeout.
func (o *Orchestrator) call(ctx context.Context, engine Engine, query string, maxResults int) ([]types.SearchResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.EngineTimeout)
	defer cancel()

	type outcome struct {
		results []types.SearchResult
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := engine.Search(callCtx, query, maxResults)
		done <- outcome{r, err}
	}()

	select {
	case out := <-done:
		return out.results, out.err
	case <-callCtx.Done():
		return nil, &EngineError{Engine: engine.Name(), Kind: Unreachable, Cause: callCtx.Err()}
	}
}
