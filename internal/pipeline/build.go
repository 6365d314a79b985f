package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/pitch-agent/internal/config"
	"github.com/jonathan/pitch-agent/internal/db"
	"github.com/jonathan/pitch-agent/internal/embedding"
	"github.com/jonathan/pitch-agent/internal/fetch"
	"github.com/jonathan/pitch-agent/internal/industry"
	"github.com/jonathan/pitch-agent/internal/intel"
	"github.com/jonathan/pitch-agent/internal/llm"
	"github.com/jonathan/pitch-agent/internal/logging"
	"github.com/jonathan/pitch-agent/internal/matching"
	"github.com/jonathan/pitch-agent/internal/pitch"
	"github.com/jonathan/pitch-agent/internal/portfolio"
	"github.com/jonathan/pitch-agent/internal/search"
)

const browserRenderTimeout = 30 * time.Second

// BuildOptions select which parts of the runtime to construct.
type BuildOptions struct {
	// SkipCorpus leaves the matcher without a portfolio, for commands that
	// never rank.
	SkipCorpus bool
	// RefreshEmbeddings re-embeds the portfolio even when a cache matches.
	RefreshEmbeddings bool
}

// Runtime is a fully wired service and the shared resources behind it.
type Runtime struct {
	Service   *Service
	Search    *search.Orchestrator
	Corpus    *portfolio.Corpus
	Embedding embedding.Engine
	DB        *db.DB

	closers []func()
}

// Close releases clients and connections.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// Build wires the pipeline from configuration. A missing generation key is
// an error; an unreachable database or embedding provider only degrades.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions, logger *zap.Logger) (*Runtime, error) {
	logger = logging.OrNop(logger)
	rt := &Runtime{}

	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("llm.api_key (or GEMINI_API_KEY) is required")
	}
	client, err := llm.NewClient(ctx, cfg.LLMSettings(), cfg.LLM.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	rt.closers = append(rt.closers, func() { _ = client.Close() })

	if cfg.Database.URL != "" {
		database, err := db.Connect(ctx, cfg.Database.URL)
		if err == nil {
			err = database.Migrate(ctx)
			if err != nil {
				database.Close()
			}
		}
		if err != nil {
			logger.Warn("continuing without database persistence", zap.Error(err))
		} else {
			rt.DB = database
			rt.closers = append(rt.closers, database.Close)
		}
	}

	rt.Search = search.NewOrchestrator(Engines(ctx, cfg, logger), cfg.CascadeSettings(), logger)
	logger.Info("search cascade ready", zap.Strings("engines", rt.Search.Engines()))

	var render fetch.RenderFunc
	if cfg.Search.UseBrowser {
		render = fetch.ChromeRenderer(browserRenderTimeout)
	}

	var corpus *portfolio.Corpus
	if !opts.SkipCorpus {
		engine, err := embedding.NewEngine(ctx, cfg.Embedding, cfg.LLM.APIKey)
		if err != nil {
			logger.Warn("embedding engine unavailable, ranking by filters only", zap.Error(err))
		} else {
			rt.Embedding = engine
			if c, ok := engine.(io.Closer); ok {
				rt.closers = append(rt.closers, func() { _ = c.Close() })
			}
		}

		entries, err := portfolio.Load(cfg.Portfolio.Path)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to load portfolio: %w", err)
		}
		builder := &portfolio.Builder{
			Engine:    rt.Embedding,
			Cache:     vectorCache(cfg, rt.DB),
			BatchSize: embedding.DefaultBatchSize,
			Logger:    logger,
			Refresh:   opts.RefreshEmbeddings,
		}
		corpus = builder.Build(ctx, entries)
		rt.Corpus = corpus
	}

	var runs RunStore
	if rt.DB != nil {
		runs = rt.DB
	}
	rt.Service = New(Components{
		Classifier: industry.NewClassifier(rt.Search, client, logger),
		Extractor:  intel.NewExtractor(rt.Search, client, intel.Options{Site: fetch.NewSiteScraper(render, logger)}, logger),
		Matcher:    matching.NewMatcher(corpus, rt.Embedding, logger),
		Composer:   pitch.NewComposer(client, cfg.Firm, logger),
		Assistant:  pitch.NewAssistant(client, rt.Search, logger),
	}, Config{RequestTimeout: cfg.Server.RequestTimeout}, runs, logger)
	return rt, nil
}

// Engines builds the configured search engines in priority order. Engines
// without credentials are skipped.
func Engines(ctx context.Context, cfg *config.Config, logger *zap.Logger) []search.Engine {
	logger = logging.OrNop(logger)
	httpClient := &http.Client{}
	var engines []search.Engine
	for _, name := range cfg.Search.Engines {
		switch name {
		case config.EngineDuckDuckGo:
			engines = append(engines, search.NewDuckDuckGoEngine(httpClient))
		case config.EngineSerpAPI:
			if cfg.Search.SerpAPIKey == "" {
				logger.Info("serpapi key not set, engine disabled")
				continue
			}
			engines = append(engines, search.NewSerpAPIEngine(cfg.Search.SerpAPIKey, httpClient))
		case config.EngineGoogle:
			if cfg.Search.GoogleAPIKey == "" || cfg.Search.GoogleCX == "" {
				logger.Info("google search credentials not set, engine disabled")
				continue
			}
			g, err := search.NewGoogleEngine(ctx, cfg.Search.GoogleAPIKey, cfg.Search.GoogleCX)
			if err != nil {
				logger.Warn("google search engine disabled", zap.Error(err))
				continue
			}
			engines = append(engines, g)
		}
	}
	return engines
}

func vectorCache(cfg *config.Config, database *db.DB) portfolio.VectorCache {
	if database != nil {
		return database.Embeddings()
	}
	if cfg.Portfolio.CachePath != "" {
		return &portfolio.FileCache{Path: cfg.Portfolio.CachePath}
	}
	return nil
}
