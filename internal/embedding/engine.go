// Package embedding turns text into vectors for semantic matching.
package embedding

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/jonathan/pitch-agent/internal/logging"
	"github.com/jonathan/pitch-agent/internal/metrics"
)

// DefaultBatchSize is how many texts are embedded per provider call.
const DefaultBatchSize = 20

// Providers.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates the embedding of a single text
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch generates embeddings for several texts, in input order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Name identifies the provider and model
	Name() string
}

// Config selects and configures an engine.
type Config struct {
	Provider       string `koanf:"provider"`
	Model          string `koanf:"model"`
	OllamaEndpoint string `koanf:"ollama_endpoint"`
}

// DefaultConfig returns the default engine settings.
func DefaultConfig() Config {
	return Config{
		Provider:       ProviderGemini,
		Model:          DefaultGeminiModel,
		OllamaEndpoint: DefaultOllamaEndpoint,
	}
}

// NewEngine creates an engine for cfg. apiKey is only used by Gemini.
func NewEngine(ctx context.Context, cfg Config, apiKey string) (Engine, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiEngine(ctx, apiKey, cfg.Model)
	case ProviderOllama:
		return NewOllamaEngine(cfg.OllamaEndpoint, cfg.Model, nil), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q (use %q or %q)", cfg.Provider, ProviderGemini, ProviderOllama)
	}
}

// EmbedAll embeds texts in batches. A failed batch leaves empty vectors for
// its texts and is counted in failed; EmbedAll itself never fails. Callers
// treat an empty vector as having zero similarity to everything.
func EmbedAll(ctx context.Context, engine Engine, texts []string, batchSize int, logger *zap.Logger) (vectors [][]float32, failed int) {
	logger = logging.OrNop(logger)
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	vectors = make([][]float32, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batch, err := engine.EmbedBatch(ctx, texts[start:end])
		if err == nil && len(batch) != end-start {
			err = fmt.Errorf("provider returned %d embeddings for %d texts", len(batch), end-start)
		}
		if err != nil {
			failed += end - start
			metrics.EmbeddingFailures.Inc()
			logger.Warn("embedding batch failed",
				zap.String("engine", engine.Name()),
				zap.Int("start", start), zap.Int("size", end-start), zap.Error(err))
			continue
		}
		copy(vectors[start:end], batch)
	}
	return vectors, failed
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1. Empty or zero-magnitude vectors score 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dot, aMag, bMag float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		aMag += float64(a[i]) * float64(a[i])
		bMag += float64(b[i]) * float64(b[i])
	}
	if aMag == 0 || bMag == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag)), nil
}
