package portfolio

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/jonathan/pitch-agent/internal/embedding"
	"github.com/jonathan/pitch-agent/internal/logging"
	"github.com/jonathan/pitch-agent/internal/metrics"
	"github.com/jonathan/pitch-agent/internal/types"
)

// Corpus is the loaded portfolio with one embedding per entry. It is built
// once and read concurrently afterwards; nothing mutates it.
type Corpus struct {
	entries []types.PortfolioEntry
	vectors [][]float32
	hash    string
	model   string
}

// NewCorpus assembles a corpus from entries and their vectors. vectors may be
// nil or shorter than entries; missing vectors are empty.
func NewCorpus(entries []types.PortfolioEntry, vectors [][]float32, model string) *Corpus {
	c := &Corpus{
		entries: append([]types.PortfolioEntry(nil), entries...),
		vectors: make([][]float32, len(entries)),
		hash:    Hash(entries),
		model:   model,
	}
	copy(c.vectors, vectors)
	return c
}

// Len returns the number of entries.
func (c *Corpus) Len() int { return len(c.entries) }

// Entry returns entry i. Callers must not modify it.
func (c *Corpus) Entry(i int) *types.PortfolioEntry { return &c.entries[i] }

// Vector returns the embedding of entry i, empty when unavailable.
func (c *Corpus) Vector(i int) []float32 { return c.vectors[i] }

// Hash identifies the corpus content.
func (c *Corpus) Hash() string { return c.hash }

// Model names the embedding engine the vectors came from.
func (c *Corpus) Model() string { return c.model }

// Embedded counts entries that have a vector.
func (c *Corpus) Embedded() int {
	n := 0
	for _, v := range c.vectors {
		if len(v) > 0 {
			n++
		}
	}
	return n
}

// Hash returns a stable content hash of entries.
func Hash(entries []types.PortfolioEntry) string {
	data, _ := json.Marshal(entries)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// EntryKey identifies an entry by the text that gets embedded.
func EntryKey(e *types.PortfolioEntry) string {
	sum := sha256.Sum256([]byte(e.EmbeddingText()))
	return hex.EncodeToString(sum[:16])
}

// VectorCache stores corpus embeddings between runs.
type VectorCache interface {
	Load(ctx context.Context, corpusHash, model string) (map[string][]float32, bool, error)
	Save(ctx context.Context, corpusHash, model string, vectors map[string][]float32) error
}

// Builder embeds entries into a Corpus, reusing cached vectors when the
// corpus content and model are unchanged.
type Builder struct {
	Engine    embedding.Engine
	Cache     VectorCache
	BatchSize int
	Logger    *zap.Logger
	// Refresh ignores cached vectors.
	Refresh bool
}

// Build returns the corpus for entries. Without an engine the corpus has no
// vectors and matching is filter-only.
func (b *Builder) Build(ctx context.Context, entries []types.PortfolioEntry) *Corpus {
	logger := logging.OrNop(b.Logger).Named("portfolio")
	defer func() { metrics.CorpusEntries.Set(float64(len(entries))) }()

	if b.Engine == nil {
		logger.Warn("no embedding engine, corpus is filter-only", zap.Int("entries", len(entries)))
		return NewCorpus(entries, nil, "")
	}
	model := b.Engine.Name()
	hash := Hash(entries)

	if b.Cache != nil && !b.Refresh {
		if vectors, ok := b.fromCache(ctx, hash, model, entries, logger); ok {
			logger.Info("loaded cached embeddings", zap.Int("entries", len(entries)), zap.String("model", model))
			return NewCorpus(entries, vectors, model)
		}
	}

	texts := make([]string, len(entries))
	for i := range entries {
		texts[i] = entries[i].EmbeddingText()
	}
	vectors, failed := embedding.EmbedAll(ctx, b.Engine, texts, b.BatchSize, logger)
	logger.Info("embedded portfolio",
		zap.Int("entries", len(entries)), zap.Int("failed", failed), zap.String("model", model))

	if b.Cache != nil && failed == 0 && len(entries) > 0 {
		keyed := make(map[string][]float32, len(entries))
		for i := range entries {
			keyed[EntryKey(&entries[i])] = vectors[i]
		}
		if err := b.Cache.Save(ctx, hash, model, keyed); err != nil {
			logger.Warn("failed to cache embeddings", zap.Error(err))
		}
	}
	return NewCorpus(entries, vectors, model)
}

func (b *Builder) fromCache(ctx context.Context, hash, model string, entries []types.PortfolioEntry, logger *zap.Logger) ([][]float32, bool) {
	keyed, ok, err := b.Cache.Load(ctx, hash, model)
	if err != nil {
		logger.Warn("failed to read embedding cache", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	vectors := make([][]float32, len(entries))
	for i := range entries {
		v, found := keyed[EntryKey(&entries[i])]
		if !found || len(v) == 0 {
			return nil, false
		}
		vectors[i] = v
	}
	return vectors, true
}
