package portfolio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jonathan/pitch-agent/internal/types"
)

type countingEngine struct {
	batches int
	fail    bool
}

func (e *countingEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *countingEngine) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.batches++
	if e.fail {
		return nil, errors.New("unavailable")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (e *countingEngine) Name() string { return "counting" }

func sampleEntries() []types.PortfolioEntry {
	return []types.PortfolioEntry{
		{ClientName: "Globex", Industry: "Retail", Technologies: "AWS"},
		{ClientName: "Initech", Industry: "Financial Services", Technologies: "Azure"},
	}
}

func TestBuilder_EmbedsAndCaches(t *testing.T) {
	cache := &FileCache{Path: filepath.Join(t.TempDir(), "cache", "embeddings.json")}
	engine := &countingEngine{}
	b := &Builder{Engine: engine, Cache: cache, Logger: zaptest.NewLogger(t)}

	corpus := b.Build(context.Background(), sampleEntries())
	require.Equal(t, 2, corpus.Len())
	assert.Equal(t, 2, corpus.Embedded())
	assert.Equal(t, "counting", corpus.Model())
	assert.Equal(t, 1, engine.batches)

	again := b.Build(context.Background(), sampleEntries())
	assert.Equal(t, 1, engine.batches, "second build should hit the cache")
	assert.Equal(t, corpus.Vector(1), again.Vector(1))
	assert.Equal(t, corpus.Hash(), again.Hash())

	b.Refresh = true
	b.Build(context.Background(), sampleEntries())
	assert.Equal(t, 2, engine.batches)
}

func TestBuilder_ChangedCorpusMissesCache(t *testing.T) {
	cache := &FileCache{Path: filepath.Join(t.TempDir(), "embeddings.json")}
	engine := &countingEngine{}
	b := &Builder{Engine: engine, Cache: cache}

	b.Build(context.Background(), sampleEntries())
	changed := sampleEntries()
	changed[0].Technologies = "GCP"
	b.Build(context.Background(), changed)

	assert.Equal(t, 2, engine.batches)
}

func TestBuilder_FailedEmbeddingIsNotCached(t *testing.T) {
	cache := &FileCache{Path: filepath.Join(t.TempDir(), "embeddings.json")}
	b := &Builder{Engine: &countingEngine{fail: true}, Cache: cache}

	corpus := b.Build(context.Background(), sampleEntries())
	assert.Equal(t, 2, corpus.Len())
	assert.Zero(t, corpus.Embedded())
	assert.Empty(t, corpus.Vector(0))

	_, err := os.Stat(cache.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestBuilder_NoEngine(t *testing.T) {
	corpus := (&Builder{}).Build(context.Background(), sampleEntries())
	assert.Equal(t, 2, corpus.Len())
	assert.Zero(t, corpus.Embedded())
	assert.Equal(t, "Globex", corpus.Entry(0).ClientName)
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	cache := &FileCache{Path: filepath.Join(t.TempDir(), "embeddings.json")}

	_, ok, err := cache.Load(ctx, "h1", "m")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Save(ctx, "h1", "m", map[string][]float32{"k": {1, 2}}))

	vectors, ok, err := cache.Load(ctx, "h1", "m")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 2}, vectors["k"])

	_, ok, err = cache.Load(ctx, "h2", "m")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = cache.Load(ctx, "h1", "other-model")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(cache.Path, []byte("{"), 0o600))
	_, _, err = cache.Load(ctx, "h1", "m")
	assert.Error(t, err)
}

func TestHashAndEntryKey(t *testing.T) {
	a, b := sampleEntries(), sampleEntries()
	assert.Equal(t, Hash(a), Hash(b))
	b[1].Industry = "Banking"
	assert.NotEqual(t, Hash(a), Hash(b))
	assert.NotEqual(t, EntryKey(&a[0]), EntryKey(&a[1]))
	assert.Len(t, EntryKey(&a[0]), 32)
}
