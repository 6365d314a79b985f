package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileCache keeps corpus embeddings in a JSON file.
type FileCache struct {
	Path string
}

type cacheFile struct {
	CorpusHash string               `json:"corpus_hash"`
	Model      string               `json:"model"`
	Vectors    map[string][]float32 `json:"vectors"`
}

// Load implements VectorCache. A missing file or a file for another corpus or
// model is a miss, not an error.
func (c *FileCache) Load(_ context.Context, corpusHash, model string) (map[string][]float32, bool, error) {
	data, err := os.ReadFile(c.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read embedding cache: %w", err)
	}
	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false, fmt.Errorf("failed to parse embedding cache %s: %w", c.Path, err)
	}
	if f.CorpusHash != corpusHash || f.Model != model {
		return nil, false, nil
	}
	return f.Vectors, len(f.Vectors) > 0, nil
}

// Save implements VectorCache, replacing the file atomically.
func (c *FileCache) Save(_ context.Context, corpusHash, model string, vectors map[string][]float32) error {
	data, err := json.Marshal(cacheFile{CorpusHash: corpusHash, Model: model, Vectors: vectors})
	if err != nil {
		return fmt.Errorf("failed to encode embedding cache: %w", err)
	}
	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".embeddings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.Path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}
