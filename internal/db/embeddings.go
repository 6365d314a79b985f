package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// EmbeddingStore caches portfolio embeddings in Postgres, keyed by the hash
// of the corpus they were computed from.
type EmbeddingStore struct {
	db *DB
}

// Embeddings returns the embedding store backed by db.
func (db *DB) Embeddings() *EmbeddingStore {
	return &EmbeddingStore{db: db}
}

// Load returns the vectors stored for corpusHash and model, keyed by entry.
// ok is false when nothing is stored.
func (s *EmbeddingStore) Load(ctx context.Context, corpusHash, model string) (vectors map[string][]float32, ok bool, err error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT entry_key, vector FROM portfolio_embeddings WHERE corpus_hash = $1 AND model = $2`,
		corpusHash, model,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load embeddings: %w", err)
	}
	defer rows.Close()

	vectors = make(map[string][]float32)
	for rows.Next() {
		var key string
		var vec []float32
		if err := rows.Scan(&key, &vec); err != nil {
			return nil, false, fmt.Errorf("failed to scan embedding: %w", err)
		}
		vectors[key] = vec
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read embeddings: %w", err)
	}
	return vectors, len(vectors) > 0, nil
}

// Save replaces the vectors stored for corpusHash. Empty vectors are skipped.
func (s *EmbeddingStore) Save(ctx context.Context, corpusHash, model string, vectors map[string][]float32) error {
	return pgx.BeginFunc(ctx, s.db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM portfolio_embeddings WHERE corpus_hash = $1`, corpusHash); err != nil {
			return fmt.Errorf("failed to clear embeddings: %w", err)
		}
		batch := &pgx.Batch{}
		for key, vec := range vectors {
			if len(vec) == 0 {
				continue
			}
			batch.Queue(
				`INSERT INTO portfolio_embeddings (corpus_hash, entry_key, model, vector) VALUES ($1, $2, $3, $4)`,
				corpusHash, key, model, vec,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to store embeddings: %w", err)
		}
		return nil
	})
}
