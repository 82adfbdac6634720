// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"pdf-toolbox/internal/llm"
)

const embedBatchSize = 32

// EmbeddingCache stores embeddings in SQLite keyed by model and text
type EmbeddingCache struct {
	db *sql.DB
}

// OpenEmbeddingCache opens (creating if needed) the cache database at path
func OpenEmbeddingCache(path string) (*EmbeddingCache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	const schema = `CREATE TABLE IF NOT EXISTS embeddings (
		key        TEXT PRIMARY KEY,
		model      TEXT NOT NULL,
		dims       INTEGER NOT NULL,
		vector     BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create embedding cache schema: %w", err)
	}
	return &EmbeddingCache{db: db}, nil
}

// Close closes the database
func (c *EmbeddingCache) Close() error {
	return c.db.Close()
}

// CacheKey is sha256(model NUL text) in hex
func CacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached vector, or nil when absent
func (c *EmbeddingCache) Get(ctx context.Context, model, text string) ([]float32, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT vector FROM embeddings WHERE key = ?`, CacheKey(model, text)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding cache: %w", err)
	}
	return decodeVector(blob), nil
}

// Put stores a vector
func (c *EmbeddingCache) Put(ctx context.Context, model, text string, vec []float32) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (key, model, dims, vector) VALUES (?, ?, ?, ?)`,
		CacheKey(model, text), model, len(vec), encodeVector(vec))
	if err != nil {
		return fmt.Errorf("failed to write embedding cache: %w", err)
	}
	return nil
}

// Count returns the number of cached vectors
func (c *EmbeddingCache) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&n)
	return n, err
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}

// CachedEmbedder consults the cache before calling the remote embedder and
// sends misses in batches.
type CachedEmbedder struct {
	inner llm.Embedder
	cache *EmbeddingCache
}

// NewCachedEmbedder wraps inner. A nil cache passes every request through.
func NewCachedEmbedder(inner llm.Embedder, cache *EmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

// Embed implements llm.Embedder
func (e *CachedEmbedder) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	var missing []int

	for i, text := range inputs {
		if e.cache != nil {
			vec, err := e.cache.Get(ctx, model, text)
			if err != nil {
				return nil, err
			}
			if vec != nil {
				out[i] = vec
				continue
			}
		}
		missing = append(missing, i)
	}

	for start := 0; start < len(missing); start += embedBatchSize {
		end := min(start+embedBatchSize, len(missing))
		batch := make([]string, 0, end-start)
		for _, idx := range missing[start:end] {
			batch = append(batch, inputs[idx])
		}

		vecs, err := e.inner.Embed(ctx, model, batch)
		if err != nil {
			return nil, err
		}
		for j, idx := range missing[start:end] {
			out[idx] = vecs[j]
			if e.cache != nil {
				if err := e.cache.Put(ctx, model, inputs[idx], vecs[j]); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}
