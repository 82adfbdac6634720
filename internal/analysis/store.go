// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"pdf-toolbox/internal/structured"
)

// ScoredChunk is a retrieved chunk with its cosine similarity to the query
type ScoredChunk struct {
	structured.Chunk
	Score float64 `json:"score"`
}

// VectorStore indexes chunk embeddings per document
type VectorStore interface {
	Upsert(ctx context.Context, docID string, chunks []structured.Chunk, vectors [][]float32) error
	Search(ctx context.Context, docID string, query []float32, k int) ([]ScoredChunk, error)
	Close() error
}

// MemoryStore is a brute-force cosine index held in memory
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]memoryEntry
}

type memoryEntry struct {
	chunk structured.Chunk
	vec   []float32
	norm  float64
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]memoryEntry)}
}

// Upsert replaces the chunks stored for docID
func (m *MemoryStore) Upsert(_ context.Context, docID string, chunks []structured.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	entries := make([]memoryEntry, len(chunks))
	for i := range chunks {
		entries[i] = memoryEntry{chunk: chunks[i], vec: vectors[i], norm: norm(vectors[i])}
	}

	m.mu.Lock()
	m.docs[docID] = entries
	m.mu.Unlock()
	return nil
}

// Search returns the k chunks of docID most similar to query, best first
func (m *MemoryStore) Search(_ context.Context, docID string, query []float32, k int) ([]ScoredChunk, error) {
	m.mu.RLock()
	entries := m.docs[docID]
	m.mu.RUnlock()

	qn := norm(query)
	scored := make([]ScoredChunk, 0, len(entries))
	for _, e := range entries {
		scored = append(scored, ScoredChunk{Chunk: e.chunk, Score: cosine(query, qn, e.vec, e.norm)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// Close is a no-op
func (m *MemoryStore) Close() error { return nil }

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
