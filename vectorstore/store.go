// Package vectorstore provides embedding storage and nearest-neighbor
// lookup. The matcher uses it to persist tool embeddings keyed by content
// hash, so unchanged tools keep their embeddings across restarts.
package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Neighbor is one ranked result of a similarity query. Get also populates
// Embedding so callers can recover stored vectors.
type Neighbor struct {
	ID        string            `json:"id"`
	Score     float64           `json:"score"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Document  string            `json:"document,omitempty"`
	Embedding []float64         `json:"embedding,omitempty"`
}

// Store is the vector database interface consumed by the matcher. Indexing
// internals belong to the implementation.
type Store interface {
	// Upsert stores or replaces an embedding under id.
	Upsert(ctx context.Context, id string, embedding []float64, metadata map[string]string, document string) error

	// Query returns up to k nearest neighbors with similarity scores,
	// best first.
	Query(ctx context.Context, embedding []float64, k int) ([]Neighbor, error)

	// Get returns entries whose metadata matches every key/value in filter.
	Get(ctx context.Context, filter map[string]string) ([]Neighbor, error)
}

type memoryEntry struct {
	embedding []float64
	metadata  map[string]string
	document  string
}

// MemoryStore is an in-memory Store for tests and small catalogs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	logger  *zap.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		logger:  logger,
	}
}

// Upsert stores or replaces an entry.
func (s *MemoryStore) Upsert(ctx context.Context, id string, embedding []float64, metadata map[string]string, document string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memoryEntry{embedding: embedding, metadata: metadata, document: document}
	return nil
}

// Query scans all entries and returns the top k by cosine similarity.
func (s *MemoryStore) Query(ctx context.Context, embedding []float64, k int) ([]Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Neighbor, 0, len(s.entries))
	for id, e := range s.entries {
		results = append(results, Neighbor{
			ID:       id,
			Score:    CosineSimilarity(embedding, e.embedding),
			Metadata: e.metadata,
			Document: e.document,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Get returns entries whose metadata contains all filter pairs.
func (s *MemoryStore) Get(ctx context.Context, filter map[string]string) ([]Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Neighbor
	for id, e := range s.entries {
		if !matchesFilter(e.metadata, filter) {
			continue
		}
		results = append(results, Neighbor{
			ID:        id,
			Score:     1.0,
			Metadata:  e.metadata,
			Document:  e.document,
			Embedding: e.embedding,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

// Embedding returns the stored embedding for id, if present.
func (s *MemoryStore) Embedding(id string) ([]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.embedding, true
}

func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is empty, zero, or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
