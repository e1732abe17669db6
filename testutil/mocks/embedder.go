package mocks

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/apibridge/apibridge/llm/embedding"
)

// MockEmbedder is a deterministic embedding.Provider: the vector for a given
// text is a pure function of its bytes, so identical texts always embed
// identically and distinct texts almost never collide.
type MockEmbedder struct {
	mu   sync.Mutex
	dims int
	err  error

	EmbedCalls int
	Texts      []string
}

// NewMockEmbedder returns an embedder producing vectors of dims dimensions.
func NewMockEmbedder(dims int) *MockEmbedder {
	if dims <= 0 {
		dims = 8
	}
	return &MockEmbedder{dims: dims}
}

// WithError makes every call fail with err until cleared.
func (m *MockEmbedder) WithError(err error) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// EmbedQuery implements embedding.Provider.
func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EmbedCalls++
	m.Texts = append(m.Texts, text)
	if m.err != nil {
		return nil, m.err
	}

	sum := sha256.Sum256([]byte(text))
	vec := make([]float64, m.dims)
	offset := 0
	for i := range vec {
		if offset+4 > len(sum) {
			// Rehash so dimensions past the digest length stay independent.
			sum = sha256.Sum256(sum[:])
			offset = 0
		}
		word := binary.BigEndian.Uint32(sum[offset:])
		offset += 4
		vec[i] = float64(word%2000)/1000.0 - 1.0
	}
	return vec, nil
}

// Name implements embedding.Provider.
func (m *MockEmbedder) Name() string { return "mock-embedder" }

// Dimensions implements embedding.Provider.
func (m *MockEmbedder) Dimensions() int { return m.dims }

var _ embedding.Provider = (*MockEmbedder)(nil)
