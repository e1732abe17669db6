// Package mocks provides deterministic test doubles for the bridge's
// external collaborators.
package mocks

import (
	"context"
	"sync"

	"github.com/apibridge/apibridge/llm"
)

// MockProvider is a configurable llm.Provider. Responses are served FIFO;
// once the queue drains, calls return empty results.
type MockProvider struct {
	mu sync.Mutex

	completions []string
	jsonReplies []map[string]any
	err         error

	CompleteCalls     int
	CompleteJSONCalls int
	Prompts           []string
}

// NewMockProvider returns an empty provider; with nothing queued every call
// returns an empty result.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// WithCompletion queues a Complete response.
func (m *MockProvider) WithCompletion(text string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions = append(m.completions, text)
	return m
}

// WithJSON queues a CompleteJSON response.
func (m *MockProvider) WithJSON(obj map[string]any) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jsonReplies = append(m.jsonReplies, obj)
	return m
}

// WithError makes every call fail with err until cleared.
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Complete implements llm.Provider.
func (m *MockProvider) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.completions) == 0 {
		return "", nil
	}
	out := m.completions[0]
	m.completions = m.completions[1:]
	return out, nil
}

// CompleteJSON implements llm.Provider.
func (m *MockProvider) CompleteJSON(ctx context.Context, prompt string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteJSONCalls++
	m.Prompts = append(m.Prompts, prompt)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.jsonReplies) == 0 {
		return map[string]any{}, nil
	}
	out := m.jsonReplies[0]
	m.jsonReplies = m.jsonReplies[1:]
	return out, nil
}

// Name implements llm.Provider.
func (m *MockProvider) Name() string { return "mock" }

var _ llm.Provider = (*MockProvider)(nil)
