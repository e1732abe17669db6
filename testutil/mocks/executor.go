package mocks

import (
	"context"
	"sync"

	"github.com/apibridge/apibridge/request"
)

// MockExecutor records synthesized requests and returns a canned result.
type MockExecutor struct {
	mu sync.Mutex

	result *request.Result
	err    error

	Calls    int
	Received []*request.Description
}

// NewMockExecutor returns an executor answering 200 with an empty body.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{result: &request.Result{Status: 200, Body: "{}"}}
}

// WithResult sets the result returned by Execute.
func (m *MockExecutor) WithResult(status int, body string) *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = &request.Result{Status: status, Body: body}
	return m
}

// WithError makes Execute fail with err.
func (m *MockExecutor) WithError(err error) *MockExecutor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Execute implements request.Executor.
func (m *MockExecutor) Execute(ctx context.Context, desc *request.Description) (*request.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.Received = append(m.Received, desc)
	if m.err != nil {
		return nil, m.err
	}
	out := *m.result
	return &out, nil
}

var _ request.Executor = (*MockExecutor)(nil)
