package request

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Result is the outcome of one executed request.
type Result struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Executor performs a synthesized request. Exactly one attempt per call:
// retry policy, if any, belongs to the implementation behind this interface,
// never to the dialogue layer.
type Executor interface {
	Execute(ctx context.Context, desc *Description) (*Result, error)
}

// HTTPExecutorConfig configures the default executor.
type HTTPExecutorConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// MaxResponseBytes bounds how much of a response body is read.
	MaxResponseBytes int64 `yaml:"max_response_bytes" json:"max_response_bytes"`
}

// HTTPExecutor executes descriptions with a plain HTTP client.
type HTTPExecutor struct {
	client *http.Client
	cfg    HTTPExecutorConfig
	logger *zap.Logger
}

// NewHTTPExecutor creates the default executor.
func NewHTTPExecutor(cfg HTTPExecutorConfig, logger *zap.Logger) *HTTPExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxResponseBytes == 0 {
		cfg.MaxResponseBytes = 1 << 20
	}
	return &HTTPExecutor{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger.With(zap.String("component", "http_executor")),
	}
}

// Execute performs the request once. A non-2xx status is returned as a
// Result, not an error; errors mean the call itself failed.
func (e *HTTPExecutor) Execute(ctx context.Context, desc *Description) (*Result, error) {
	var body io.Reader
	if len(desc.Body) > 0 {
		body = bytes.NewReader(desc.Body)
	}

	req, err := http.NewRequestWithContext(ctx, desc.Method, desc.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range desc.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	e.logger.Debug("request executed",
		zap.String("method", desc.Method),
		zap.String("url", desc.URL),
		zap.Int("status", resp.StatusCode),
	)

	return &Result{Status: resp.StatusCode, Body: string(raw)}, nil
}
