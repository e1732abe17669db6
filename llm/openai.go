package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// OpenAIConfig configures the OpenAI-compatible chat provider.
type OpenAIConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	APIKey      string        `yaml:"api_key" json:"api_key"`
	Model       string        `yaml:"model" json:"model"`
	Temperature float32       `yaml:"temperature" json:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`

	// RequestsPerSecond applies a client-side limiter before each call.
	// Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
}

// OpenAIProvider implements Provider against any chat-completions
// compatible endpoint.
type OpenAIProvider struct {
	cfg     OpenAIConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewOpenAIProvider creates a chat provider.
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &OpenAIProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		logger:  logger.With(zap.String("component", "openai_provider")),
	}
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends one chat-completion request and returns the first choice.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if p.cfg.APIKey == "" {
		return "", &Error{Code: ErrProviderUnavailable, Message: "openai api key not configured", Provider: p.Name()}
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", &Error{Code: ErrUpstreamTimeout, Message: err.Error(), Provider: p.Name()}
		}
	}

	payload, err := json.Marshal(chatRequest{
		Model:       p.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &Error{
			Code:       ErrUpstreamError,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadGateway,
			Provider:   p.Name(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", mapHTTPError(resp.StatusCode, string(body), p.Name())
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &Error{Code: ErrUpstreamError, Message: err.Error(), Provider: p.Name()}
	}
	if out.Error != nil {
		return "", &Error{Code: ErrUpstreamError, Message: out.Error.Message, Provider: p.Name()}
	}
	if len(out.Choices) == 0 {
		return "", &Error{Code: ErrMalformedOutput, Message: "no choices returned", Provider: p.Name()}
	}
	return out.Choices[0].Message.Content, nil
}

// CompleteJSON completes and parses the output as a JSON object.
func (p *OpenAIProvider) CompleteJSON(ctx context.Context, prompt string) (map[string]any, error) {
	text, err := p.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParseJSONObject(text)
}

func mapHTTPError(status int, body, provider string) *Error {
	code := ErrUpstreamError
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = ErrUnauthorized
	case http.StatusTooManyRequests:
		code = ErrRateLimited
	case http.StatusBadRequest:
		code = ErrInvalidRequest
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		code = ErrUpstreamTimeout
	}
	msg := strings.TrimSpace(body)
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	return &Error{Code: code, Message: msg, HTTPStatus: status, Provider: provider}
}
