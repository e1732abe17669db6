package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/apibridge/apibridge/llm"
)

// OpenAIConfig configures the OpenAI-compatible embedding provider.
type OpenAIConfig struct {
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	APIKey     string        `yaml:"api_key" json:"api_key"`
	Model      string        `yaml:"model" json:"model"`
	Dimensions int           `yaml:"dimensions" json:"dimensions"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`

	// MaxInputTokens bounds the text sent per request. Longer inputs are
	// truncated with the model tokenizer.
	MaxInputTokens int `yaml:"max_input_tokens" json:"max_input_tokens"`

	// RequestsPerSecond applies a client-side limiter. Zero disables it.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
}

// OpenAIProvider implements Provider against an embeddings REST endpoint.
type OpenAIProvider struct {
	cfg      OpenAIConfig
	client   *http.Client
	limiter  *rate.Limiter
	encoding *tiktoken.Tiktoken
	logger   *zap.Logger
}

// NewOpenAIProvider creates an embedding provider. Tokenizer setup failure
// is not fatal: truncation then falls back to a byte-length bound.
func NewOpenAIProvider(cfg OpenAIConfig, logger *zap.Logger) *OpenAIProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 1536
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxInputTokens == 0 {
		cfg.MaxInputTokens = 8191
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	log := logger.With(zap.String("component", "openai_embedding"))
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		log.Warn("tokenizer unavailable, falling back to byte truncation", zap.Error(err))
		encoding = nil
	}

	return &OpenAIProvider{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  limiter,
		encoding: encoding,
		logger:   log,
	}
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string { return "openai" }

// Dimensions returns the configured embedding dimensionality.
func (p *OpenAIProvider) Dimensions() int { return p.cfg.Dimensions }

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// EmbedQuery embeds a single text, truncating it to the token budget first.
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	if p.cfg.APIKey == "" {
		return nil, &llm.Error{Code: llm.ErrProviderUnavailable, Message: "embedding api key not configured", Provider: p.Name()}
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, &llm.Error{Code: llm.ErrUpstreamTimeout, Message: err.Error(), Provider: p.Name()}
		}
	}

	payload, err := json.Marshal(embeddingRequest{
		Model: p.cfg.Model,
		Input: []string{p.truncate(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadGateway,
			Provider:   p.Name(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    strings.TrimSpace(string(body)),
			HTTPStatus: resp.StatusCode,
			Provider:   p.Name(),
		}
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &llm.Error{Code: llm.ErrUpstreamError, Message: err.Error(), Provider: p.Name()}
	}
	if out.Error != nil {
		return nil, &llm.Error{Code: llm.ErrUpstreamError, Message: out.Error.Message, Provider: p.Name()}
	}
	if len(out.Data) == 0 {
		return nil, &llm.Error{Code: llm.ErrMalformedOutput, Message: "no embeddings returned", Provider: p.Name()}
	}
	return out.Data[0].Embedding, nil
}

func (p *OpenAIProvider) truncate(text string) string {
	if p.encoding == nil {
		// Rough bound: ~4 bytes per token for English text.
		max := p.cfg.MaxInputTokens * 4
		if len(text) > max {
			return text[:max]
		}
		return text
	}
	tokens := p.encoding.Encode(text, nil, nil)
	if len(tokens) <= p.cfg.MaxInputTokens {
		return text
	}
	return p.encoding.Decode(tokens[:p.cfg.MaxInputTokens])
}
