// Package llm defines the completion provider interface used for parameter
// extraction and candidate re-ranking, plus an OpenAI-compatible
// implementation.
package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// ErrorCode classifies provider failures.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "LLM_INVALID_REQUEST"
	ErrUnauthorized        ErrorCode = "LLM_UNAUTHORIZED"
	ErrRateLimited         ErrorCode = "LLM_RATE_LIMITED"
	ErrUpstreamTimeout     ErrorCode = "LLM_UPSTREAM_TIMEOUT"
	ErrUpstreamError       ErrorCode = "LLM_UPSTREAM_ERROR"
	ErrMalformedOutput     ErrorCode = "LLM_MALFORMED_OUTPUT"
	ErrProviderUnavailable ErrorCode = "LLM_PROVIDER_UNAVAILABLE"
)

// Error is a typed provider error. Callers treat every provider error as a
// degradation signal, never as fatal.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Provider   string    `json:"provider,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Provider is the unified completion interface. Implementations must be safe
// for concurrent use.
type Provider interface {
	// Complete returns a free-text completion for the prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteJSON returns a completion parsed as a JSON object. It fails
	// when the model output is not valid JSON; callers are expected to
	// degrade gracefully.
	CompleteJSON(ctx context.Context, prompt string) (map[string]any, error)

	// Name returns the provider's identifier.
	Name() string
}

// ParseJSONObject parses model output into a JSON object, tolerating an
// optional markdown code fence around the payload.
func ParseJSONObject(raw string) (map[string]any, error) {
	cleaned := StripCodeFence(raw)
	var out map[string]any
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, &Error{Code: ErrMalformedOutput, Message: "model output is not a JSON object: " + err.Error()}
	}
	return out, nil
}

// StripCodeFence removes a surrounding ``` or ```json fence, if present.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "JSON", or empty).
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
