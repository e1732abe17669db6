package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.Handler) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIProvider(OpenAIConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
	}, nil)
}

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

func TestOpenAICompleteRequestShape(t *testing.T) {
	var captured chatRequest
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(chatReply("hello back")))
	}))

	got, err := p.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello back", got)

	assert.Equal(t, "gpt-4o-mini", captured.Model)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, "hello", captured.Messages[0].Content)
}

func TestOpenAICompleteJSONStripsFence(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply("```json\n{\"petId\": 5}\n```")))
	}))

	got, err := p.CompleteJSON(context.Background(), "extract")
	require.NoError(t, err)
	assert.Equal(t, float64(5), got["petId"])
}

func TestOpenAIMissingAPIKey(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{}, nil)

	_, err := p.Complete(context.Background(), "hello")
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ErrProviderUnavailable, perr.Code)
}

func TestOpenAIErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		code   ErrorCode
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusBadRequest, ErrInvalidRequest},
		{http.StatusGatewayTimeout, ErrUpstreamTimeout},
		{http.StatusInternalServerError, ErrUpstreamError},
	}
	for _, tt := range tests {
		p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream says no", tt.status)
		}))

		_, err := p.Complete(context.Background(), "hello")
		var perr *Error
		require.True(t, errors.As(err, &perr), "status %d", tt.status)
		assert.Equal(t, tt.code, perr.Code, "status %d", tt.status)
		assert.Equal(t, tt.status, perr.HTTPStatus)
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))

	_, err := p.Complete(context.Background(), "hello")
	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ErrMalformedOutput, perr.Code)
}

func TestOpenAIAPIErrorBody(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"message": "model overloaded", "type": "server_error"}}`))
	}))

	_, err := p.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}
