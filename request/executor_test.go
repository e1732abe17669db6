package request

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPExecutorRoundTrip(t *testing.T) {
	var gotMethod, gotPath, gotBody, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.RequestURI()
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":10}`))
	}))
	defer srv.Close()

	exec := NewHTTPExecutor(HTTPExecutorConfig{Timeout: 5 * time.Second}, nil)
	result, err := exec.Execute(context.Background(), &Description{
		Method: "POST",
		URL:    srv.URL + "/pet",
		Headers: map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
		},
		Body: []byte(`{"name":"Rex"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, 201, result.Status)
	assert.Equal(t, `{"id":10}`, result.Body)
	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "/pet", gotPath)
	assert.Equal(t, `{"name":"Rex"}`, gotBody)
	assert.Equal(t, "application/json", gotContentType)
}

func TestHTTPExecutorNonSuccessStatusIsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	exec := NewHTTPExecutor(HTTPExecutorConfig{}, nil)
	result, err := exec.Execute(context.Background(), &Description{
		Method:  "GET",
		URL:     srv.URL + "/pet/999",
		Headers: map[string]string{"Accept": "application/json"},
	})
	require.NoError(t, err)
	assert.Equal(t, 404, result.Status)
	assert.Contains(t, result.Body, "nope")
}

func TestHTTPExecutorUnreachableHostErrors(t *testing.T) {
	exec := NewHTTPExecutor(HTTPExecutorConfig{Timeout: time.Second}, nil)
	_, err := exec.Execute(context.Background(), &Description{
		Method: "GET",
		URL:    "http://127.0.0.1:1/unreachable",
	})
	require.Error(t, err)
}

func TestHTTPExecutorTruncatesLargeResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strings.Repeat("x", 100))
	}))
	defer srv.Close()

	exec := NewHTTPExecutor(HTTPExecutorConfig{MaxResponseBytes: 10}, nil)
	result, err := exec.Execute(context.Background(), &Description{
		Method: "GET",
		URL:    srv.URL,
	})
	require.NoError(t, err)
	assert.Len(t, result.Body, 10)
}
