package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQdrantTestStore(t *testing.T, handler http.Handler, mutate func(*QdrantConfig)) *QdrantStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := QdrantConfig{
		BaseURL:    srv.URL,
		Collection: "tools",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewQdrantStore(cfg, nil)
}

func TestQdrantUpsertRequestShape(t *testing.T) {
	var captured struct {
		method string
		path   string
		query  string
		body   map[string]any
	}

	store := newQdrantTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured.body))
		w.Write([]byte(`{"result":{"status":"acknowledged"},"status":"ok"}`))
	}), nil)

	err := store.Upsert(context.Background(), "addPet", []float64{0.1, 0.2},
		map[string]string{"content_hash": "abc"}, "Add a new pet")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, captured.method)
	assert.Equal(t, "/collections/tools/points", captured.path)
	assert.Equal(t, "wait=true", captured.query)

	points, ok := captured.body["points"].([]any)
	require.True(t, ok)
	require.Len(t, points, 1)
	point := points[0].(map[string]any)

	// The point id is a stable UUID derived from the entry id.
	assert.Equal(t, qdrantPointID("addPet"), point["id"])
	assert.Equal(t, []any{0.1, 0.2}, point["vector"])

	payload := point["payload"].(map[string]any)
	assert.Equal(t, "addPet", payload["entry_id"])
	assert.Equal(t, "Add a new pet", payload["document"])
	assert.Equal(t, map[string]any{"content_hash": "abc"}, payload["metadata"])
}

func TestQdrantUpsertValidation(t *testing.T) {
	store := NewQdrantStore(QdrantConfig{Collection: "tools"}, nil)

	err := store.Upsert(context.Background(), "", []float64{1}, nil, "")
	require.Error(t, err)

	err = store.Upsert(context.Background(), "a", nil, nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedding")
}

func TestQdrantQuery(t *testing.T) {
	store := newQdrantTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/collections/tools/points/search", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []any{1.0, 0.0}, req["vector"])
		assert.Equal(t, float64(2), req["limit"])
		assert.Equal(t, true, req["with_payload"])

		w.Write([]byte(`{
			"result": [
				{"id": "uuid-1", "score": 0.92, "payload": {"entry_id": "addPet", "document": "Add a pet", "metadata": {"tool_name": "addPet"}}},
				{"id": "uuid-2", "score": 0.41, "payload": {"entry_id": "getPetById"}}
			],
			"status": "ok"
		}`))
	}), nil)

	got, err := store.Query(context.Background(), []float64{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "addPet", got[0].ID)
	assert.InDelta(t, 0.92, got[0].Score, 1e-9)
	assert.Equal(t, "Add a pet", got[0].Document)
	assert.Equal(t, map[string]string{"tool_name": "addPet"}, got[0].Metadata)

	assert.Equal(t, "getPetById", got[1].ID)
	assert.InDelta(t, 0.41, got[1].Score, 1e-9)
}

func TestQdrantQueryZeroK(t *testing.T) {
	store := newQdrantTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for k <= 0")
	}), nil)

	got, err := store.Query(context.Background(), []float64{1}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQdrantGetScrollsWithFilter(t *testing.T) {
	store := newQdrantTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/tools/points/scroll", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, true, req["with_vector"])
		assert.Equal(t, true, req["with_payload"])

		filter := req["filter"].(map[string]any)
		must := filter["must"].([]any)
		require.Len(t, must, 1)
		cond := must[0].(map[string]any)
		assert.Equal(t, "metadata.content_hash", cond["key"])
		assert.Equal(t, map[string]any{"value": "abc"}, cond["match"])

		w.Write([]byte(`{
			"result": {
				"points": [
					{"id": "uuid-1", "score": 0, "vector": [0.1, 0.2],
					 "payload": {"entry_id": "addPet", "metadata": {"content_hash": "abc"}}}
				]
			}
		}`))
	}), nil)

	got, err := store.Get(context.Background(), map[string]string{"content_hash": "abc"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "addPet", got[0].ID)
	assert.Equal(t, []float64{0.1, 0.2}, got[0].Embedding)
	assert.Equal(t, 1.0, got[0].Score)
}

func TestQdrantAutoCreateCollectionTolerates409(t *testing.T) {
	var createCalls int
	store := newQdrantTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/tools" {
			createCalls++
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}), func(cfg *QdrantConfig) {
		cfg.AutoCreateCollection = true
	})

	require.NoError(t, store.Upsert(context.Background(), "a", []float64{1, 2}, nil, ""))
	require.NoError(t, store.Upsert(context.Background(), "b", []float64{3, 4}, nil, ""))

	// Collection creation is attempted once and the conflict is not an error.
	assert.Equal(t, 1, createCalls)
}

func TestQdrantAPIKeyHeader(t *testing.T) {
	store := newQdrantTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"result":[],"status":"ok"}`))
	}), func(cfg *QdrantConfig) {
		cfg.APIKey = "secret"
	})

	_, err := store.Query(context.Background(), []float64{1}, 1)
	require.NoError(t, err)
}

func TestQdrantErrorStatusSurfaces(t *testing.T) {
	store := newQdrantTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error":"boom"}}`, http.StatusInternalServerError)
	}), nil)

	_, err := store.Query(context.Background(), []float64{1}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=500")
}
