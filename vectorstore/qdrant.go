package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QdrantConfig configures the Qdrant-backed Store.
//
// Qdrant point IDs must be UUIDs; a stable UUID is derived from each entry
// id, and the original id travels in the payload.
type QdrantConfig struct {
	Host       string        `yaml:"host" json:"host"`
	Port       int           `yaml:"port" json:"port"`
	BaseURL    string        `yaml:"base_url" json:"base_url,omitempty"`
	APIKey     string        `yaml:"api_key" json:"api_key,omitempty"`
	Collection string        `yaml:"collection" json:"collection"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout,omitempty"`

	AutoCreateCollection bool   `yaml:"auto_create_collection" json:"auto_create_collection,omitempty"`
	Distance             string `yaml:"distance" json:"distance,omitempty"` // Cosine (default), Dot, Euclid
	VectorSize           int    `yaml:"vector_size" json:"vector_size,omitempty"`
}

// QdrantStore implements Store using Qdrant's REST API.
type QdrantStore struct {
	cfg     QdrantConfig
	baseURL string
	client  *http.Client
	logger  *zap.Logger

	ensureOnce sync.Once
	ensureErr  error
}

// NewQdrantStore creates a Qdrant-backed Store.
func NewQdrantStore(cfg QdrantConfig, logger *zap.Logger) *QdrantStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6333
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Distance == "" {
		cfg.Distance = "Cosine"
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	}

	return &QdrantStore{
		cfg:     cfg,
		baseURL: baseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With(zap.String("component", "qdrant_store")),
	}
}

var qdrantNamespace = uuid.MustParse("7c1f6e2a-9d45-4b8e-a1c3-2e5f8b9d0a47")

func qdrantPointID(id string) string {
	// Stable UUID derived from the entry id (supports any string input).
	return uuid.NewSHA1(qdrantNamespace, []byte(id)).String()
}

func (s *QdrantStore) ensureCollection(ctx context.Context, vectorSize int) error {
	if !s.cfg.AutoCreateCollection {
		return nil
	}
	if strings.TrimSpace(s.cfg.Collection) == "" {
		return fmt.Errorf("qdrant collection is required")
	}
	if vectorSize <= 0 {
		return fmt.Errorf("qdrant vector size must be > 0")
	}

	s.ensureOnce.Do(func() {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     vectorSize,
				"distance": s.cfg.Distance,
			},
		}

		endpoint := fmt.Sprintf("%s/collections/%s", s.baseURL, url.PathEscape(s.cfg.Collection))
		reqBody, _ := json.Marshal(body)
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(reqBody))
		if err != nil {
			s.ensureErr = err
			return
		}
		s.applyHeaders(req)

		resp, err := s.client.Do(req)
		if err != nil {
			s.ensureErr = err
			return
		}
		defer resp.Body.Close()

		// Qdrant returns 409 if the collection exists.
		if resp.StatusCode == http.StatusConflict {
			s.ensureErr = nil
			return
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(resp.Body)
			s.ensureErr = fmt.Errorf("qdrant create collection failed: status=%d body=%s", resp.StatusCode, string(raw))
			return
		}
		s.ensureErr = nil
	})

	return s.ensureErr
}

func (s *QdrantStore) applyHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(s.cfg.APIKey) != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}
}

func (s *QdrantStore) doJSON(ctx context.Context, method, path string, in any, out any) error {
	endpoint := s.baseURL + path

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	s.applyHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant request failed: method=%s path=%s status=%d body=%s", method, path, resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float64      `json:"vector"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Upsert stores or replaces an embedding under id.
func (s *QdrantStore) Upsert(ctx context.Context, id string, embedding []float64, metadata map[string]string, document string) error {
	if id == "" {
		return fmt.Errorf("entry id is required")
	}
	if len(embedding) == 0 {
		return fmt.Errorf("entry %s has no embedding", id)
	}
	if err := s.ensureCollection(ctx, len(embedding)); err != nil {
		return err
	}

	req := struct {
		Points []qdrantPoint `json:"points"`
	}{
		Points: []qdrantPoint{{
			ID:     qdrantPointID(id),
			Vector: embedding,
			Payload: map[string]any{
				"entry_id": id,
				"document": document,
				"metadata": metadata,
			},
		}},
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(s.cfg.Collection))
	var resp any
	if err := s.doJSON(ctx, http.MethodPut, path, req, &resp); err != nil {
		return err
	}

	s.logger.Debug("qdrant upsert completed", zap.String("id", id))
	return nil
}

type qdrantHit struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
	Vector  []float64      `json:"vector,omitempty"`
}

// Query returns the top-k nearest neighbors.
func (s *QdrantStore) Query(ctx context.Context, embedding []float64, k int) ([]Neighbor, error) {
	if strings.TrimSpace(s.cfg.Collection) == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}
	if k <= 0 {
		return []Neighbor{}, nil
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding is required")
	}

	req := struct {
		Vector      []float64 `json:"vector"`
		Limit       int       `json:"limit"`
		WithPayload bool      `json:"with_payload"`
	}{
		Vector:      embedding,
		Limit:       k,
		WithPayload: true,
	}

	var resp struct {
		Result []qdrantHit `json:"result"`
		Status string      `json:"status"`
	}

	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(s.cfg.Collection))
	if err := s.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}

	out := make([]Neighbor, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, hitToNeighbor(r))
	}
	return out, nil
}

// Get returns entries whose payload metadata matches every filter pair.
func (s *QdrantStore) Get(ctx context.Context, filter map[string]string) ([]Neighbor, error) {
	if strings.TrimSpace(s.cfg.Collection) == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}

	must := make([]map[string]any, 0, len(filter))
	for k, v := range filter {
		must = append(must, map[string]any{
			"key":   "metadata." + k,
			"match": map[string]any{"value": v},
		})
	}

	req := map[string]any{
		"filter":       map[string]any{"must": must},
		"limit":        1000,
		"with_payload": true,
		"with_vector":  true,
	}

	var resp struct {
		Result struct {
			Points []qdrantHit `json:"points"`
		} `json:"result"`
	}

	path := fmt.Sprintf("/collections/%s/points/scroll", url.PathEscape(s.cfg.Collection))
	if err := s.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}

	out := make([]Neighbor, 0, len(resp.Result.Points))
	for _, r := range resp.Result.Points {
		n := hitToNeighbor(r)
		n.Score = 1.0
		out = append(out, n)
	}
	return out, nil
}

func hitToNeighbor(r qdrantHit) Neighbor {
	n := Neighbor{Score: r.Score, Embedding: r.Vector}
	if r.Payload != nil {
		if v, ok := r.Payload["entry_id"].(string); ok {
			n.ID = v
		}
		if v, ok := r.Payload["document"].(string); ok {
			n.Document = v
		}
		if m, ok := r.Payload["metadata"].(map[string]any); ok {
			n.Metadata = make(map[string]string, len(m))
			for mk, mv := range m {
				if sv, ok := mv.(string); ok {
					n.Metadata[mk] = sv
				}
			}
		}
	}
	if n.ID == "" {
		n.ID = fmt.Sprint(r.ID)
	}
	return n
}
