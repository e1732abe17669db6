package match

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/apibridge/apibridge/catalog"
	"github.com/apibridge/apibridge/internal/metrics"
	"github.com/apibridge/apibridge/internal/sched"
	"github.com/apibridge/apibridge/llm"
	"github.com/apibridge/apibridge/llm/embedding"
	"github.com/apibridge/apibridge/vectorstore"
)

// Config configures the Ranker.
type Config struct {
	// Signal weights. They should sum to 1 so totals stay in [0,1].
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
	IntentWeight   float64 `yaml:"intent_weight" json:"intent_weight"`
	KeywordWeight  float64 `yaml:"keyword_weight" json:"keyword_weight"`
	PathWeight     float64 `yaml:"path_weight" json:"path_weight"`

	// DropThreshold excludes candidates scoring at or below this value.
	DropThreshold float64 `yaml:"drop_threshold" json:"drop_threshold"`

	// TopK bounds the candidate set passed to LLM selection.
	TopK int `yaml:"top_k" json:"top_k"`

	// MaxAlternatives bounds the alternatives attached to a MatchResult.
	MaxAlternatives int `yaml:"max_alternatives" json:"max_alternatives"`

	// UseLLM enables provider-assisted selection over the top candidates.
	UseLLM bool `yaml:"use_llm" json:"use_llm"`

	// EmbedConcurrency bounds parallel tool embedding during Initialize.
	EmbedConcurrency int `yaml:"embed_concurrency" json:"embed_concurrency"`

	CacheMaxSize       int           `yaml:"cache_max_size" json:"cache_max_size"`
	CacheTTL           time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	CacheSweepInterval time.Duration `yaml:"cache_sweep_interval" json:"cache_sweep_interval"`
}

// DefaultConfig returns the ranker defaults.
func DefaultConfig() Config {
	return Config{
		SemanticWeight:     0.5,
		IntentWeight:       0.25,
		KeywordWeight:      0.15,
		PathWeight:         0.10,
		DropThreshold:      0.1,
		TopK:               5,
		MaxAlternatives:    3,
		UseLLM:             true,
		EmbedConcurrency:   4,
		CacheMaxSize:       100,
		CacheTTL:           30 * time.Minute,
		CacheSweepInterval: 5 * time.Minute,
	}
}

// Deps are the ranker's collaborators. Embedder, LLM and Vectors are all
// optional: a missing or failing collaborator degrades its signal instead of
// failing the ranking pass.
type Deps struct {
	Embedder embedding.Provider
	LLM      llm.Provider
	Vectors  vectorstore.Store
	Metrics  *metrics.Collector
	Clock    sched.Clock
}

type toolEntry struct {
	tool      *catalog.Tool
	hash      string
	embedding []float64
}

// Ranker scores and ranks tools against utterances. Construct with
// NewRanker, feed it the current catalog with Initialize before matching,
// and call Shutdown when done to stop the cache sweep.
type Ranker struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger

	mu         sync.RWMutex
	entries    []*toolEntry
	index      *keywordIndex
	embeddings map[string][]float64 // content hash -> embedding

	cache     *queryCache
	sweepTask *sched.Task
}

// NewRanker creates a ranker and starts its cache sweep.
func NewRanker(cfg Config, deps Deps, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = sched.RealClock{}
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MaxAlternatives <= 0 {
		cfg.MaxAlternatives = 3
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = 4
	}

	r := &Ranker{
		cfg:        cfg,
		deps:       deps,
		logger:     logger.With(zap.String("component", "ranker")),
		embeddings: make(map[string][]float64),
		cache:      newQueryCache(cfg.CacheMaxSize, cfg.CacheTTL, deps.Clock),
	}

	r.sweepTask = sched.NewTask("query_cache_sweep", cfg.CacheSweepInterval, func() {
		evicted := r.cache.sweep()
		if evicted > 0 {
			r.logger.Debug("query cache swept", zap.Int("evicted", evicted))
			if r.deps.Metrics != nil {
				r.deps.Metrics.CacheEvictions.Add(float64(evicted))
			}
		}
	}, deps.Clock, r.logger)
	r.sweepTask.Start()

	return r
}

// Shutdown stops the cache sweep. The ranker must not be used afterwards.
func (r *Ranker) Shutdown() {
	r.sweepTask.Stop()
}

// Initialize prepares the ranker for the given catalog: it computes or
// reuses tool embeddings (keyed by content hash) and rebuilds the keyword
// index. A single tool's embedding failure degrades that tool's semantic
// signal only.
func (r *Ranker) Initialize(ctx context.Context, tools []*catalog.Tool) error {
	entries := make([]*toolEntry, 0, len(tools))
	for _, t := range tools {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("invalid tool: %w", err)
		}
		entries = append(entries, &toolEntry{tool: t, hash: t.ContentHash()})
	}

	r.resolveEmbeddings(ctx, entries)

	index := buildKeywordIndex(entries)

	r.mu.Lock()
	r.entries = entries
	r.index = index
	r.mu.Unlock()

	r.logger.Debug("ranker initialized", zap.Int("tools", len(entries)))
	return nil
}

func (r *Ranker) resolveEmbeddings(ctx context.Context, entries []*toolEntry) {
	r.mu.RLock()
	known := make(map[string][]float64, len(r.embeddings))
	for h, e := range r.embeddings {
		known[h] = e
	}
	r.mu.RUnlock()

	var pending []*toolEntry
	for _, e := range entries {
		if emb, ok := known[e.hash]; ok {
			e.embedding = emb
			continue
		}
		if emb := r.lookupStored(ctx, e.hash); emb != nil {
			e.embedding = emb
			continue
		}
		pending = append(pending, e)
	}

	if len(pending) == 0 || r.deps.Embedder == nil {
		r.rememberEmbeddings(entries)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.EmbedConcurrency)
	for _, e := range pending {
		g.Go(func() error {
			emb, err := r.deps.Embedder.EmbedQuery(gctx, e.tool.EmbeddingText())
			if err != nil {
				// Degrade this tool's semantic signal only.
				r.logger.Warn("tool embedding failed",
					zap.String("tool", e.tool.Name), zap.Error(err))
				return nil
			}
			e.embedding = emb
			if r.deps.Vectors != nil {
				if err := r.deps.Vectors.Upsert(gctx, e.hash, emb, map[string]string{
					"content_hash": e.hash,
					"tool_name":    e.tool.Name,
				}, e.tool.EmbeddingText()); err != nil {
					r.logger.Warn("tool embedding upsert failed",
						zap.String("tool", e.tool.Name), zap.Error(err))
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	r.rememberEmbeddings(entries)
}

// lookupStored recovers a persisted embedding for a content hash, so tools
// unchanged across restarts are not re-embedded. Store failures just mean a
// fresh embedding.
func (r *Ranker) lookupStored(ctx context.Context, hash string) []float64 {
	if r.deps.Vectors == nil {
		return nil
	}
	neighbors, err := r.deps.Vectors.Get(ctx, map[string]string{"content_hash": hash})
	if err != nil {
		r.logger.Debug("stored embedding lookup failed", zap.Error(err))
		return nil
	}
	for _, n := range neighbors {
		if len(n.Embedding) > 0 {
			return n.Embedding
		}
	}
	return nil
}

func (r *Ranker) rememberEmbeddings(entries []*toolEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		if e.embedding != nil {
			r.embeddings[e.hash] = e.embedding
		}
	}
}

// FindBestMatch ranks the catalog against the query and selects the single
// best tool, or returns nil when no candidate clears the drop threshold.
func (r *Ranker) FindBestMatch(ctx context.Context, query string) (*MatchResult, error) {
	if r.deps.Metrics != nil {
		r.deps.Metrics.MatchRequests.Inc()
	}

	scored := r.scoreAll(ctx, query)

	// Keep candidates strictly above the threshold, best first.
	var candidates []*ScoredTool
	for _, s := range scored {
		if s.Score > r.cfg.DropThreshold {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) > r.cfg.TopK {
		candidates = candidates[:r.cfg.TopK]
	}

	if len(candidates) == 0 {
		if r.deps.Metrics != nil {
			r.deps.Metrics.MatchFailures.Inc()
		}
		return nil, nil
	}

	var alternatives []*ScoredTool
	for _, c := range candidates[1:] {
		if len(alternatives) == r.cfg.MaxAlternatives {
			break
		}
		alternatives = append(alternatives, c)
	}

	if r.cfg.UseLLM && r.deps.LLM != nil {
		if result := r.llmSelect(ctx, query, candidates); result != nil {
			result.Alternatives = alternatives
			return result, nil
		}
	}

	top := candidates[0]
	return &MatchResult{
		Tool:       top.Tool,
		Confidence: top.Score,
		Reasoning: fmt.Sprintf("selected by hybrid score %.3f (semantic=%.3f intent=%.2f keyword=%.3f path=%.3f)",
			top.Score, top.Signals.Semantic, top.Signals.Intent, top.Signals.Keyword, top.Signals.Path),
		Alternatives: alternatives,
	}, nil
}

// FindSimilarTools returns the scored catalog for a query without candidate
// selection, for diagnostics and UI listings.
func (r *Ranker) FindSimilarTools(ctx context.Context, query string, limit int) []*ScoredTool {
	scored := r.scoreAll(ctx, query)
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// scoreAll computes all four signals for every tool and returns the catalog
// sorted by total score. Ties break on ascending tool name so rankings are
// deterministic regardless of catalog order.
func (r *Ranker) scoreAll(ctx context.Context, query string) []*ScoredTool {
	normalized := normalizeQuery(query)
	queryTokens := tokenize(normalized)
	queryIntent := detectIntent(normalized)
	queryEmbedding := r.queryEmbedding(ctx, normalized)

	r.mu.RLock()
	entries := r.entries
	index := r.index
	r.mu.RUnlock()

	scored := make([]*ScoredTool, 0, len(entries))
	for _, e := range entries {
		sig := Signals{
			Semantic: vectorstore.CosineSimilarity(queryEmbedding, e.embedding),
			Path:     pathScore(normalized, e.tool),
		}
		if index != nil {
			sig.Keyword = index.score(queryTokens, e.tool.Name)
		}
		if sig.Semantic < 0 {
			sig.Semantic = 0
		}
		if queryIntent != intentNone && queryIntent == methodIntent(e.tool.Endpoint.Method) {
			sig.Intent = 1.0
		}

		total := r.cfg.SemanticWeight*sig.Semantic +
			r.cfg.IntentWeight*sig.Intent +
			r.cfg.KeywordWeight*sig.Keyword +
			r.cfg.PathWeight*sig.Path

		scored = append(scored, &ScoredTool{Tool: e.tool, Score: total, Signals: sig})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Tool.Name < scored[j].Tool.Name
	})
	return scored
}

// queryEmbedding fetches or computes the query embedding through the cache.
// Failure means no semantic signal for this pass, nothing more.
func (r *Ranker) queryEmbedding(ctx context.Context, normalized string) []float64 {
	if r.deps.Embedder == nil {
		return nil
	}
	if emb, ok := r.cache.get(normalized); ok {
		if r.deps.Metrics != nil {
			r.deps.Metrics.CacheHits.Inc()
		}
		return emb
	}
	if r.deps.Metrics != nil {
		r.deps.Metrics.CacheMisses.Inc()
	}

	emb, err := r.deps.Embedder.EmbedQuery(ctx, normalized)
	if err != nil {
		r.logger.Warn("query embedding failed", zap.Error(err))
		return nil
	}
	r.cache.put(normalized, emb)
	return emb
}

// pathScore is the fraction of non-placeholder path segments textually
// present in the query.
func pathScore(normalizedQuery string, tool *catalog.Tool) float64 {
	segments := strings.Split(strings.Trim(tool.Endpoint.Path, "/"), "/")
	var total, present int
	for _, seg := range segments {
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		total++
		if strings.Contains(normalizedQuery, strings.ToLower(seg)) {
			present++
		}
	}
	if total == 0 {
		return 0.0
	}
	return float64(present) / float64(total)
}

func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(query))), " ")
}

// llmSelect asks the provider to pick one of the surviving candidates in a
// function-calling style exchange. Any provider failure, empty answer or
// out-of-set pick returns nil and the caller falls back to pure scoring.
func (r *Ranker) llmSelect(ctx context.Context, query string, candidates []*ScoredTool) *MatchResult {
	byName := make(map[string]*ScoredTool, len(candidates))
	var b strings.Builder
	b.WriteString("You select the single API operation that best fulfils a user request.\n")
	b.WriteString("Available operations:\n")
	for _, c := range candidates {
		byName[c.Tool.Name] = c
		schema, _ := json.Marshal(c.Tool.InputSchema)
		fmt.Fprintf(&b, "- %s: %s (%s %s) schema=%s\n",
			c.Tool.Name, c.Tool.Description, c.Tool.Endpoint.Method, c.Tool.Endpoint.Path, schema)
	}
	fmt.Fprintf(&b, "User request: %q\n", query)
	b.WriteString("Respond with only a JSON object: ")
	b.WriteString(`{"tool":"<name>","parameters":{},"confidence":0.0,"reasoning":""}. `)
	b.WriteString("The tool must be one of the listed names. Extract any parameter values the request states.")

	out, err := r.deps.LLM.CompleteJSON(ctx, b.String())
	if err != nil {
		r.logger.Warn("llm selection failed, falling back to score", zap.Error(err))
		return nil
	}

	name, _ := out["tool"].(string)
	chosen, ok := byName[name]
	if !ok {
		r.logger.Warn("llm selected unknown tool, falling back to score", zap.String("tool", name))
		return nil
	}

	confidence := chosen.Score
	if v, ok := out["confidence"].(float64); ok && v > 0 && v <= 1 {
		confidence = v
	}
	reasoning, _ := out["reasoning"].(string)
	if reasoning == "" {
		reasoning = "selected by language model from scored candidates"
	}
	params, _ := out["parameters"].(map[string]any)

	return &MatchResult{
		Tool:       chosen.Tool,
		Parameters: params,
		Confidence: confidence,
		Reasoning:  reasoning,
	}
}
