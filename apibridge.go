// Package apibridge turns a catalog of API operations plus natural-language
// requests into executed HTTP calls. It wires the candidate ranker, the
// dialogue engine, parameter extraction and request synthesis behind one
// entry point.
//
// Usage:
//
//	import "github.com/apibridge/apibridge"
//
//	cfg := config.DefaultConfig()
//	cfg.Catalog.Source = "https://petstore.example.com/openapi.json"
//	bridge, err := apibridge.New(ctx, cfg, logger)
//	id := bridge.StartConversation(ctx)
//	reply, err := bridge.ProcessMessage(ctx, id, "add a pet named Rex")
package apibridge

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/apibridge/apibridge/catalog"
	"github.com/apibridge/apibridge/config"
	"github.com/apibridge/apibridge/convlog"
	"github.com/apibridge/apibridge/dialog"
	"github.com/apibridge/apibridge/extract"
	"github.com/apibridge/apibridge/internal/metrics"
	"github.com/apibridge/apibridge/llm"
	"github.com/apibridge/apibridge/llm/embedding"
	"github.com/apibridge/apibridge/match"
	"github.com/apibridge/apibridge/request"
	"github.com/apibridge/apibridge/vectorstore"
)

// Bridge is the assembled system. All background work stops at Close.
type Bridge struct {
	engine    *dialog.Engine
	ranker    *match.Ranker
	catalog   catalog.Accessor
	collector *metrics.Collector
	logger    *zap.Logger
}

// Option overrides a collaborator during construction, mainly for tests and
// embedders with custom providers.
type Option func(*deps)

type deps struct {
	catalog  catalog.Accessor
	llm      llm.Provider
	embedder embedding.Provider
	vectors  vectorstore.Store
	executor request.Executor
	log      convlog.Store
}

// WithCatalog replaces the OpenAPI-derived tool catalog.
func WithCatalog(a catalog.Accessor) Option { return func(d *deps) { d.catalog = a } }

// WithLLM replaces the completion provider.
func WithLLM(p llm.Provider) Option { return func(d *deps) { d.llm = p } }

// WithEmbedder replaces the embedding provider.
func WithEmbedder(p embedding.Provider) Option { return func(d *deps) { d.embedder = p } }

// WithVectorStore replaces the vector store.
func WithVectorStore(s vectorstore.Store) Option { return func(d *deps) { d.vectors = s } }

// WithExecutor replaces the request executor.
func WithExecutor(e request.Executor) Option { return func(d *deps) { d.executor = e } }

// WithConversationLog replaces the transcript store.
func WithConversationLog(s convlog.Store) Option { return func(d *deps) { d.log = s } }

// New assembles a Bridge from cfg. Missing providers degrade the signals
// they feed rather than failing construction; only a broken conversation log
// backend is a construction error.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Bridge, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var d deps
	for _, opt := range opts {
		opt(&d)
	}

	if d.catalog == nil {
		gen := catalog.NewGenerator(catalog.GeneratorConfig{}, logger)
		d.catalog = gen.Accessor(cfg.Catalog.Source, catalog.GenerateOptions{
			BaseURL:     cfg.Catalog.BaseURL,
			IncludeTags: cfg.Catalog.Tags,
		})
	}
	if d.llm == nil && cfg.LLM.APIKey != "" {
		d.llm = llm.NewOpenAIProvider(cfg.LLM, logger)
	}
	if d.embedder == nil && cfg.Embedding.APIKey != "" {
		d.embedder = embedding.NewOpenAIProvider(cfg.Embedding, logger)
	}
	if d.vectors == nil {
		if cfg.Qdrant.Host != "" {
			d.vectors = vectorstore.NewQdrantStore(cfg.Qdrant, logger)
		} else {
			d.vectors = vectorstore.NewMemoryStore(logger)
		}
	}
	if d.executor == nil {
		d.executor = request.NewHTTPExecutor(cfg.Executor, logger)
	}
	if d.log == nil {
		store, err := convlog.New(ctx, cfg.ConvLog)
		if err != nil {
			return nil, err
		}
		d.log = store
	}

	collector := metrics.NewCollector("apibridge")
	ranker := match.NewRanker(cfg.Match, match.Deps{
		Embedder: d.embedder,
		LLM:      d.llm,
		Vectors:  d.vectors,
		Metrics:  collector,
	}, logger)

	engine := dialog.NewEngine(cfg.Dialog, dialog.Deps{
		Catalog:   d.catalog,
		Ranker:    ranker,
		Extractor: extract.NewExtractor(d.llm, logger),
		Executor:  d.executor,
		Log:       d.log,
		Metrics:   collector,
	}, logger)

	return &Bridge{
		engine:    engine,
		ranker:    ranker,
		catalog:   d.catalog,
		collector: collector,
		logger:    logger,
	}, nil
}

// StartConversation creates a conversation and returns its id.
func (b *Bridge) StartConversation(ctx context.Context) string {
	return b.engine.StartConversation(ctx)
}

// EndConversation removes the conversation.
func (b *Bridge) EndConversation(id string) {
	b.engine.EndConversation(id)
}

// ProcessMessage handles one user turn. See dialog.Engine.ProcessMessage.
func (b *Bridge) ProcessMessage(ctx context.Context, conversationID, text string) (*dialog.Reply, error) {
	return b.engine.ProcessMessage(ctx, conversationID, text)
}

// FindSimilarTools scores the catalog against a query for diagnostics.
func (b *Bridge) FindSimilarTools(ctx context.Context, query string, limit int) []*match.ScoredTool {
	tools, err := b.catalog.ListTools(ctx)
	if err != nil {
		b.logger.Warn("catalog listing failed", zap.Error(err))
		return nil
	}
	if err := b.ranker.Initialize(ctx, tools); err != nil {
		b.logger.Warn("ranker initialization failed", zap.Error(err))
		return nil
	}
	return b.ranker.FindSimilarTools(ctx, query, limit)
}

// MetricsRegistry exposes the Prometheus registry for scraping.
func (b *Bridge) MetricsRegistry() *prometheus.Registry {
	return b.collector.Registry()
}

// Close stops background sweeps and releases external connections.
func (b *Bridge) Close() error {
	return b.engine.Close()
}
