package dialog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/apibridge/apibridge/catalog"
	"github.com/apibridge/apibridge/extract"
	"github.com/apibridge/apibridge/internal/metrics"
	"github.com/apibridge/apibridge/internal/sched"
	"github.com/apibridge/apibridge/match"
	"github.com/apibridge/apibridge/request"

	"github.com/apibridge/apibridge/convlog"
)

// EngineConfig configures the dialogue engine.
type EngineConfig struct {
	// MinConfidence is the lowest match confidence the engine accepts;
	// below it the user is asked to rephrase.
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`
	// MaxListedTools bounds how many operations a rephrase prompt lists.
	MaxListedTools int `yaml:"max_listed_tools" json:"max_listed_tools"`

	Session SessionManagerConfig `yaml:"session" json:"session"`
}

// DefaultEngineConfig returns the engine defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinConfidence:  0.3,
		MaxListedTools: 5,
		Session:        DefaultSessionManagerConfig(),
	}
}

// Deps are the engine's collaborators. Catalog, Ranker and Executor are
// required; Extractor, Log, Classifier and Metrics are optional.
type Deps struct {
	Catalog    catalog.Accessor
	Ranker     *match.Ranker
	Extractor  *extract.Extractor
	Executor   request.Executor
	Log        convlog.Store
	Classifier IntentClassifier
	Metrics    *metrics.Collector
	Clock      sched.Clock
}

// Reply is the engine's answer to one user turn.
type Reply struct {
	Message                 string          `json:"message"`
	NeedsClarification      bool            `json:"needs_clarification"`
	MissingRequiredFields   []string        `json:"missing_required_fields,omitempty"`
	SuggestedOptionalFields []string        `json:"suggested_optional_fields,omitempty"`
	Executed                bool            `json:"executed"`
	Command                 string          `json:"command,omitempty"`
	Result                  *request.Result `json:"result,omitempty"`
	Error                   string          `json:"error,omitempty"`
}

// Engine drives the per-conversation state machine: it sequences ranking,
// extraction, clarification, cancellation and execution.
type Engine struct {
	cfg        EngineConfig
	deps       Deps
	sessions   *SessionManager
	classifier IntentClassifier
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewEngine wires the engine and starts the idle-conversation sweep.
func NewEngine(cfg EngineConfig, deps Deps, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultEngineConfig().MinConfidence
	}
	if cfg.MaxListedTools <= 0 {
		cfg.MaxListedTools = DefaultEngineConfig().MaxListedTools
	}
	classifier := deps.Classifier
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}

	return &Engine{
		cfg:        cfg,
		deps:       deps,
		sessions:   NewSessionManager(cfg.Session, deps.Clock, deps.Metrics, logger),
		classifier: classifier,
		tracer:     otel.Tracer("github.com/apibridge/apibridge/dialog"),
		logger:     logger.With(zap.String("component", "dialog_engine")),
	}
}

// Sessions exposes the session manager, mainly for tests and diagnostics.
func (e *Engine) Sessions() *SessionManager { return e.sessions }

// StartConversation creates a conversation and returns its id.
func (e *Engine) StartConversation(ctx context.Context) string {
	return e.sessions.Start()
}

// EndConversation removes the conversation.
func (e *Engine) EndConversation(id string) {
	e.sessions.End(id)
}

// ProcessMessage handles one user turn for the given conversation. It returns
// ErrConversationNotFound for unknown or swept ids; every other failure is
// absorbed into the reply. Callers must serialize calls per conversation id.
func (e *Engine) ProcessMessage(ctx context.Context, conversationID, text string) (*Reply, error) {
	ctx, span := e.tracer.Start(ctx, "dialog.ProcessMessage",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer span.End()

	conv, err := e.sessions.Get(conversationID)
	if err != nil {
		return nil, err
	}

	e.appendLog(ctx, conversationID, convlog.RoleUser, text)

	var reply *Reply
	switch conv.State {
	case StateAwaitingParams:
		reply = e.handleCollecting(ctx, conv, text)
	default:
		reply = e.handleNew(ctx, conv, text)
	}

	e.appendLog(ctx, conversationID, convlog.RoleAssistant, reply.Message)
	span.SetAttributes(
		attribute.Bool("reply.executed", reply.Executed),
		attribute.Bool("reply.needs_clarification", reply.NeedsClarification),
	)
	return reply, nil
}

// Close stops the idle sweep, the ranker's cache sweep and the conversation
// log. It is the single shutdown point for background work.
func (e *Engine) Close() error {
	e.sessions.Shutdown()
	if e.deps.Ranker != nil {
		e.deps.Ranker.Shutdown()
	}
	if e.deps.Log != nil {
		return e.deps.Log.Close()
	}
	return nil
}

func (e *Engine) handleNew(ctx context.Context, conv *ConversationState, text string) *Reply {
	tools, err := e.deps.Catalog.ListTools(ctx)
	if err != nil {
		e.logger.Warn("catalog listing failed", zap.Error(err))
		return e.noMatchReply(nil)
	}
	if err := e.deps.Ranker.Initialize(ctx, tools); err != nil {
		e.logger.Warn("ranker initialization failed", zap.Error(err))
		return e.noMatchReply(tools)
	}

	result, err := e.deps.Ranker.FindBestMatch(ctx, text)
	if err != nil {
		e.logger.Warn("ranking failed", zap.Error(err))
		return e.noMatchReply(tools)
	}
	if result == nil || result.Confidence < e.cfg.MinConfidence {
		return e.noMatchReply(tools)
	}

	conv.ActiveTool = result.Tool
	conv.Parameters = make(map[string]any)
	// Parameters from candidate selection take the same validate/sanitize
	// path as extracted values; placeholders never seed the conversation.
	for k, v := range extract.Sanitize(extract.Validate(result.Parameters, result.Tool)) {
		conv.Parameters[k] = v
	}
	e.mergeExtraction(ctx, conv, text)

	return e.advance(ctx, conv)
}

func (e *Engine) handleCollecting(ctx context.Context, conv *ConversationState, text string) *Reply {
	if e.classifier.IsCancellation(text) {
		name := "that"
		if conv.ActiveTool != nil {
			name = conv.ActiveTool.Name
		}
		conv.reset()
		return &Reply{
			Message: fmt.Sprintf("Okay, cancelled %s. What would you like to do instead?", name),
		}
	}

	missing, _ := e.analyzeRequirements(conv.ActiveTool, conv.Parameters)
	if e.classifier.IsExecution(text) && len(missing) == 0 {
		conv.State = StateReady
		return e.execute(ctx, conv)
	}

	e.mergeExtraction(ctx, conv, text)
	return e.advance(ctx, conv)
}

// advance recomputes requirements and either asks for more input or executes.
func (e *Engine) advance(ctx context.Context, conv *ConversationState) *Reply {
	missing, suggested := e.analyzeRequirements(conv.ActiveTool, conv.Parameters)
	if len(missing) > 0 {
		conv.State = StateAwaitingParams
		return &Reply{
			Message:                 e.clarificationMessage(conv, missing, suggested),
			NeedsClarification:      true,
			MissingRequiredFields:   missing,
			SuggestedOptionalFields: suggested,
		}
	}
	conv.State = StateReady
	return e.execute(ctx, conv)
}

// mergeExtraction runs the extractor and merges new values over old ones.
func (e *Engine) mergeExtraction(ctx context.Context, conv *ConversationState, text string) {
	if e.deps.Extractor == nil || conv.ActiveTool == nil {
		return
	}
	extracted := e.deps.Extractor.Extract(ctx, text, conv.ActiveTool)
	for k, v := range extracted {
		conv.Parameters[k] = v
	}
}

// execute synthesizes the request, invokes the executor exactly once and
// resets the conversation regardless of outcome.
func (e *Engine) execute(ctx context.Context, conv *ConversationState) *Reply {
	tool := conv.ActiveTool
	params := conv.Parameters
	conv.reset()

	desc, err := request.Synthesize(tool, params)
	if err != nil {
		e.recordExecution("synthesis_error")
		return &Reply{
			Message: fmt.Sprintf("I could not build the request for %s: %v", tool.Name, err),
			Error:   err.Error(),
		}
	}

	result, err := e.deps.Executor.Execute(ctx, desc)
	if err != nil {
		e.recordExecution("error")
		return &Reply{
			Message: fmt.Sprintf("Executed:\n%s\n\nThe request failed: %v", desc.Command(), err),
			Command: desc.Command(),
			Error:   err.Error(),
		}
	}

	e.recordExecution(statusLabel(result.Status))
	return &Reply{
		Message:  fmt.Sprintf("Executed:\n%s\n\nResponse (%d):\n%s", desc.Command(), result.Status, result.Body),
		Executed: true,
		Command:  desc.Command(),
		Result:   result,
	}
}

func (e *Engine) recordExecution(status string) {
	if e.deps.Metrics != nil {
		e.deps.Metrics.Executions.WithLabelValues(status).Inc()
	}
}

func statusLabel(httpStatus int) string {
	if httpStatus >= 200 && httpStatus < 300 {
		return "success"
	}
	return "failure"
}

// analyzeRequirements returns the missing required fields and the optional
// fields worth suggesting. Required is the schema's required list plus path
// parameters for bodyless operations (GET, HEAD, OPTIONS, DELETE), whose
// schemas often omit them; a collected placeholder value still counts as
// missing. Optional suggestions are unfilled non-required properties that
// carry an enum, examples, a description or a structured type; they prompt
// proactively and never block execution.
func (e *Engine) analyzeRequirements(tool *catalog.Tool, params map[string]any) (missing, suggested []string) {
	if tool == nil {
		return nil, nil
	}

	required := make(map[string]struct{})
	for _, name := range tool.InputSchema.Required {
		required[name] = struct{}{}
	}
	if pathParamsRequired(tool) {
		for _, name := range tool.PathParams() {
			required[name] = struct{}{}
		}
	}

	for name := range required {
		if !hasValue(params, name) {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)

	for name, prop := range tool.InputSchema.Properties {
		if _, ok := required[name]; ok {
			continue
		}
		if hasValue(params, name) {
			continue
		}
		if len(prop.Enum) > 0 || len(prop.Examples) > 0 || prop.Description != "" ||
			prop.Type == "object" || prop.Type == "array" {
			suggested = append(suggested, name)
		}
	}
	sort.Strings(suggested)
	return missing, suggested
}

// pathParamsRequired reports whether the tool's path parameters are inferred
// as required even when its schema omits them. Bodyless methods send every
// parameter through the URL, so a missing path value cannot be synthesized.
func pathParamsRequired(tool *catalog.Tool) bool {
	if tool.IsReadOnly() {
		return true
	}
	return strings.ToUpper(tool.Endpoint.Method) == "DELETE"
}

// hasValue reports whether params carries a usable (non-placeholder) value.
func hasValue(params map[string]any, name string) bool {
	v, ok := params[name]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && extract.IsPlaceholder(s) {
		return false
	}
	return true
}

// clarificationMessage lists the values collected so far, the required fields
// still missing (with description, enum values and an example where the
// schema provides them) and, when required fields are satisfied, the optional
// fields worth filling in.
func (e *Engine) clarificationMessage(conv *ConversationState, missing, suggested []string) string {
	tool := conv.ActiveTool
	var b strings.Builder
	fmt.Fprintf(&b, "I'll use %s.", tool.Name)

	if len(conv.Parameters) > 0 {
		keys := make([]string, 0, len(conv.Parameters))
		for k := range conv.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" So far I have:")
		for _, k := range keys {
			fmt.Fprintf(&b, "\n  %s: %v", k, conv.Parameters[k])
		}
	}

	if len(missing) > 0 {
		b.WriteString("\nI still need:")
		for _, name := range missing {
			b.WriteString("\n  " + name)
			if prop, ok := tool.InputSchema.Properties[name]; ok {
				if prop.Description != "" {
					b.WriteString(" - " + prop.Description)
				}
				if len(prop.Enum) > 0 {
					fmt.Fprintf(&b, " (one of: %s)", strings.Join(prop.Enum, ", "))
				}
				if len(prop.Examples) > 0 {
					fmt.Fprintf(&b, " (e.g. %s)", prop.Examples[0])
				}
			}
		}
		return b.String()
	}

	if len(suggested) > 0 {
		b.WriteString("\nYou may also provide: " + strings.Join(suggested, ", "))
	}
	return b.String()
}

// noMatchReply asks the user to be more specific, listing a few operations.
func (e *Engine) noMatchReply(tools []*catalog.Tool) *Reply {
	var b strings.Builder
	b.WriteString("I could not find a matching operation. Could you be more specific?")

	if len(tools) > 0 {
		names := make([]string, 0, len(tools))
		for _, t := range tools {
			names = append(names, t.Name)
		}
		sort.Strings(names)
		if len(names) > e.cfg.MaxListedTools {
			names = names[:e.cfg.MaxListedTools]
		}
		b.WriteString(" Available operations include: " + strings.Join(names, ", ") + ".")
	}
	return &Reply{Message: b.String(), NeedsClarification: true}
}

// appendLog writes one turn to the conversation log, best effort.
func (e *Engine) appendLog(ctx context.Context, conversationID string, role convlog.Role, content string) {
	if e.deps.Log == nil {
		return
	}
	if err := e.deps.Log.AppendMessage(ctx, conversationID, role, content); err != nil {
		e.logger.Warn("conversation log append failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	}
}
