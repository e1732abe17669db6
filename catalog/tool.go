// Package catalog defines the tool data model and catalog access.
//
// A Tool describes a single API operation: its name, parameter schema and
// HTTP endpoint. Tools are produced by a catalog source (static list or
// OpenAPI generation) and are read-only to the rest of the system.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Property describes a single field of a tool's input schema.
type Property struct {
	Type        string              `json:"type,omitempty"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Examples    []string            `json:"examples,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
}

// InputSchema is a tool's parameter schema.
type InputSchema struct {
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Endpoint describes where and how a tool's operation is invoked.
// Path may contain {name} placeholders for path parameters.
type Endpoint struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	BaseURL string `json:"base_url"`
}

// Annotations carry optional hints attached by the catalog source.
type Annotations struct {
	Tags      []string `json:"tags,omitempty"`
	ReadOnly  bool     `json:"read_only,omitempty"`
	OpenWorld bool     `json:"open_world,omitempty"`
}

// Tool is an immutable description of one API operation.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema InputSchema `json:"input_schema"`
	Endpoint    Endpoint    `json:"endpoint"`
	Annotations Annotations `json:"annotations,omitempty"`
}

// ContentHash returns a stable hash of the tool's identity-relevant fields.
// It is the reuse key for tool embeddings: a tool whose hash is unchanged
// keeps its previously computed embedding across catalog reloads.
func (t *Tool) ContentHash() string {
	schema, _ := json.Marshal(t.InputSchema)
	h := sha256.New()
	h.Write([]byte(t.Name))
	h.Write([]byte{0})
	h.Write([]byte(t.Description))
	h.Write([]byte{0})
	h.Write([]byte(t.Endpoint.Method))
	h.Write([]byte{0})
	h.Write([]byte(t.Endpoint.Path))
	h.Write([]byte{0})
	h.Write(schema)
	return hex.EncodeToString(h.Sum(nil))
}

// EmbeddingText returns the concatenated text representation embedded for
// semantic matching.
func (t *Tool) EmbeddingText() string {
	var b strings.Builder
	b.WriteString(t.Name)
	b.WriteString(". ")
	b.WriteString(t.Description)
	b.WriteString(". ")
	b.WriteString(t.Endpoint.Method)
	b.WriteString(" ")
	b.WriteString(t.Endpoint.Path)
	names := make([]string, 0, len(t.InputSchema.Properties))
	for name := range t.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(". ")
		b.WriteString(name)
		if desc := t.InputSchema.Properties[name].Description; desc != "" {
			b.WriteString(": ")
			b.WriteString(desc)
		}
	}
	return b.String()
}

// PathParams returns the {name} placeholder names in the endpoint path,
// in order of appearance.
func (t *Tool) PathParams() []string {
	var params []string
	path := t.Endpoint.Path
	for {
		start := strings.Index(path, "{")
		if start < 0 {
			break
		}
		end := strings.Index(path[start:], "}")
		if end < 0 {
			break
		}
		params = append(params, path[start+1:start+end])
		path = path[start+end+1:]
	}
	return params
}

// IsReadOnly reports whether the operation is in the idempotent/read class.
func (t *Tool) IsReadOnly() bool {
	if t.Annotations.ReadOnly {
		return true
	}
	switch strings.ToUpper(t.Endpoint.Method) {
	case "GET", "HEAD", "OPTIONS":
		return true
	}
	return false
}

// Validate checks that the tool carries the fields the matcher and
// synthesizer depend on.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Endpoint.Method == "" {
		return fmt.Errorf("tool %s: endpoint method is required", t.Name)
	}
	if t.Endpoint.Path == "" {
		return fmt.Errorf("tool %s: endpoint path is required", t.Name)
	}
	return nil
}

// Accessor supplies the current tool catalog. Implementations are queried
// fresh before every ranking pass; callers must not cache the returned list,
// so catalog changes take effect on the next turn.
type Accessor interface {
	ListTools(ctx context.Context) ([]*Tool, error)
}

// StaticAccessor serves a fixed tool list. Used by tests and embedded
// catalogs.
type StaticAccessor struct {
	tools []*Tool
}

// NewStaticAccessor creates an accessor over a fixed slice.
func NewStaticAccessor(tools []*Tool) *StaticAccessor {
	return &StaticAccessor{tools: tools}
}

// ListTools returns the configured tools.
func (a *StaticAccessor) ListTools(ctx context.Context) ([]*Tool, error) {
	return a.tools, nil
}

// AccessorFunc adapts a function to the Accessor interface.
type AccessorFunc func(ctx context.Context) ([]*Tool, error)

// ListTools calls the wrapped function.
func (f AccessorFunc) ListTools(ctx context.Context) ([]*Tool, error) {
	return f(ctx)
}
