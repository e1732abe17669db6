package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OpenAPISpec is a parsed OpenAPI 3.x document, reduced to the parts tool
// generation needs.
type OpenAPISpec struct {
	OpenAPI string              `json:"openapi"`
	Info    SpecInfo            `json:"info"`
	Servers []SpecServer        `json:"servers,omitempty"`
	Paths   map[string]PathItem `json:"paths"`
}

// SpecInfo contains API metadata.
type SpecInfo struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// SpecServer represents an API server entry.
type SpecServer struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PathItem holds the operations defined on one path.
type PathItem struct {
	Get    *Operation `json:"get,omitempty"`
	Post   *Operation `json:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"`
	Delete *Operation `json:"delete,omitempty"`
	Patch  *Operation `json:"patch,omitempty"`
}

// Operation represents one API operation.
type Operation struct {
	OperationID string       `json:"operationId,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	Description string       `json:"description,omitempty"`
	Parameters  []SpecParam  `json:"parameters,omitempty"`
	RequestBody *RequestBody `json:"requestBody,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
}

// SpecParam represents an operation parameter.
type SpecParam struct {
	Name        string      `json:"name"`
	In          string      `json:"in"` // query, path, header, cookie
	Description string      `json:"description,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Schema      *SpecSchema `json:"schema,omitempty"`
}

// RequestBody represents an operation request body.
type RequestBody struct {
	Description string               `json:"description,omitempty"`
	Required    bool                 `json:"required,omitempty"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// MediaType represents a media type entry of a request body.
type MediaType struct {
	Schema *SpecSchema `json:"schema,omitempty"`
}

// SpecSchema is a JSON Schema fragment as found in OpenAPI documents.
type SpecSchema struct {
	Type        string                `json:"type,omitempty"`
	Description string                `json:"description,omitempty"`
	Properties  map[string]SpecSchema `json:"properties,omitempty"`
	Required    []string              `json:"required,omitempty"`
	Items       *SpecSchema           `json:"items,omitempty"`
	Enum        []any                 `json:"enum,omitempty"`
	Examples    []any                 `json:"examples,omitempty"`
}

// GenerateOptions configures tool generation from a spec.
type GenerateOptions struct {
	BaseURL     string
	IncludeTags []string
	ExcludeTags []string
}

// Generator builds Tool records from OpenAPI specifications.
type Generator struct {
	httpClient *http.Client
	logger     *zap.Logger
	mu         sync.RWMutex
	specs      map[string]*OpenAPISpec
}

// GeneratorConfig configures the generator.
type GeneratorConfig struct {
	Timeout time.Duration
}

// NewGenerator creates an OpenAPI tool generator.
func NewGenerator(config GeneratorConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Generator{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(zap.String("component", "openapi_generator")),
		specs:      make(map[string]*OpenAPISpec),
	}
}

// LoadSpec loads an OpenAPI spec from a URL or local file path. Results are
// memoized per source; callers that must observe upstream changes use
// Accessor, which bypasses the memo.
func (g *Generator) LoadSpec(ctx context.Context, source string) (*OpenAPISpec, error) {
	g.mu.RLock()
	if spec, ok := g.specs[source]; ok {
		g.mu.RUnlock()
		return spec, nil
	}
	g.mu.RUnlock()

	return g.fetchSpec(ctx, source)
}

// fetchSpec reads and parses the spec unconditionally and refreshes the memo.
func (g *Generator) fetchSpec(ctx context.Context, source string) (*OpenAPISpec, error) {
	var data []byte
	var err error

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = g.fetchFromURL(ctx, source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load spec: %w", err)
	}

	var spec OpenAPISpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse spec: %w", err)
	}

	g.mu.Lock()
	g.specs[source] = &spec
	g.mu.Unlock()

	g.logger.Info("loaded OpenAPI spec",
		zap.String("title", spec.Info.Title),
		zap.String("version", spec.Info.Version),
		zap.Int("paths", len(spec.Paths)),
	)

	return &spec, nil
}

func (g *Generator) fetchFromURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// GenerateTools converts every operation of a spec to a Tool.
func (g *Generator) GenerateTools(spec *OpenAPISpec, opts GenerateOptions) ([]*Tool, error) {
	baseURL := ""
	if len(spec.Servers) > 0 {
		baseURL = spec.Servers[0].URL
	}
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}

	var tools []*Tool
	for path, pathItem := range spec.Paths {
		operations := map[string]*Operation{
			http.MethodGet:    pathItem.Get,
			http.MethodPost:   pathItem.Post,
			http.MethodPut:    pathItem.Put,
			http.MethodDelete: pathItem.Delete,
			http.MethodPatch:  pathItem.Patch,
		}

		for method, op := range operations {
			if op == nil {
				continue
			}
			if len(opts.IncludeTags) > 0 && !hasAnyTag(op.Tags, opts.IncludeTags) {
				continue
			}
			if len(opts.ExcludeTags) > 0 && hasAnyTag(op.Tags, opts.ExcludeTags) {
				continue
			}
			tools = append(tools, g.operationToTool(path, method, op, baseURL))
		}
	}

	g.logger.Info("generated tools", zap.Int("count", len(tools)))
	return tools, nil
}

// Accessor returns a catalog accessor that refetches the source and
// regenerates tools on every call, so spec changes surface without
// core-side caching.
func (g *Generator) Accessor(source string, opts GenerateOptions) Accessor {
	return AccessorFunc(func(ctx context.Context) ([]*Tool, error) {
		spec, err := g.fetchSpec(ctx, source)
		if err != nil {
			return nil, err
		}
		return g.GenerateTools(spec, opts)
	})
}

func (g *Generator) operationToTool(path, method string, op *Operation, baseURL string) *Tool {
	name := op.OperationID
	if name == "" {
		name = fmt.Sprintf("%s_%s", strings.ToLower(method), sanitizePath(path))
	}

	description := op.Summary
	if description == "" {
		description = op.Description
	}
	if description == "" {
		description = fmt.Sprintf("%s %s", method, path)
	}

	properties := make(map[string]Property)
	var required []string

	for _, param := range op.Parameters {
		if param.In == "header" || param.In == "cookie" {
			continue
		}
		prop := Property{Description: param.Description}
		if param.Schema != nil {
			prop = specSchemaToProperty(*param.Schema)
			if prop.Description == "" {
				prop.Description = param.Description
			}
		}
		properties[param.Name] = prop
		if param.Required {
			required = append(required, param.Name)
		}
	}

	if op.RequestBody != nil {
		if content, ok := op.RequestBody.Content["application/json"]; ok && content.Schema != nil {
			body := *content.Schema
			if body.Type == "object" && len(body.Properties) > 0 {
				// Flatten object bodies so extraction sees individual fields.
				for fieldName, fieldSchema := range body.Properties {
					properties[fieldName] = specSchemaToProperty(fieldSchema)
				}
				required = append(required, body.Required...)
			} else {
				properties["body"] = specSchemaToProperty(body)
				if op.RequestBody.Required {
					required = append(required, "body")
				}
			}
		}
	}

	return &Tool{
		Name:        name,
		Description: description,
		InputSchema: InputSchema{Properties: properties, Required: required},
		Endpoint:    Endpoint{Method: method, Path: path, BaseURL: baseURL},
		Annotations: Annotations{Tags: op.Tags},
	}
}

func specSchemaToProperty(s SpecSchema) Property {
	prop := Property{
		Type:        s.Type,
		Description: s.Description,
	}
	for _, e := range s.Enum {
		prop.Enum = append(prop.Enum, fmt.Sprintf("%v", e))
	}
	for _, e := range s.Examples {
		prop.Examples = append(prop.Examples, fmt.Sprintf("%v", e))
	}
	if s.Items != nil {
		items := specSchemaToProperty(*s.Items)
		prop.Items = &items
	}
	if len(s.Properties) > 0 {
		prop.Properties = make(map[string]Property, len(s.Properties))
		for name, sub := range s.Properties {
			prop.Properties[name] = specSchemaToProperty(sub)
		}
	}
	return prop
}

func hasAnyTag(tags, targets []string) bool {
	tagSet := make(map[string]bool, len(tags))
	for _, t := range tags {
		tagSet[t] = true
	}
	for _, t := range targets {
		if tagSet[t] {
			return true
		}
	}
	return false
}

func sanitizePath(path string) string {
	path = strings.ReplaceAll(path, "/", "_")
	path = strings.ReplaceAll(path, "{", "")
	path = strings.ReplaceAll(path, "}", "")
	return strings.Trim(path, "_")
}
