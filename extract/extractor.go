// Package extract derives structured argument maps from free-form text
// using a tool's input schema, then validates and normalizes the values.
//
// Extraction never fails loudly: unparsable model output is treated as an
// empty extraction and invalid values are dropped, so the dialogue simply
// keeps asking for what is still missing.
package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/apibridge/apibridge/catalog"
	"github.com/apibridge/apibridge/llm"
)

// Filler tokens the model is told to ignore when mapping values to fields.
var extractionStopWords = []string{
	"please", "kindly", "just", "maybe", "some", "thanks", "hey", "umm", "like",
}

// Extractor pulls schema fields out of raw text via the LLM provider.
type Extractor struct {
	provider llm.Provider
	logger   *zap.Logger
}

// NewExtractor creates an extractor. A nil provider is allowed and yields
// empty extractions.
func NewExtractor(provider llm.Provider, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		provider: provider,
		logger:   logger.With(zap.String("component", "extractor")),
	}
}

// Extract returns the validated, sanitized fields found in text for the
// tool's schema. Provider failures and unparsable output return an empty
// map, never an error.
func (e *Extractor) Extract(ctx context.Context, text string, tool *catalog.Tool) map[string]any {
	if e.provider == nil || len(tool.InputSchema.Properties) == 0 {
		return map[string]any{}
	}

	out, err := e.provider.CompleteJSON(ctx, e.buildPrompt(text, tool))
	if err != nil {
		e.logger.Debug("extraction degraded to empty",
			zap.String("tool", tool.Name), zap.Error(err))
		return map[string]any{}
	}

	return Sanitize(Validate(out, tool))
}

// buildPrompt renders the schema as compact field descriptions plus the
// extraction rules. Fields are emitted in sorted order so the prompt is
// deterministic for a given tool.
func (e *Extractor) buildPrompt(text string, tool *catalog.Tool) string {
	var b strings.Builder
	b.WriteString("Extract parameter values for the API operation ")
	b.WriteString(tool.Name)
	b.WriteString(" from the user message.\nFields:\n")

	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var idField string
	for _, name := range names {
		prop := tool.InputSchema.Properties[name]
		fmt.Fprintf(&b, "- %s (%s)", name, propType(prop))
		if prop.Description != "" {
			fmt.Fprintf(&b, ": %s", prop.Description)
		}
		if len(prop.Enum) > 0 {
			fmt.Fprintf(&b, " [allowed: %s]", strings.Join(prop.Enum, ", "))
		}
		if len(prop.Examples) > 0 {
			fmt.Fprintf(&b, " [examples: %s]", strings.Join(prop.Examples, ", "))
		}
		b.WriteString("\n")
		if idField == "" && (name == "id" || strings.HasSuffix(strings.ToLower(name), "id")) {
			idField = name
		}
	}

	b.WriteString("Rules:\n")
	b.WriteString("- Respond with only a JSON object of the fields the message states; omit unknown fields.\n")
	b.WriteString("- Use the exact field names above, never synonyms.\n")
	fmt.Fprintf(&b, "- Ignore filler words such as: %s.\n", strings.Join(extractionStopWords, ", "))
	if idField != "" && idField != "id" {
		fmt.Fprintf(&b, "- If the message mentions a bare \"id\", map it to %q.\n", idField)
	}
	fmt.Fprintf(&b, "User message: %q\n", text)
	return b.String()
}

func propType(p catalog.Property) string {
	if p.Type != "" {
		return p.Type
	}
	return "string"
}
