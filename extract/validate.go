package extract

import (
	"strings"

	"github.com/apibridge/apibridge/catalog"
)

// Common misspellings mapped to their canonical enum form, applied after the
// exact case-insensitive pass fails.
var enumTypoTable = map[string]string{
	"avialable": "available",
	"availble":  "available",
	"avaliable": "available",
	"pendng":    "pending",
	"pening":    "pending",
	"sol":       "sold",
	"active":    "available",
}

// Placeholder literals recognized as non-answers.
var placeholderValues = map[string]bool{
	"":        true,
	"n/a":     true,
	"unknown": true,
	"tbd":     true,
	"null":    true,
}

// Validate normalizes extracted values against their schema entries:
// enum correction, tag-array and category wrapping. Fields without a schema
// entry pass through untouched.
func Validate(fields map[string]any, tool *catalog.Tool) map[string]any {
	out := make(map[string]any, len(fields))
	for name, value := range fields {
		prop, ok := tool.InputSchema.Properties[name]
		if !ok {
			out[name] = value
			continue
		}
		out[name] = normalizeValue(name, value, prop)
	}
	return out
}

func normalizeValue(name string, value any, prop catalog.Property) any {
	if len(prop.Enum) > 0 {
		if s, ok := value.(string); ok {
			return matchEnum(s, prop.Enum)
		}
	}

	switch strings.ToLower(name) {
	case "tags":
		if prop.Type == "array" {
			return wrapTagArray(value)
		}
	case "category":
		if s, ok := value.(string); ok {
			return map[string]any{"id": 1, "name": s}
		}
	}
	return value
}

// matchEnum resolves a value against the allowed set case-insensitively,
// then through the typo table. Unmatched values pass through unchanged.
func matchEnum(value string, allowed []string) string {
	lower := strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if strings.ToLower(a) == lower {
			return a
		}
	}
	if corrected, ok := enumTypoTable[lower]; ok {
		for _, a := range allowed {
			if strings.ToLower(a) == corrected {
				return a
			}
		}
	}
	return value
}

// wrapTagArray converts plain string arrays to {id, name} records; indexes
// are 1-based.
func wrapTagArray(value any) any {
	items, ok := value.([]any)
	if !ok {
		if s, ok := value.(string); ok {
			return []any{map[string]any{"id": 1, "name": s}}
		}
		return value
	}
	wrapped := make([]any, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			wrapped = append(wrapped, item)
			continue
		}
		wrapped = append(wrapped, map[string]any{"id": i + 1, "name": s})
	}
	return wrapped
}

// Sanitize drops fields whose value is a recognized placeholder, including
// arrays whose every element is one. A sanitized field is absent, not
// present-with-placeholder.
func Sanitize(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for name, value := range fields {
		if v, keep := sanitizeValue(value); keep {
			out[name] = v
		}
	}
	return out
}

func sanitizeValue(value any) (any, bool) {
	switch v := value.(type) {
	case string:
		return v, !IsPlaceholder(v)
	case []any:
		kept := make([]any, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && IsPlaceholder(s) {
				continue
			}
			kept = append(kept, item)
		}
		if len(kept) == 0 {
			return nil, false
		}
		return kept, true
	case nil:
		return nil, false
	}
	return value, true
}

// IsPlaceholder reports whether a string is a recognized non-answer.
func IsPlaceholder(s string) bool {
	return placeholderValues[strings.ToLower(strings.TrimSpace(s))]
}
