// Package embedding provides the text embedding provider interface and an
// OpenAI-compatible implementation.
package embedding

import (
	"context"
)

// Provider generates text embeddings. Implementations must be safe for
// concurrent use; any error is treated by callers as "no embedding".
type Provider interface {
	// EmbedQuery embeds a single text. Inputs longer than the provider's
	// token budget are truncated, not rejected.
	EmbedQuery(ctx context.Context, text string) ([]float64, error)

	// Name returns the provider identifier.
	Name() string

	// Dimensions returns the embedding dimensionality.
	Dimensions() int
}
