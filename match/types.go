// Package match ranks catalog tools against natural-language queries using
// a hybrid of semantic, keyword, intent and path signals, with a bounded
// query-embedding cache.
package match

import (
	"github.com/apibridge/apibridge/catalog"
)

// Signals is the per-signal score breakdown of one candidate.
type Signals struct {
	Semantic float64 `json:"semantic"`
	Keyword  float64 `json:"keyword"`
	Intent   float64 `json:"intent"`
	Path     float64 `json:"path"`
}

// ScoredTool is one ranked candidate. Scores lie in [0,1].
type ScoredTool struct {
	Tool    *catalog.Tool `json:"tool"`
	Score   float64       `json:"score"`
	Signals Signals       `json:"signals"`
}

// MatchResult is the outcome of a successful ranking pass.
type MatchResult struct {
	Tool         *catalog.Tool  `json:"tool"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Confidence   float64        `json:"confidence"`
	Reasoning    string         `json:"reasoning"`
	Alternatives []*ScoredTool  `json:"alternatives,omitempty"`
}
