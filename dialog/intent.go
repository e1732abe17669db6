package dialog

import "strings"

// IntentClassifier decides whether an utterance cancels the pending tool or
// asks for immediate execution. It sits behind an interface so a model-based
// classifier can replace the keyword one without touching the state machine.
type IntentClassifier interface {
	IsCancellation(text string) bool
	IsExecution(text string) bool
}

// KeywordClassifier matches utterances against fixed phrase sets.
type KeywordClassifier struct {
	cancellation map[string]struct{}
	execution    map[string]struct{}
}

// NewKeywordClassifier returns a classifier with the default phrase sets.
func NewKeywordClassifier() *KeywordClassifier {
	c := &KeywordClassifier{
		cancellation: make(map[string]struct{}),
		execution:    make(map[string]struct{}),
	}
	for _, p := range []string{
		"cancel", "stop", "quit", "exit", "nevermind", "never mind",
		"abort", "no", "forget it", "leave it",
	} {
		c.cancellation[p] = struct{}{}
	}
	for _, p := range []string{
		"execute", "proceed", "run", "go ahead", "do it", "submit",
		"yes", "ok", "confirm",
	} {
		c.execution[p] = struct{}{}
	}
	return c
}

// IsCancellation reports whether text is a cancellation phrase.
func (c *KeywordClassifier) IsCancellation(text string) bool {
	_, ok := c.cancellation[normalizePhrase(text)]
	return ok
}

// IsExecution reports whether text is an execution phrase.
func (c *KeywordClassifier) IsExecution(text string) bool {
	_, ok := c.execution[normalizePhrase(text)]
	return ok
}

func normalizePhrase(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimRight(s, ".!?")
	return strings.Join(strings.Fields(s), " ")
}
