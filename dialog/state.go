// Package dialog implements the multi-turn dialogue state machine that
// sequences tool matching, parameter collection, clarification, cancellation
// and request execution for each conversation.
package dialog

import (
	"errors"
	"time"

	"github.com/apibridge/apibridge/catalog"
)

// State is the dialogue phase of one conversation.
type State string

const (
	// StateNew means no tool is active; the next utterance goes to the ranker.
	StateNew State = "new"
	// StateAwaitingParams means a tool is active but required parameters are
	// still missing.
	StateAwaitingParams State = "awaiting_parameters"
	// StateReady means all required parameters are collected and the request
	// is about to execute.
	StateReady State = "ready"
)

// ErrConversationNotFound is returned when a message references an unknown or
// already swept conversation id. It indicates a stale id upstream and is the
// only caller-visible failure in normal operation.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationState is the mutable record of one conversation. Callers must
// serialize access per conversation id; the engine does not lock individual
// conversations.
type ConversationState struct {
	ID           string
	State        State
	ActiveTool   *catalog.Tool
	Parameters   map[string]any
	LastActivity time.Time
	CreatedAt    time.Time
}

func (c *ConversationState) reset() {
	c.State = StateNew
	c.ActiveTool = nil
	c.Parameters = make(map[string]any)
}
