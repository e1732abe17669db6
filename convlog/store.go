// Package convlog persists conversation transcripts. The dialogue engine
// calls it as a side effect of processing turns; the storage format belongs
// to the implementation.
package convlog

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates an unknown conversation id.
var ErrNotFound = errors.New("conversation not found")

// Role identifies the author of a logged message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one logged conversation turn.
type Message struct {
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Summary describes one stored conversation.
type Summary struct {
	ConversationID string    `json:"conversation_id"`
	MessageCount   int       `json:"message_count"`
	LastActivity   time.Time `json:"last_activity"`
}

// Store is the conversation log interface. Implementations must be safe for
// concurrent use.
type Store interface {
	// AppendMessage records one turn.
	AppendMessage(ctx context.Context, conversationID string, role Role, content string) error

	// Save flushes any buffered state for the conversation. Backends that
	// write through treat it as a no-op.
	Save(ctx context.Context, conversationID string) error

	// Load returns the conversation's messages in append order.
	Load(ctx context.Context, conversationID string) ([]Message, error)

	// List returns summaries of all stored conversations.
	List(ctx context.Context) ([]Summary, error)

	// Close releases backend connections.
	Close() error
}
