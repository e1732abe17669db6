package convlog

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps transcripts in process memory. Used by tests and
// single-process deployments that do not need durability.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]Message
}

// NewMemoryStore creates an empty in-memory log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string][]Message)}
}

// AppendMessage records one turn.
func (s *MemoryStore) AppendMessage(ctx context.Context, conversationID string, role Role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[conversationID] = append(s.messages[conversationID], Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	})
	return nil
}

// Save is a no-op: appends are written through.
func (s *MemoryStore) Save(ctx context.Context, conversationID string) error {
	return nil
}

// Load returns the conversation's messages in append order.
func (s *MemoryStore) Load(ctx context.Context, conversationID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs, ok := s.messages[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]Message(nil), msgs...), nil
}

// List returns summaries sorted by conversation id.
func (s *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]Summary, 0, len(s.messages))
	for id, msgs := range s.messages {
		sum := Summary{ConversationID: id, MessageCount: len(msgs)}
		if len(msgs) > 0 {
			sum.LastActivity = msgs[len(msgs)-1].CreatedAt
		}
		summaries = append(summaries, sum)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ConversationID < summaries[j].ConversationID
	})
	return summaries, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
