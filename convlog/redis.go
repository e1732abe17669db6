package convlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis-backed log.
type RedisConfig struct {
	Addr      string        `yaml:"addr" json:"addr"`
	Password  string        `yaml:"password" json:"password"`
	DB        int           `yaml:"db" json:"db"`
	KeyPrefix string        `yaml:"key_prefix" json:"key_prefix"`
	TTL       time.Duration `yaml:"ttl" json:"ttl"`
	PoolSize  int           `yaml:"pool_size" json:"pool_size"`
}

// RedisStore persists transcripts as Redis lists, one list per
// conversation, plus an index set of known conversation ids.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "apibridge:"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix + "conv:",
		ttl:       cfg.TTL,
	}, nil
}

func (s *RedisStore) messagesKey(id string) string { return s.keyPrefix + "msg:" + id }
func (s *RedisStore) indexKey() string             { return s.keyPrefix + "index" }

// AppendMessage records one turn.
func (s *RedisStore) AppendMessage(ctx context.Context, conversationID string, role Role, content string) error {
	msg := Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := s.messagesKey(conversationID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.SAdd(ctx, s.indexKey(), conversationID)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// Save is a no-op: appends are written through.
func (s *RedisStore) Save(ctx context.Context, conversationID string) error {
	return nil
}

// Load returns the conversation's messages in append order.
func (s *RedisStore) Load(ctx context.Context, conversationID string) ([]Message, error) {
	raw, err := s.client.LRange(ctx, s.messagesKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNotFound
	}

	msgs := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// List returns a summary per indexed conversation. Conversations whose list
// expired are skipped.
func (s *RedisStore) List(ctx context.Context) ([]Summary, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		msgs, err := s.Load(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		sum := Summary{ConversationID: id, MessageCount: len(msgs)}
		if len(msgs) > 0 {
			sum.LastActivity = msgs[len(msgs)-1].CreatedAt
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
