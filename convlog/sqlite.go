package convlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SQLiteConfig configures the SQLite-backed log.
type SQLiteConfig struct {
	// Path is the database file; ":memory:" gives an ephemeral database.
	Path string `yaml:"path" json:"path"`
}

// messageRecord is the gorm model backing one logged turn.
type messageRecord struct {
	ID             uint      `gorm:"primaryKey"`
	ConversationID string    `gorm:"index"`
	Role           string    `gorm:"size:16"`
	Content        string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"index"`
}

func (messageRecord) TableName() string { return "conversation_messages" }

// SQLiteStore persists transcripts in an embedded SQLite database.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens the database and migrates the schema.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	path := cfg.Path
	if path == "" {
		path = "apibridge.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.AutoMigrate(&messageRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// AppendMessage records one turn.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID string, role Role, content string) error {
	rec := messageRecord{
		ConversationID: conversationID,
		Role:           string(role),
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// Save is a no-op: appends are written through.
func (s *SQLiteStore) Save(ctx context.Context, conversationID string) error {
	return nil
}

// Load returns the conversation's messages in append order.
func (s *SQLiteStore) Load(ctx context.Context, conversationID string) ([]Message, error) {
	var recs []messageRecord
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("id asc").
		Find(&recs).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}

	msgs := make([]Message, 0, len(recs))
	for _, rec := range recs {
		msgs = append(msgs, Message{
			ConversationID: rec.ConversationID,
			Role:           Role(rec.Role),
			Content:        rec.Content,
			CreatedAt:      rec.CreatedAt,
		})
	}
	return msgs, nil
}

// List returns one summary per stored conversation.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	type row struct {
		ConversationID string
		MessageCount   int
		LastActivity   time.Time
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&messageRecord{}).
		Select("conversation_id, count(*) as message_count, max(created_at) as last_activity").
		Group("conversation_id").
		Order("conversation_id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	summaries := make([]Summary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, Summary{
			ConversationID: r.ConversationID,
			MessageCount:   r.MessageCount,
			LastActivity:   r.LastActivity,
		})
	}
	return summaries, nil
}

// Close releases the underlying connection pool.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
