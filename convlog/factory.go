package convlog

import (
	"context"
	"fmt"
)

// Config selects and configures a conversation log backend.
type Config struct {
	// Backend is one of "memory", "redis", "sqlite", "mongo".
	// Empty defaults to "memory".
	Backend string       `yaml:"backend" json:"backend"`
	Redis   RedisConfig  `yaml:"redis" json:"redis"`
	SQLite  SQLiteConfig `yaml:"sqlite" json:"sqlite"`
	Mongo   MongoConfig  `yaml:"mongo" json:"mongo"`
}

// New builds the store named by cfg.Backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg.Redis)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite)
	case "mongo":
		return NewMongoStore(ctx, cfg.Mongo)
	default:
		return nil, fmt.Errorf("unknown conversation log backend: %q", cfg.Backend)
	}
}
