// Package config loads the bridge's configuration from defaults, an optional
// YAML file and APIBRIDGE_-prefixed environment variables, in that order.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/apibridge/apibridge/convlog"
	"github.com/apibridge/apibridge/dialog"
	"github.com/apibridge/apibridge/llm"
	"github.com/apibridge/apibridge/llm/embedding"
	"github.com/apibridge/apibridge/match"
	"github.com/apibridge/apibridge/request"
	"github.com/apibridge/apibridge/vectorstore"
)

// Config is the complete configuration of the bridge.
type Config struct {
	// Catalog points at the tool source: an OpenAPI document URL or file.
	Catalog CatalogConfig `yaml:"catalog"`

	// LLM configures the completion provider used for extraction and
	// candidate selection.
	LLM llm.OpenAIConfig `yaml:"llm"`

	// Embedding configures the embedding provider for the semantic signal.
	Embedding embedding.OpenAIConfig `yaml:"embedding"`

	// Qdrant configures the optional persistent vector store. An empty host
	// selects the in-memory store.
	Qdrant vectorstore.QdrantConfig `yaml:"qdrant"`

	// Match configures the candidate ranker.
	Match match.Config `yaml:"match"`

	// Dialog configures the dialogue engine and session manager.
	Dialog dialog.EngineConfig `yaml:"dialog"`

	// Executor configures outbound request execution.
	Executor request.HTTPExecutorConfig `yaml:"executor"`

	// ConvLog configures transcript persistence.
	ConvLog convlog.Config `yaml:"convlog"`

	// Log configures application logging.
	Log LogConfig `yaml:"log"`
}

// CatalogConfig selects the tool catalog source.
type CatalogConfig struct {
	// Source is an OpenAPI document URL or local file path.
	Source string `yaml:"source"`
	// Tags restricts generation to operations carrying one of these tags.
	Tags []string `yaml:"tags"`
	// BaseURL overrides the document's server URL when set.
	BaseURL string `yaml:"base_url"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return &Config{
		LLM: llm.OpenAIConfig{
			BaseURL:           "https://api.openai.com",
			Model:             "gpt-4o-mini",
			Temperature:       0,
			MaxTokens:         1024,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
		},
		Embedding: embedding.OpenAIConfig{
			BaseURL:           "https://api.openai.com",
			Model:             "text-embedding-3-small",
			MaxInputTokens:    8000,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
		},
		Match:  match.DefaultConfig(),
		Dialog: dialog.DefaultEngineConfig(),
		Executor: request.HTTPExecutorConfig{
			Timeout:          30 * time.Second,
			MaxResponseBytes: 1 << 20,
		},
		ConvLog: convlog.Config{Backend: "memory"},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks ranges that would silently break ranking or dialogue.
func (c *Config) Validate() error {
	var errs []string

	sum := c.Match.SemanticWeight + c.Match.IntentWeight + c.Match.KeywordWeight + c.Match.PathWeight
	if sum < 0.999 || sum > 1.001 {
		errs = append(errs, fmt.Sprintf("match signal weights must sum to 1, got %.3f", sum))
	}
	if c.Match.DropThreshold < 0 || c.Match.DropThreshold >= 1 {
		errs = append(errs, "match.drop_threshold must be in [0,1)")
	}
	if c.Match.TopK <= 0 {
		errs = append(errs, "match.top_k must be positive")
	}
	if c.Dialog.MinConfidence < 0 || c.Dialog.MinConfidence > 1 {
		errs = append(errs, "dialog.min_confidence must be in [0,1]")
	}
	if c.Dialog.Session.IdleTimeout <= 0 {
		errs = append(errs, "dialog.session.idle_timeout must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
