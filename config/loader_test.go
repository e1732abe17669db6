package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 5, cfg.Match.TopK)
	assert.Equal(t, 30*time.Minute, cfg.Dialog.Session.IdleTimeout)
	assert.Equal(t, "memory", cfg.ConvLog.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog:
  source: https://petstore.example.com/openapi.json
  tags: [pet, store]
match:
  top_k: 3
log:
  level: debug
  format: json
`), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "https://petstore.example.com/openapi.json", cfg.Catalog.Source)
	assert.Equal(t, []string{"pet", "store"}, cfg.Catalog.Tags)
	assert.Equal(t, 3, cfg.Match.TopK)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APIBRIDGE_MATCH_TOP_K", "7")
	t.Setenv("APIBRIDGE_LOG_LEVEL", "warn")
	t.Setenv("APIBRIDGE_LLM_TIMEOUT", "45s")
	t.Setenv("APIBRIDGE_DIALOG_MIN_CONFIDENCE", "0.5")
	t.Setenv("APIBRIDGE_CATALOG_TAGS", "pet, store")
	t.Setenv("APIBRIDGE_MATCH_USE_LLM", "true")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Match.TopK)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 0.5, cfg.Dialog.MinConfidence)
	assert.Equal(t, []string{"pet", "store"}, cfg.Catalog.Tags)
	assert.True(t, cfg.Match.UseLLM)
}

func TestEnvOverridesFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))
	t.Setenv("APIBRIDGE_LOG_LEVEL", "error")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			"weights do not sum to one",
			func(c *Config) { c.Match.SemanticWeight = 0.9 },
			"weights must sum to 1",
		},
		{
			"drop threshold out of range",
			func(c *Config) { c.Match.DropThreshold = 1.5 },
			"drop_threshold",
		},
		{
			"non-positive top k",
			func(c *Config) { c.Match.TopK = 0 },
			"top_k",
		},
		{
			"min confidence out of range",
			func(c *Config) { c.Dialog.MinConfidence = 1.2 },
			"min_confidence",
		},
		{
			"non-positive idle timeout",
			func(c *Config) { c.Dialog.Session.IdleTimeout = 0 },
			"idle_timeout",
		},
		{
			"unknown log level",
			func(c *Config) { c.Log.Level = "verbose" },
			"log level",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExtraValidator(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			if c.Catalog.Source == "" {
				return assert.AnError
			}
			return nil
		}).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}
