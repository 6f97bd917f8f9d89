package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, infoLevel, cfg.LogLevel)
	assert.InDelta(t, 0.65, cfg.Matching.ConfirmThreshold, 1e-9)
	assert.InDelta(t, 0.25, cfg.Matching.MinThreshold, 1e-9)
	assert.InDelta(t, 0.60, cfg.Matching.MinDisplayThreshold, 1e-9)
	assert.Equal(t, 30, cfg.Matching.MaxResults)
	assert.Equal(t, "memory", cfg.Catalog.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"output format", func(c *Config) { c.Output.Format = "xml" }, "invalid output format"},
		{"threshold range", func(c *Config) { c.Matching.ConfirmThreshold = 1.5 }, "confirm_threshold"},
		{"threshold order", func(c *Config) { c.Matching.MinThreshold = 0.7 }, "min_threshold"},
		{"max results", func(c *Config) { c.Matching.MaxResults = 0 }, "max_results"},
		{"recognition", func(c *Config) { c.Recognition.MinNameLength = 0 }, "invalid recognition config"},
		{"driver", func(c *Config) { c.Catalog.Driver = "sqlite" }, "invalid catalog driver"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"body size", func(c *Config) { c.Server.MaxBodyMB = 0 }, "invalid max body size"},
		{"rate limit", func(c *Config) {
			c.Server.RateLimit.Enabled = true
			c.Server.RateLimit.RequestsPerMinute = 0
		}, "invalid rate limit"},
		{"batch workers", func(c *Config) { c.Batch.Workers = 0 }, "invalid batch workers"},
		{"queue concurrency", func(c *Config) { c.Queue.Concurrency = -1 }, "invalid queue concurrency"},
		{"queue timeout", func(c *Config) { c.Queue.TimeoutSec = 0 }, "invalid queue timeout"},
		{"queue retention", func(c *Config) { c.Queue.RetentionHours = -1 }, "invalid queue retention"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_DriverCaseInsensitive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Catalog.Driver = "File"
	assert.NoError(t, cfg.Validate())
}

func TestEngineOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts, err := cfg.EngineOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 3)

	cfg.VocabularyFile = "/nonexistent/vocab.yaml"
	_, err = cfg.EngineOptions()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load vocabulary")
}
