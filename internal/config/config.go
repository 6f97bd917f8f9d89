package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/matcher"
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
	"github.com/MeKo-Tech/holdscan/internal/vocab"
)

const infoLevel = "info"

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:    infoLevel,
		Verbose:     false,
		Recognition: recognizer.DefaultConfig(),
		Matching:    matcher.DefaultPolicy(),
		Catalog:     catalog.DefaultConfig(),
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxBodyMB:       8,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 120,
				RequestsPerHour:   3000,
			},
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: false,
		},
		Queue: QueueConfig{
			RedisURL:       "redis://localhost:6379/0",
			QueueName:      "default",
			Concurrency:    4,
			MaxRetry:       3,
			TimeoutSec:     60,
			RetentionHours: 24,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv", "yaml", "parquet"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if err := c.Recognition.Validate(); err != nil {
		return fmt.Errorf("invalid recognition config: %w", err)
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("invalid matching config: %w", err)
	}

	if !slices.Contains(catalog.Drivers, strings.ToLower(c.Catalog.Driver)) {
		return fmt.Errorf("invalid catalog driver: %s (must be one of: %s)", c.Catalog.Driver, strings.Join(catalog.Drivers, ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxBodyMB <= 0 {
		return fmt.Errorf("invalid max body size: %d (must be positive)", c.Server.MaxBodyMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.RequestsPerMinute <= 0 || c.Server.RateLimit.RequestsPerHour <= 0) {
		return fmt.Errorf("invalid rate limit: %d/min %d/h (must be positive)",
			c.Server.RateLimit.RequestsPerMinute, c.Server.RateLimit.RequestsPerHour)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	if c.Queue.Concurrency <= 0 {
		return fmt.Errorf("invalid queue concurrency: %d (must be positive)", c.Queue.Concurrency)
	}
	if c.Queue.MaxRetry < 0 {
		return fmt.Errorf("invalid queue max retry: %d (must not be negative)", c.Queue.MaxRetry)
	}
	if c.Queue.TimeoutSec <= 0 {
		return fmt.Errorf("invalid queue timeout: %d (must be positive)", c.Queue.TimeoutSec)
	}
	if c.Queue.RetentionHours < 0 {
		return fmt.Errorf("invalid queue retention: %d (must not be negative)", c.Queue.RetentionHours)
	}

	return nil
}

// LoadVocabulary returns the configured vocabulary, or the embedded default.
func (c *Config) LoadVocabulary() (*vocab.Vocabulary, error) {
	v, err := vocab.Load(c.VocabularyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}
	return v, nil
}

// EngineOptions converts the config into recognizer options.
func (c *Config) EngineOptions() ([]recognizer.Option, error) {
	v, err := c.LoadVocabulary()
	if err != nil {
		return nil, err
	}
	return []recognizer.Option{
		recognizer.WithConfig(c.Recognition),
		recognizer.WithPolicy(c.Matching),
		recognizer.WithVocabulary(v),
	}, nil
}
