//nolint:lll
package config

import (
	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/matcher"
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
)

// Config represents the complete configuration for the holdscan application.
// It includes settings for all commands (recognize, batch, serve, worker, eval) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Engine configuration
	Recognition    recognizer.Config `mapstructure:"recognition" yaml:"recognition" json:"recognition"`
	Matching       matcher.Policy    `mapstructure:"matching" yaml:"matching" json:"matching"`
	VocabularyFile string            `mapstructure:"vocabulary_file" yaml:"vocabulary_file" json:"vocabulary_file"`

	// Catalog backend
	Catalog catalog.Config `mapstructure:"catalog" yaml:"catalog" json:"catalog"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Asynchronous job queue (for worker and enqueue commands)
	Queue QueueConfig `mapstructure:"queue" yaml:"queue" json:"queue"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxBodyMB       int             `mapstructure:"max_body_mb" yaml:"max_body_mb" json:"max_body_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
}

// QueueConfig contains asynq settings.
type QueueConfig struct {
	RedisURL       string `mapstructure:"redis_url" yaml:"redis_url" json:"redis_url"`
	QueueName      string `mapstructure:"queue_name" yaml:"queue_name" json:"queue_name"`
	Concurrency    int    `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`
	MaxRetry       int    `mapstructure:"max_retry" yaml:"max_retry" json:"max_retry"`
	TimeoutSec     int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	RetentionHours int    `mapstructure:"retention_hours" yaml:"retention_hours" json:"retention_hours"`
}
