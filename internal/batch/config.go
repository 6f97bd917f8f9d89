package batch

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"time"
)

// Formats lists the supported output formats.
var Formats = []string{"text", "json", "csv", "yaml", "parquet"}

// Config holds all configuration for batch recognition.
type Config struct {
	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings
	Format     string
	OutputFile string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ShowStats        bool
	ProgressInterval time.Duration
}

// DefaultConfig returns the batch defaults: one worker per CPU, OCR
// documents in JSON or YAML, plain-text output.
func DefaultConfig() Config {
	return Config{
		Workers:          runtime.NumCPU(),
		IncludePatterns:  []string{"*.json", "*.yaml", "*.yml"},
		Format:           "text",
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return errors.New("workers cannot be negative")
	}
	if c.Format != "" && !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("unsupported output format %q", c.Format)
	}
	if c.Format == "parquet" && c.OutputFile == "" {
		return errors.New("parquet output requires an output file")
	}
	if c.ProgressInterval < 0 {
		return errors.New("progress interval cannot be negative")
	}
	return nil
}

func (c *Config) workers(jobs int) int {
	n := c.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return max(1, min(n, jobs))
}
