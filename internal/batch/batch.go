// Package batch recognizes holdings across many OCR documents in parallel.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
)

// ErrNoFiles is returned when discovery finds nothing to process.
var ErrNoFiles = errors.New("no OCR documents found")

// Result holds the result of batch processing.
type Result struct {
	Files       []FileResult
	Duration    time.Duration
	WorkerCount int
}

// Stats summarizes a batch run.
type Stats struct {
	TotalFiles  int     `json:"total_files" yaml:"total_files"`
	Processed   int     `json:"processed" yaml:"processed"`
	Failed      int     `json:"failed" yaml:"failed"`
	Holdings    int     `json:"holdings" yaml:"holdings"`
	Matched     int     `json:"matched" yaml:"matched"`
	Confirmed   int     `json:"confirmed" yaml:"confirmed"`
	Fallbacks   int     `json:"fallbacks" yaml:"fallbacks"`
	Workers     int     `json:"workers" yaml:"workers"`
	DurationMS  float64 `json:"duration_ms" yaml:"duration_ms"`
	FilesPerSec float64 `json:"files_per_sec" yaml:"files_per_sec"`
}

// ProcessBatch discovers the documents named by paths and recognizes each one.
// The engine and store are shared by all workers.
func ProcessBatch(ctx context.Context, paths []string, config *Config, engine *recognizer.Engine,
	store catalog.Store) (*Result, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch configuration: %w", err)
	}

	files, err := discoverFiles(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OCR documents: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	var progress ProgressCallback = NoOpProgress{}
	if config.ShowProgress && !config.Quiet {
		progress = NewConsoleProgress(os.Stderr, "Recognizing: ").WithUpdateInterval(config.ProgressInterval)
	}

	workers := config.workers(len(files))
	start := time.Now()
	results, err := processFilesParallel(ctx, engine, store, files, workers, config.ContinueOnError, progress)
	if err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}

	return &Result{Files: results, Duration: time.Since(start), WorkerCount: workers}, nil
}

// Stats computes the run summary.
func (r *Result) Stats() Stats {
	s := Stats{TotalFiles: len(r.Files), Workers: r.WorkerCount, DurationMS: float64(r.Duration.Microseconds()) / 1000}
	for _, f := range r.Files {
		if f.Err != nil {
			s.Failed++
			continue
		}
		s.Processed++
		if f.Report.FallbackUsed {
			s.Fallbacks++
		}
		for _, m := range f.Report.Results {
			s.Holdings++
			if m.AssetID != nil {
				s.Matched++
			}
			if m.Confirmed {
				s.Confirmed++
			}
		}
	}
	if secs := r.Duration.Seconds(); secs > 0 {
		s.FilesPerSec = float64(s.Processed) / secs
	}
	return s
}

// Write renders the results in format to w.
func (r *Result) Write(w io.Writer, format string) error {
	return writeResults(w, r, format)
}

// SaveResults writes the formatted results to outputFile, or to stdout when
// outputFile is empty.
func (r *Result) SaveResults(format, outputFile string, stdout io.Writer, quiet bool) error {
	if outputFile == "" {
		return r.Write(stdout, format)
	}

	f, err := os.Create(outputFile) //nolint:gosec // G304: path comes from the --output flag
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := r.Write(f, format); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to format results: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if !quiet {
		_, _ = fmt.Fprintf(stdout, "Results written to %s\n", outputFile)
	}
	return nil
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	s := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total files: %d\n", s.TotalFiles)
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", s.Processed)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "  Holdings: %d (matched %d, confirmed %d)\n", s.Holdings, s.Matched, s.Confirmed)
	_, _ = fmt.Fprintf(w, "  Layout fallbacks: %d\n", s.Fallbacks)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", s.Workers)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f files/sec\n", s.FilesPerSec)
}
