package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/ingest"
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
)

// FileResult is the outcome for one input document.
type FileResult struct {
	File     string
	UserID   string
	Report   recognizer.Report
	Err      error
	Duration time.Duration
}

// Holdings returns the flattened visible results.
func (r FileResult) Holdings() []recognizer.Holding {
	return recognizer.Holdings(r.Report.Results)
}

type fileJob struct {
	index int
	path  string
}

type fileOutcome struct {
	index  int
	result FileResult
}

// processFile decodes one document and recognizes it.
func processFile(ctx context.Context, engine *recognizer.Engine, store catalog.Store,
	path string) (res FileResult) {
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	doc, err := ingest.DecodeFile(path)
	if err != nil {
		return FileResult{File: path, Err: err}
	}
	return Recognize(ctx, engine, store, path, doc)
}

// Recognize resolves the catalog of doc and runs the engine. A document
// without usable regions yields an empty report.
func Recognize(ctx context.Context, engine *recognizer.Engine, store catalog.Store, name string,
	doc *ingest.Document) (res FileResult) {
	start := time.Now()
	res = FileResult{File: name, UserID: doc.UserID}
	defer func() { res.Duration = time.Since(start) }()

	regions, err := doc.TextRegions()
	if err != nil && !errors.Is(err, ingest.ErrNoRegions) {
		res.Err = err
		return res
	}

	assets, err := doc.Assets(ctx, store)
	if err != nil {
		res.Err = err
		return res
	}

	res.Report = engine.Analyze(regions, assets)
	return res
}

// processFilesParallel runs processFile over files with a worker pool and
// returns results in input order. Unless continueOnError is set the first
// failure cancels the remaining work and is returned.
func processFilesParallel(ctx context.Context, engine *recognizer.Engine, store catalog.Store,
	files []string, workers int, continueOnError bool, progress ProgressCallback) ([]FileResult, error) {
	if progress == nil {
		progress = NoOpProgress{}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan fileJob, len(files))
	outcomes := make(chan fileOutcome, len(files))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if err := runCtx.Err(); err != nil {
					outcomes <- fileOutcome{index: job.index, result: FileResult{File: job.path, Err: err}}
					continue
				}
				outcomes <- fileOutcome{index: job.index, result: processFile(runCtx, engine, store, job.path)}
			}
		}()
	}

	for i, path := range files {
		jobs <- fileJob{index: i, path: path}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	start := time.Now()
	progress.OnStart(len(files))
	results := make([]FileResult, len(files))
	var firstErr error
	done := 0
	for out := range outcomes {
		results[out.index] = out.result
		done++
		if err := out.result.Err; err != nil && !errors.Is(err, context.Canceled) {
			progress.OnError(out.result.File, err)
			if !continueOnError && firstErr == nil {
				firstErr = fmt.Errorf("failed to process %s: %w", out.result.File, err)
				cancel()
			}
		}
		progress.OnProgress(done, len(files))
	}
	progress.OnComplete(time.Since(start))

	if firstErr != nil {
		return results, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
