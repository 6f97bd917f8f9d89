package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/holdscan/internal/catalog"
	"github.com/MeKo-Tech/holdscan/internal/ingest"
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
	"github.com/hibiken/asynq"
)

// Handler processes TypeRecognize tasks.
type Handler struct {
	engine *recognizer.Engine
	store  catalog.Store
	logger *slog.Logger
}

// NewHandler creates a task handler. A nil store means documents must carry
// their own catalog.
func NewHandler(engine *recognizer.Engine, store catalog.Store, logger *slog.Logger) (*Handler, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, store: store, logger: logger}, nil
}

// ProcessTask implements asynq.Handler. Malformed payloads are not retried;
// catalog lookups that fail for other reasons are.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload RecognizePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	res, err := h.Recognize(ctx, payload)
	if err != nil {
		h.logger.Warn("Recognition task failed", "job_id", payload.JobID, "error", err)
		return err
	}

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if w := task.ResultWriter(); w != nil {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}

	h.logger.Info("Recognition task completed",
		"job_id", res.JobID, "holdings", len(res.Holdings), "processor", res.Processor, "duration_ms", res.DurationMS)
	return nil
}

// Recognize runs one payload through the engine.
func (h *Handler) Recognize(ctx context.Context, payload RecognizePayload) (Result, error) {
	start := time.Now()

	doc, err := ingest.DecodeBytes(payload.Document)
	if err != nil {
		return Result{}, fmt.Errorf("invalid document: %w: %w", err, asynq.SkipRetry)
	}
	policy, err := payload.Policy.Apply(h.engine.Policy())
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	regions, err := doc.TextRegions()
	if err != nil && !errors.Is(err, ingest.ErrNoRegions) {
		return Result{}, fmt.Errorf("invalid document: %w: %w", err, asynq.SkipRetry)
	}

	assets, err := doc.Assets(ctx, h.store)
	if err != nil {
		if errors.Is(err, catalog.ErrUserRequired) {
			return Result{}, fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return Result{}, err
	}

	report := h.engine.WithPolicy(policy).Analyze(regions, assets)
	return Result{
		JobID:        payload.JobID,
		UserID:       doc.UserID,
		Holdings:     recognizer.Holdings(report.Results),
		Processor:    report.Processor.String(),
		FallbackUsed: report.FallbackUsed,
		DurationMS:   float64(time.Since(start).Microseconds()) / 1000,
	}, nil
}
