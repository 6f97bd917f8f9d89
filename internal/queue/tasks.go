// Package queue runs recognition as asynq background tasks backed by Redis.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MeKo-Tech/holdscan/internal/ingest"
	"github.com/MeKo-Tech/holdscan/internal/matcher"
	"github.com/MeKo-Tech/holdscan/internal/recognizer"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypeRecognize is the asynq task type for one page.
const TypeRecognize = "holdscan:recognize"

// RecognizePayload is the task payload. Document holds any layout accepted
// by ingest.DecodeBytes.
type RecognizePayload struct {
	JobID    string             `json:"job_id"`
	Document json.RawMessage    `json:"document"`
	Policy   *matcher.Overrides `json:"policy,omitempty"`
}

// Result is stored as the task result once recognition completes.
type Result struct {
	JobID        string               `json:"job_id"`
	UserID       string               `json:"user_id,omitempty"`
	Holdings     []recognizer.Holding `json:"holdings"`
	Processor    string               `json:"processor"`
	FallbackUsed bool                 `json:"fallback_used"`
	DurationMS   float64              `json:"duration_ms"`
}

// Config holds queue connection and task settings.
type Config struct {
	RedisURL    string
	QueueName   string
	Concurrency int
	MaxRetry    int
	Timeout     time.Duration
	Retention   time.Duration
}

func (c Config) validate() error {
	if c.RedisURL == "" {
		return errors.New("redis URL is required")
	}
	if c.QueueName == "" {
		return errors.New("queue name is required")
	}
	return nil
}

// NewRecognizeTask checks that document decodes and wraps it in a task. An
// empty jobID is replaced by a random UUID; it doubles as the asynq task ID.
func NewRecognizeTask(jobID string, document []byte, policy *matcher.Overrides) (*asynq.Task, error) {
	if _, err := ingest.DecodeBytes(document); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	if _, err := policy.Apply(matcher.DefaultPolicy()); err != nil {
		return nil, err
	}
	if jobID == "" {
		jobID = uuid.NewString()
	}

	payload, err := json.Marshal(RecognizePayload{JobID: jobID, Document: document, Policy: policy})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return asynq.NewTask(TypeRecognize, payload, asynq.TaskID(jobID)), nil
}
