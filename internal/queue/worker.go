package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
)

// Worker consumes recognition tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
	config Config
}

// NewWorker builds a worker for cfg.QueueName. Tasks in the "default" queue
// are served at a lower priority when QueueName differs.
func NewWorker(cfg Config, handler *Handler, logger *slog.Logger) (*Worker, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	queues := map[string]int{cfg.QueueName: 10}
	if cfg.QueueName != "default" {
		queues["default"] = 1
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    cfg.Concurrency,
		Queues:         queues,
		RetryDelayFunc: retryDelay,
		Logger:         slogAdapter{logger: logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error("Task processing error", "type", task.Type(), "error", err)
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeRecognize, handler)

	return &Worker{server: server, mux: mux, logger: logger, config: cfg}, nil
}

// Start serves tasks in the background.
func (w *Worker) Start() error {
	w.logger.Info("Starting queue worker", "queue", w.config.QueueName, "concurrency", w.config.Concurrency)
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("queue worker: %w", err)
	}
	return nil
}

// Shutdown waits for active tasks and stops the worker.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
	w.logger.Info("Queue worker stopped")
}

// retryDelay backs off exponentially from 5s, capped at one minute.
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	if n >= 4 {
		return time.Minute
	}
	return time.Duration(5<<n) * time.Second
}

// slogAdapter satisfies asynq.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Debug(args ...interface{}) { a.logger.Debug(fmt.Sprint(args...)) }
func (a slogAdapter) Info(args ...interface{})  { a.logger.Info(fmt.Sprint(args...)) }
func (a slogAdapter) Warn(args ...interface{})  { a.logger.Warn(fmt.Sprint(args...)) }
func (a slogAdapter) Error(args ...interface{}) { a.logger.Error(fmt.Sprint(args...)) }
func (a slogAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
