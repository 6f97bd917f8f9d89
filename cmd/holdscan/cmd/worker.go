package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/holdscan/internal/queue"
	"github.com/spf13/cobra"
)

func addQueueFlags(cmd *cobra.Command) {
	cmd.Flags().String("redis-url", "", "Redis URL of the job queue (default from config)")
	cmd.Flags().String("queue", "", "queue name (default from config)")
}

// queueConfig extracts the queue configuration with CLI flag overrides.
func (a *app) queueConfig(cmd *cobra.Command) queue.Config {
	qc := a.cfg.Queue
	if cmd.Flags().Changed("redis-url") {
		qc.RedisURL, _ = cmd.Flags().GetString("redis-url")
	}
	if cmd.Flags().Changed("queue") {
		qc.QueueName, _ = cmd.Flags().GetString("queue")
	}
	if f := cmd.Flags().Lookup("concurrency"); f != nil && f.Changed {
		qc.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}

	return queue.Config{
		RedisURL:    qc.RedisURL,
		QueueName:   qc.QueueName,
		Concurrency: qc.Concurrency,
		MaxRetry:    qc.MaxRetry,
		Timeout:     time.Duration(qc.TimeoutSec) * time.Second,
		Retention:   time.Duration(qc.RetentionHours) * time.Hour,
	}
}

func newWorkerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process queued recognition jobs",
		Long: `Start a worker that takes recognition jobs from the Redis-backed queue.
Results are stored with each task and kept for the configured retention.

Examples:
  holdscan worker
  holdscan worker --redis-url redis://cache:6379/1 --concurrency 8`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runWorker(cmd)
		},
	}

	addQueueFlags(cmd)
	cmd.Flags().Int("concurrency", 0, "number of jobs processed at once (default from config)")
	addPolicyFlags(cmd)

	return cmd
}

func (a *app) runWorker(cmd *cobra.Command) error {
	engine, err := a.engine(cmd)
	if err != nil {
		return err
	}
	store, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer a.closeStore(store)

	handler, err := queue.NewHandler(engine, store, a.logger)
	if err != nil {
		return err
	}
	worker, err := queue.NewWorker(a.queueConfig(cmd), handler, a.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := worker.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	worker.Shutdown()
	return nil
}
