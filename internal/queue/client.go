package queue

import (
	"context"
	"fmt"

	"github.com/MeKo-Tech/holdscan/internal/matcher"
	"github.com/hibiken/asynq"
)

// Client submits recognition tasks.
type Client struct {
	client *asynq.Client
	config Config
}

// NewClient connects a client to the configured Redis.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Client{client: asynq.NewClient(redisOpt), config: cfg}, nil
}

// Enqueue submits one document and returns the task info. The task ID is the job ID.
func (c *Client) Enqueue(ctx context.Context, jobID string, document []byte,
	policy *matcher.Overrides) (*asynq.TaskInfo, error) {
	task, err := NewRecognizeTask(jobID, document, policy)
	if err != nil {
		return nil, err
	}

	info, err := c.client.EnqueueContext(ctx, task, c.taskOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}
	return info, nil
}

func (c *Client) taskOptions() []asynq.Option {
	opts := []asynq.Option{asynq.Queue(c.config.QueueName), asynq.MaxRetry(c.config.MaxRetry)}
	if c.config.Timeout > 0 {
		opts = append(opts, asynq.Timeout(c.config.Timeout))
	}
	if c.config.Retention > 0 {
		opts = append(opts, asynq.Retention(c.config.Retention))
	}
	return opts
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close client: %w", err)
	}
	return nil
}
