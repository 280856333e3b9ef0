package scheduler

import (
	"context"
	"fmt"

	"coachdesk_backend/internal/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.AsynqQueue
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueHealthRecompute schedules a single-client health recompute.
func (c *Client) EnqueueHealthRecompute(ctx context.Context, payload HealthRecomputePayload) error {
	task, err := NewHealthRecomputeTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

// EnqueueHealthSweep schedules a health sweep.
func (c *Client) EnqueueHealthSweep(ctx context.Context, payload HealthSweepPayload) error {
	task, err := NewHealthSweepTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

// EnqueueStaleSweep schedules a stale lead sweep.
func (c *Client) EnqueueStaleSweep(ctx context.Context, payload StaleSweepPayload) error {
	task, err := NewStaleSweepTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, err := c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
