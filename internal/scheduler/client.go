package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"trainhub_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
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

// ScheduleFollowUpSweep enqueues a sweep task to run at the given time.
func (c *Client) ScheduleFollowUpSweep(ctx context.Context, payload FollowUpSweepPayload, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewFollowUpSweepTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(runAt), asynq.Queue(c.queue))
	return err
}

// EnqueueNotificationDispatch enqueues an immediate outbox drain.
func (c *Client) EnqueueNotificationDispatch(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, err := c.client.EnqueueContext(ctx, NewNotificationDispatchTask(), asynq.Queue(c.queue))
	return err
}

// EnqueueFundingSync enqueues an immediate funding-body poll.
func (c *Client) EnqueueFundingSync(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, err := c.client.EnqueueContext(ctx, NewFundingSyncTask(), asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
