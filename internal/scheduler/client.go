package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"crmhub_backend/platform/config"
)

// Client enqueues background tasks on the shared Redis queue.
type Client struct {
	client *asynq.Client
	queue  string
}

// ReminderScheduler schedules a calendar reminder for future delivery.
type ReminderScheduler interface {
	ScheduleCalendarReminder(ctx context.Context, payload CalendarReminderPayload, runAt time.Time) error
}

// NewClient creates a task client from the scheduler configuration.
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

// Close releases the client's Redis connections.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueHealthCheck enqueues an immediate integration health check sweep.
func (c *Client) EnqueueHealthCheck(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewIntegrationHealthCheckTask(IntegrationHealthCheckPayload{RequestedAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
}

// ScheduleCalendarReminder schedules a reminder task for future delivery.
func (c *Client) ScheduleCalendarReminder(ctx context.Context, payload CalendarReminderPayload, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewCalendarReminderTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(runAt), asynq.Queue(c.queue))
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
