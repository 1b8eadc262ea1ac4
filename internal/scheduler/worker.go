package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"crmhub_backend/platform/config"
	"crmhub_backend/platform/logger"
)

// HealthChecker sweeps every active integration.
type HealthChecker interface {
	CheckAll(ctx context.Context) error
}

// ReminderNotifier delivers a due calendar reminder.
type ReminderNotifier interface {
	DeliverReminder(ctx context.Context, tenantID, eventID uuid.UUID) error
}

// Worker consumes background tasks from the shared Redis queue.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	health    HealthChecker
	reminders ReminderNotifier
	log       *logger.Logger
}

// NewWorker creates a task worker from the scheduler configuration.
func NewWorker(cfg config.SchedulerConfig, health HealthChecker, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		health: health,
		log:    log,
	}

	mux.HandleFunc(TaskIntegrationHealthCheck, w.handleHealthCheck)
	mux.HandleFunc(TaskCalendarReminderDue, w.handleCalendarReminder)

	return w, nil
}

// SetReminderNotifier wires the reminder delivery dependency.
func (w *Worker) SetReminderNotifier(notifier ReminderNotifier) {
	w.reminders = notifier
}

// Run serves tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleHealthCheck(ctx context.Context, _ *asynq.Task) error {
	if w.health == nil {
		return nil
	}
	started := time.Now()
	if err := w.health.CheckAll(ctx); err != nil {
		return err
	}
	w.log.Info("integration health sweep complete", "took_ms", time.Since(started).Milliseconds())
	return nil
}

func (w *Worker) handleCalendarReminder(ctx context.Context, task *asynq.Task) error {
	if w.reminders == nil {
		return nil
	}

	payload, err := ParseCalendarReminderPayload(task)
	if err != nil {
		return err
	}

	eventID, err := uuid.Parse(payload.EventID)
	if err != nil {
		return err
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return err
	}

	return w.reminders.DeliverReminder(ctx, tenantID, eventID)
}

// HealthCheckTicker periodically enqueues an integration health sweep.
type HealthCheckTicker struct {
	client   *Client
	interval time.Duration
	log      *logger.Logger
}

// NewHealthCheckTicker creates the periodic health check enqueuer.
func NewHealthCheckTicker(client *Client, interval time.Duration, log *logger.Logger) *HealthCheckTicker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &HealthCheckTicker{client: client, interval: interval, log: log}
}

// Run enqueues a sweep every interval until the context is cancelled.
func (t *HealthCheckTicker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.client.EnqueueHealthCheck(ctx); err != nil {
				t.log.Error("failed to enqueue health check", "error", err)
			}
		}
	}
}
