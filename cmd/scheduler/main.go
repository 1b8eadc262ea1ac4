package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crmhub_backend/internal/calendar"
	"crmhub_backend/internal/dispatch"
	"crmhub_backend/internal/integrations"
	"crmhub_backend/internal/scheduler"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/config"
	"crmhub_backend/platform/db"
	"crmhub_backend/platform/logger"
	"crmhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	val := validator.New()
	dispatcher := dispatch.New(schema.NewRegistry(), schema.NewEngine(val), log)

	// Worker-side module wiring (no HTTP handlers required).
	integrationsModule := integrations.NewModule(pool, dispatcher, cfg, val, log)
	calendarModule := calendar.NewModule(pool, dispatcher, val, log)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	ticker := scheduler.NewHealthCheckTicker(client, cfg.GetHealthCheckInterval(), log)
	go ticker.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, integrationsModule, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}
	worker.SetReminderNotifier(calendarModule.ReminderNotifier())

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
