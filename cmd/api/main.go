package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crmhub_backend/internal/aiprompts"
	"crmhub_backend/internal/auth"
	"crmhub_backend/internal/calendar"
	"crmhub_backend/internal/contacts"
	"crmhub_backend/internal/conversations"
	"crmhub_backend/internal/dispatch"
	"crmhub_backend/internal/documents"
	"crmhub_backend/internal/events"
	apphttp "crmhub_backend/internal/http"
	"crmhub_backend/internal/http/router"
	"crmhub_backend/internal/integrations"
	"crmhub_backend/internal/notifications"
	"crmhub_backend/internal/pipelines"
	"crmhub_backend/internal/scheduler"
	"crmhub_backend/internal/schema"
	"crmhub_backend/internal/settings"
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
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Schema registry and mutation engine shared by every entity module
	dispatcher := dispatch.New(schema.NewRegistry(), schema.NewEngine(val), log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	authModule := auth.NewModule(pool, cfg, val, log)
	contactsModule := contacts.NewModule(pool, dispatcher, eventBus, val, log)
	conversationsModule := conversations.NewModule(pool, dispatcher, eventBus, val, log)
	aipromptsModule := aiprompts.NewModule(pool, dispatcher, val, log)
	pipelinesModule := pipelines.NewModule(pool, dispatcher)
	calendarModule := calendar.NewModule(pool, dispatcher, val, log)
	documentsModule := documents.NewModule(pool, dispatcher, val)
	settingsModule := settings.NewModule(pool, dispatcher)
	integrationsModule := integrations.NewModule(pool, dispatcher, cfg, val, log)

	if reminderScheduler != nil {
		calendarModule.SetReminderScheduler(reminderScheduler)
	}

	// Notifications subscribe to domain events (not HTTP-facing)
	var sender notifications.Sender = notifications.NoopSender{}
	if cfg.GetEmailEnabled() {
		sender = notifications.NewSMTPSender(cfg)
		log.Info("email sender initialized", "host", cfg.GetSMTPHost())
	} else {
		log.Warn("email disabled; assignment notifications will be dropped")
	}
	notifications.NewSubscriber(eventBus, sender, authModule.Service(), log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	engine := router.New(cfg, log, pool, []apphttp.Module{
		authModule,
		contactsModule,
		conversationsModule,
		aipromptsModule,
		pipelinesModule,
		calendarModule,
		documentsModule,
		settingsModule,
		integrationsModule,
	})

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.ReminderScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; calendar reminders disabled")
		return nil, nil
	}

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
