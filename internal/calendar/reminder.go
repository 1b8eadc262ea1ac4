package calendar

import (
	"context"
	"time"

	"github.com/google/uuid"

	"crmhub_backend/internal/schema"
	"crmhub_backend/internal/scheduler"
	"crmhub_backend/platform/logger"
)

// scheduleReminder enqueues the event's reminder task when one applies. A
// failed enqueue never fails the create; the event itself is already stored.
func (h *Handler) scheduleReminder(ctx context.Context, tenantID uuid.UUID, rec schema.Record) {
	if h.reminders == nil {
		return
	}
	minutes := rec.Int("reminder_minutes")
	if minutes <= 0 {
		return
	}
	id := rec.ID("id")
	if id == nil {
		return
	}

	runAt := rec.Time("starts_at").Add(-time.Duration(minutes) * time.Minute)
	if runAt.Before(time.Now()) {
		return
	}

	payload := scheduler.CalendarReminderPayload{
		EventID:  id.String(),
		TenantID: tenantID.String(),
	}
	if err := h.reminders.ScheduleCalendarReminder(ctx, payload, runAt); err != nil {
		h.log.Error("failed to schedule calendar reminder", "event_id", id.String(), "error", err)
	}
}

// ReminderNotifier delivers due calendar reminders from the worker.
type ReminderNotifier struct {
	repo *Repository
	log  *logger.Logger
}

// NewReminderNotifier creates the worker-side reminder delivery dependency.
func NewReminderNotifier(repo *Repository, log *logger.Logger) *ReminderNotifier {
	return &ReminderNotifier{repo: repo, log: log}
}

// DeliverReminder surfaces the reminder. Events may have been deleted or
// rescheduled since the task was enqueued; a stale reminder is dropped.
func (n *ReminderNotifier) DeliverReminder(ctx context.Context, tenantID, eventID uuid.UUID) error {
	rec, err := n.repo.Get(ctx, tenantID, eventID)
	if err != nil {
		n.log.Info("calendar reminder dropped, event gone", "event_id", eventID.String())
		return nil
	}

	n.log.Info("calendar reminder due",
		"event_id", eventID.String(),
		"tenant_id", tenantID.String(),
		"title", rec.String("title"),
		"starts_at", rec.Time("starts_at").Format(time.RFC3339),
	)
	return nil
}
