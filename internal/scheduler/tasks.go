package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskIntegrationHealthCheck = "integrations.health_check_due"

const TaskCalendarReminderDue = "calendar.reminder_due"

type IntegrationHealthCheckPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

type CalendarReminderPayload struct {
	EventID  string `json:"eventId"`
	TenantID string `json:"tenantId"`
}

func NewIntegrationHealthCheckTask(payload IntegrationHealthCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrationHealthCheck, data), nil
}

func NewCalendarReminderTask(payload CalendarReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCalendarReminderDue, data), nil
}

func ParseCalendarReminderPayload(task *asynq.Task) (CalendarReminderPayload, error) {
	var payload CalendarReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CalendarReminderPayload{}, err
	}
	return payload, nil
}
