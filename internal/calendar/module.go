// Package calendar provides the calendar event bounded context module.
package calendar

import (
	"crmhub_backend/internal/dispatch"
	apphttp "crmhub_backend/internal/http"
	"crmhub_backend/internal/schema"
	"crmhub_backend/internal/scheduler"
	"crmhub_backend/platform/logger"
	"crmhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the calendar bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
	log     *logger.Logger
}

// NewModule creates the calendar module and registers its store with the
// dispatcher.
func NewModule(pool *pgxpool.Pool, dispatcher *dispatch.Dispatcher, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	dispatcher.Register(schema.KindCalendarEvent, repo)

	return &Module{handler: NewHandler(dispatcher, val, log), repo: repo, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "calendar"
}

// SetReminderScheduler wires the optional background reminder scheduler.
func (m *Module) SetReminderScheduler(s scheduler.ReminderScheduler) {
	m.handler.SetReminderScheduler(s)
}

// ReminderNotifier returns the worker-side reminder delivery dependency.
func (m *Module) ReminderNotifier() *ReminderNotifier {
	return NewReminderNotifier(m.repo, m.log)
}

// RegisterRoutes mounts calendar routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/calendar/events")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.Get)
	group.PATCH("/:id", m.handler.Update)
	group.DELETE("/:id", m.handler.Delete)
}

var _ apphttp.Module = (*Module)(nil)
