// Package contacts provides the contact bounded context module.
package contacts

import (
	"crmhub_backend/internal/contacts/handler"
	"crmhub_backend/internal/contacts/repository"
	"crmhub_backend/internal/contacts/service"
	"crmhub_backend/internal/dispatch"
	"crmhub_backend/internal/events"
	apphttp "crmhub_backend/internal/http"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/logger"
	"crmhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the contacts bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repo
}

// NewModule creates the contacts module and registers its store with the
// dispatcher.
func NewModule(pool *pgxpool.Pool, dispatcher *dispatch.Dispatcher, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	dispatcher.Register(schema.KindContact, repo)
	svc := service.New(dispatcher, bus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "contacts"
}

// Service returns the service layer for cross-module use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts contact routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/contacts")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.Get)
	group.PATCH("/:id", m.handler.Update)
	group.DELETE("/:id", m.handler.Delete)
	group.PATCH("/:id/toggle-ai", m.handler.ToggleAI)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
