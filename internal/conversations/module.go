// Package conversations provides the conversation and message bounded
// context module.
package conversations

import (
	"crmhub_backend/internal/conversations/handler"
	"crmhub_backend/internal/conversations/repository"
	"crmhub_backend/internal/conversations/service"
	"crmhub_backend/internal/dispatch"
	"crmhub_backend/internal/events"
	apphttp "crmhub_backend/internal/http"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/logger"
	"crmhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the conversations bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the conversations module and registers both its stores
// with the dispatcher.
func NewModule(pool *pgxpool.Pool, dispatcher *dispatch.Dispatcher, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	dispatcher.Register(schema.KindConversation, repository.New(pool))
	dispatcher.Register(schema.KindMessage, repository.NewMessages(pool))
	svc := service.New(dispatcher, bus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "conversations"
}

// Service returns the service layer for cross-module use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts conversation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/conversations")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.Get)
	group.PATCH("/:id", m.handler.Update)
	group.DELETE("/:id", m.handler.Delete)
	group.PATCH("/:id/toggle-ai", m.handler.ToggleAI)
	group.GET("/:id/messages", m.handler.ListMessages)
	group.POST("/:id/messages", m.handler.CreateMessage)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
