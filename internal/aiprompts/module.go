// Package aiprompts provides the AI prompt configuration bounded context
// module. Prompts are versioned configuration records; no model calls happen
// here.
package aiprompts

import (
	"crmhub_backend/internal/aiprompts/handler"
	"crmhub_backend/internal/aiprompts/repository"
	"crmhub_backend/internal/aiprompts/service"
	"crmhub_backend/internal/dispatch"
	apphttp "crmhub_backend/internal/http"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/logger"
	"crmhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the AI prompts bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the AI prompts module and registers its store with the
// dispatcher.
func NewModule(pool *pgxpool.Pool, dispatcher *dispatch.Dispatcher, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	dispatcher.Register(schema.KindAIPrompt, repo)
	svc := service.New(dispatcher, repo, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "aiprompts"
}

// RegisterRoutes mounts AI prompt routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/ai-prompts")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.Get)
	group.PATCH("/:id", m.handler.Update)
	group.DELETE("/:id", m.handler.Delete)
	group.POST("/:id/versions", m.handler.CreateVersion)
	group.PATCH("/:id/toggle-active", m.handler.ToggleActive)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
