// Package integrations provides the channel integration bounded context
// module: webhook endpoint registrations per channel plus signed health
// checks.
package integrations

import (
	"context"

	"crmhub_backend/internal/dispatch"
	apphttp "crmhub_backend/internal/http"
	"crmhub_backend/internal/integrations/handler"
	"crmhub_backend/internal/integrations/repository"
	"crmhub_backend/internal/integrations/service"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/config"
	"crmhub_backend/platform/logger"
	"crmhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the integrations bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the integrations module and registers its store with the
// dispatcher.
func NewModule(pool *pgxpool.Pool, dispatcher *dispatch.Dispatcher, cfg config.WebhookConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	dispatcher.Register(schema.KindIntegration, repo)
	svc := service.New(dispatcher, repo, cfg, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "integrations"
}

// CheckAll sweeps every active integration. Exposed for the scheduler worker.
func (m *Module) CheckAll(ctx context.Context) error {
	return m.service.CheckAll(ctx)
}

// RegisterRoutes mounts integration routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/integrations")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.Get)
	group.PATCH("/:id", m.handler.Update)
	group.DELETE("/:id", m.handler.Delete)
	group.PATCH("/:id/toggle-active", m.handler.ToggleActive)
	group.POST("/:id/health-check", m.handler.HealthCheck)
}

var _ apphttp.Module = (*Module)(nil)
