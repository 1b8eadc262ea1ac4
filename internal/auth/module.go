// Package auth provides agent authentication: credential login, JWT access
// tokens and rotated refresh tokens.
package auth

import (
	apphttp "crmhub_backend/internal/http"
	"crmhub_backend/platform/config"
	"crmhub_backend/platform/logger"
	"crmhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates the auth module.
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, cfg, log)
	h := NewHandler(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the service layer for cross-module use.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts auth routes on the provided router context. Auth
// routes are public and rate limited harder than the rest of the API.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/auth")
	group.Use(ctx.AuthRateLimiter.RateLimit())
	group.POST("/login", m.handler.Login)
	group.POST("/refresh", m.handler.Refresh)
	group.POST("/logout", m.handler.Logout)
}

var _ apphttp.Module = (*Module)(nil)
