// Package settings provides the per-tenant workspace settings module.
package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"crmhub_backend/internal/dispatch"
	apphttp "crmhub_backend/internal/http"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/httpkit"
)

// Module is the settings bounded context module implementing http.Module.
type Module struct {
	dispatcher *dispatch.Dispatcher
}

// NewModule creates the settings module and registers its store with the
// dispatcher.
func NewModule(pool *pgxpool.Pool, dispatcher *dispatch.Dispatcher) *Module {
	dispatcher.Register(schema.KindSettings, NewRepository(pool))
	return &Module{dispatcher: dispatcher}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "settings"
}

// RegisterRoutes mounts settings routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/settings")
	group.GET("", m.get)
	group.PATCH("", m.update)
}

func (m *Module) tenantID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, false
	}
	return httpkit.MustGetTenantID(c, identity)
}

// The settings record is a per-tenant singleton, so routes carry no ID and
// the store is addressed by tenant alone.
func (m *Module) get(c *gin.Context) {
	tenantID, ok := m.tenantID(c)
	if !ok {
		return
	}

	result, err := m.dispatcher.Get(c.Request.Context(), schema.KindSettings, tenantID, uuid.Nil)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (m *Module) update(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	tenantID, ok := m.tenantID(c)
	if !ok {
		return
	}

	result, err := m.dispatcher.Update(c.Request.Context(), schema.KindSettings, tenantID, uuid.Nil, raw)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

var _ apphttp.Module = (*Module)(nil)
