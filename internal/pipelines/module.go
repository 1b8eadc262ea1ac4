// Package pipelines provides the sales pipeline bounded context module.
package pipelines

import (
	"crmhub_backend/internal/dispatch"
	apphttp "crmhub_backend/internal/http"
	"crmhub_backend/internal/schema"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the pipelines bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule creates the pipelines module and registers both its stores with
// the dispatcher.
func NewModule(pool *pgxpool.Pool, dispatcher *dispatch.Dispatcher) *Module {
	dispatcher.Register(schema.KindPipeline, NewRepository(pool))
	dispatcher.Register(schema.KindPipelineStage, NewStageRepository(pool))

	return &Module{handler: NewHandler(dispatcher)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pipelines"
}

// RegisterRoutes mounts pipeline routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/pipelines")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
	group.GET("/:id", m.handler.Get)
	group.PATCH("/:id", m.handler.Update)
	group.DELETE("/:id", m.handler.Delete)
	group.GET("/:id/stages", m.handler.ListStages)
	group.POST("/:id/stages", m.handler.CreateStage)

	stages := ctx.Protected.Group("/pipeline-stages")
	stages.PATCH("/:stageId", m.handler.UpdateStage)
	stages.DELETE("/:stageId", m.handler.DeleteStage)
}

var _ apphttp.Module = (*Module)(nil)
