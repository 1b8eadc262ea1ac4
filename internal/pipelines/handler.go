package pipelines

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crmhub_backend/internal/dispatch"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/httpkit"
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidID      = "invalid pipeline ID"
)

// Handler handles HTTP requests for pipelines and their stages. Pipelines
// carry no extra business logic, so the handler talks to the dispatcher
// directly.
type Handler struct {
	dispatcher *dispatch.Dispatcher
}

// NewHandler creates a new pipelines handler.
func NewHandler(dispatcher *dispatch.Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

func (h *Handler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, false
	}
	return httpkit.MustGetTenantID(c, identity)
}

// List retrieves all pipelines of the tenant.
// GET /api/v1/pipelines
func (h *Handler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	result, err := h.dispatcher.List(c.Request.Context(), schema.KindPipeline, tenantID, nil)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get retrieves a pipeline by ID.
// GET /api/v1/pipelines/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	result, err := h.dispatcher.Get(c.Request.Context(), schema.KindPipeline, tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create creates a new pipeline.
// POST /api/v1/pipelines
func (h *Handler) Create(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	result, err := h.dispatcher.Create(c.Request.Context(), schema.KindPipeline, tenantID, raw)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// Update applies a sparse update to a pipeline.
// PATCH /api/v1/pipelines/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	result, err := h.dispatcher.Update(c.Request.Context(), schema.KindPipeline, tenantID, id, raw)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes a pipeline and its stages.
// DELETE /api/v1/pipelines/:id
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	if err := h.dispatcher.Delete(c.Request.Context(), schema.KindPipeline, tenantID, id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// ListStages retrieves the pipeline's stages in display order.
// GET /api/v1/pipelines/:id/stages
func (h *Handler) ListStages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	filters := dispatch.Filters{"pipeline_id": id.String()}
	result, err := h.dispatcher.List(c.Request.Context(), schema.KindPipelineStage, tenantID, filters)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateStage adds a stage to the pipeline. The route's pipeline ID wins over
// whatever the payload carries.
// POST /api/v1/pipelines/:id/stages
func (h *Handler) CreateStage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	raw["pipeline_id"] = id.String()
	result, err := h.dispatcher.Create(c.Request.Context(), schema.KindPipelineStage, tenantID, raw)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// UpdateStage applies a sparse update to a stage.
// PATCH /api/v1/pipeline-stages/:stageId
func (h *Handler) UpdateStage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("stageId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid stage ID", nil)
		return
	}

	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	result, err := h.dispatcher.Update(c.Request.Context(), schema.KindPipelineStage, tenantID, id, raw)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeleteStage removes a stage.
// DELETE /api/v1/pipeline-stages/:stageId
func (h *Handler) DeleteStage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("stageId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid stage ID", nil)
		return
	}
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	if err := h.dispatcher.Delete(c.Request.Context(), schema.KindPipelineStage, tenantID, id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
