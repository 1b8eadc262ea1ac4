package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crmhub_backend/internal/aiprompts/service"
	"crmhub_backend/internal/aiprompts/transport"
	"crmhub_backend/platform/httpkit"
	"crmhub_backend/platform/validator"
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidID      = "invalid prompt ID"
)

// Handler handles HTTP requests for AI prompt configuration.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new AI prompts handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List retrieves prompts with optional filters.
// GET /api/v1/ai-prompts
func (h *Handler) List(c *gin.Context) {
	var req transport.ListPromptsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.List(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get retrieves a prompt by ID.
// GET /api/v1/ai-prompts/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create creates a new prompt at version 1.
// POST /api/v1/ai-prompts
func (h *Handler) Create(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), tenantID, raw)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// Update applies a sparse update to an existing prompt.
// PATCH /api/v1/ai-prompts/:id
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
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.Update(c.Request.Context(), tenantID, id, raw)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes a prompt version.
// DELETE /api/v1/ai-prompts/:id
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), tenantID, id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateVersion creates the next version of an existing prompt.
// POST /api/v1/ai-prompts/:id/versions
func (h *Handler) CreateVersion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	raw := map[string]any{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&raw); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.CreateVersion(c.Request.Context(), tenantID, id, raw)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// ToggleActive flips the prompt's active flag.
// PATCH /api/v1/ai-prompts/:id/toggle-active
func (h *Handler) ToggleActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.ToggleActive(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
