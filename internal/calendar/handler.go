package calendar

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crmhub_backend/internal/dispatch"
	"crmhub_backend/internal/schema"
	"crmhub_backend/internal/scheduler"
	"crmhub_backend/platform/apperr"
	"crmhub_backend/platform/httpkit"
	"crmhub_backend/platform/logger"
	"crmhub_backend/platform/validator"
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidID      = "invalid event ID"
)

// ListEventsRequest carries the supported calendar list filters.
type ListEventsRequest struct {
	From      string `form:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To        string `form:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	ContactID string `form:"contact_id" validate:"omitempty,uuid"`
}

// Handler handles HTTP requests for calendar events.
type Handler struct {
	dispatcher *dispatch.Dispatcher
	val        *validator.Validator
	reminders  scheduler.ReminderScheduler
	log        *logger.Logger
}

// NewHandler creates a new calendar handler.
func NewHandler(dispatcher *dispatch.Dispatcher, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, val: val, log: log}
}

// SetReminderScheduler wires the optional background reminder scheduler.
func (h *Handler) SetReminderScheduler(s scheduler.ReminderScheduler) {
	h.reminders = s
}

func (h *Handler) tenantID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, false
	}
	return httpkit.MustGetTenantID(c, identity)
}

// List retrieves events, optionally bounded to a time window.
// GET /api/v1/calendar/events
func (h *Handler) List(c *gin.Context) {
	var req ListEventsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	filters := dispatch.Filters{"from": req.From, "to": req.To, "contact_id": req.ContactID}
	result, err := h.dispatcher.List(c.Request.Context(), schema.KindCalendarEvent, tenantID, filters)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get retrieves an event by ID.
// GET /api/v1/calendar/events/:id
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

	result, err := h.dispatcher.Get(c.Request.Context(), schema.KindCalendarEvent, tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create creates a new event.
// POST /api/v1/calendar/events
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

	result, err := h.dispatcher.Create(c.Request.Context(), schema.KindCalendarEvent, tenantID, raw)
	if httpkit.HandleError(c, err) {
		return
	}
	h.scheduleReminder(c.Request.Context(), tenantID, result)
	httpkit.Created(c, result)
}

// Update applies a sparse update. When the patch moves only one edge of the
// time window, the merged window is still checked against the stored edge.
// PATCH /api/v1/calendar/events/:id
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
	ctx := c.Request.Context()

	patch, err := h.dispatcher.PrepareUpdate(schema.KindCalendarEvent, raw)
	if httpkit.HandleError(c, err) {
		return
	}
	if patch.Has("starts_at") != patch.Has("ends_at") {
		current, err := h.dispatcher.Get(ctx, schema.KindCalendarEvent, tenantID, id)
		if httpkit.HandleError(c, err) {
			return
		}
		starts := current.Time("starts_at")
		if patch.Has("starts_at") {
			starts = patch.Time("starts_at")
		}
		ends := current.Time("ends_at")
		if patch.Has("ends_at") {
			ends = patch.Time("ends_at")
		}
		if !ends.After(starts) {
			httpkit.HandleError(c, apperr.ValidationFields([]apperr.FieldError{
				{Field: "ends_at", Message: "must be after starts_at"},
			}))
			return
		}
	}

	result, err := h.dispatcher.Update(ctx, schema.KindCalendarEvent, tenantID, id, raw)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes an event.
// DELETE /api/v1/calendar/events/:id
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

	if err := h.dispatcher.Delete(c.Request.Context(), schema.KindCalendarEvent, tenantID, id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
