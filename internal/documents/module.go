// Package documents provides the knowledge base document bounded context
// module. Documents are text records; binary file storage is out of scope.
package documents

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"crmhub_backend/internal/dispatch"
	apphttp "crmhub_backend/internal/http"
	"crmhub_backend/internal/schema"
	"crmhub_backend/platform/httpkit"
	"crmhub_backend/platform/validator"
)

const msgInvalidID = "invalid document ID"

// ListDocumentsRequest carries the supported document list filters.
type ListDocumentsRequest struct {
	Category  string `form:"category" validate:"omitempty,max=100"`
	Tag       string `form:"tag" validate:"omitempty,max=100"`
	Published string `form:"published" validate:"omitempty,oneof=true false"`
	Search    string `form:"search" validate:"omitempty,max=255"`
}

// Module is the documents bounded context module implementing http.Module.
type Module struct {
	dispatcher *dispatch.Dispatcher
	val        *validator.Validator
}

// NewModule creates the documents module and registers its store with the
// dispatcher.
func NewModule(pool *pgxpool.Pool, dispatcher *dispatch.Dispatcher, val *validator.Validator) *Module {
	dispatcher.Register(schema.KindDocument, NewRepository(pool))
	return &Module{dispatcher: dispatcher, val: val}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "documents"
}

// RegisterRoutes mounts document routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/documents")
	group.GET("", m.list)
	group.POST("", m.create)
	group.GET("/:id", m.get)
	group.PATCH("/:id", m.update)
	group.DELETE("/:id", m.delete)
}

func (m *Module) tenantID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, false
	}
	return httpkit.MustGetTenantID(c, identity)
}

func (m *Module) list(c *gin.Context) {
	var req ListDocumentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := m.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	tenantID, ok := m.tenantID(c)
	if !ok {
		return
	}

	filters := dispatch.Filters{
		"category":  req.Category,
		"tag":       req.Tag,
		"published": req.Published,
		"search":    req.Search,
	}
	result, err := m.dispatcher.List(c.Request.Context(), schema.KindDocument, tenantID, filters)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (m *Module) get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := m.tenantID(c)
	if !ok {
		return
	}

	result, err := m.dispatcher.Get(c.Request.Context(), schema.KindDocument, tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (m *Module) create(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	tenantID, ok := m.tenantID(c)
	if !ok {
		return
	}

	result, err := m.dispatcher.Create(c.Request.Context(), schema.KindDocument, tenantID, raw)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

func (m *Module) update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	tenantID, ok := m.tenantID(c)
	if !ok {
		return
	}

	result, err := m.dispatcher.Update(c.Request.Context(), schema.KindDocument, tenantID, id, raw)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (m *Module) delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := m.tenantID(c)
	if !ok {
		return
	}

	if err := m.dispatcher.Delete(c.Request.Context(), schema.KindDocument, tenantID, id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

var _ apphttp.Module = (*Module)(nil)
