package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crmhub_backend/platform/httpkit"
	"crmhub_backend/platform/validator"
)

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// RefreshRequest carries a refresh token for rotation or logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// Handler handles HTTP requests for authentication.
type Handler struct {
	svc *Service
	val *validator.Validator
}

// NewHandler creates a new auth handler.
func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Login exchanges credentials for a token pair.
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, pair)
}

// Refresh rotates a refresh token.
// POST /api/v1/auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, pair)
}

// Logout revokes a refresh token.
// POST /api/v1/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
