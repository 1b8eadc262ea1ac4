// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"net/http"

	"crmhub_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// DataResponse wraps successful payloads so every endpoint shares one shape.
type DataResponse struct {
	Data interface{} `json:"data"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Data sends the payload wrapped in the uniform {data: ...} envelope.
func Data(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, DataResponse{Data: payload})
}

// OK sends a 200 OK response with the payload in the data envelope.
func OK(c *gin.Context, payload interface{}) {
	Data(c, http.StatusOK, payload)
}

// Created sends a 201 Created response with the payload in the data envelope.
func Created(c *gin.Context, payload interface{}) {
	Data(c, http.StatusCreated, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// HandleError maps domain errors to HTTP responses.
// If the error is a typed *apperr.Error, it uses the error's Kind to determine
// the HTTP status code. Otherwise, it defaults to 400 Bad Request.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	if domainErr, ok := err.(*apperr.Error); ok {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:   domainErr.Message,
			Details: domainErr.Details,
		})
		return true
	}

	// Fallback for non-typed errors
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	return true
}
