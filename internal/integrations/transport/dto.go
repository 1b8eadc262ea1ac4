package transport

// ListIntegrationsRequest carries the supported integration list filters.
type ListIntegrationsRequest struct {
	Channel string `form:"channel" validate:"omitempty,oneof=whatsapp email chat phone other"`
	Active  string `form:"active" validate:"omitempty,oneof=true false"`
}

// HealthResult is the outcome of one webhook health check.
type HealthResult struct {
	Healthy    bool   `json:"healthy"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}
