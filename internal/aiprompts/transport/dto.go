package transport

// ListPromptsRequest carries the supported AI prompt list filters.
type ListPromptsRequest struct {
	ContextType string `form:"context_type" validate:"omitempty,max=50"`
	Channel     string `form:"channel" validate:"omitempty,max=50"`
	Active      string `form:"active" validate:"omitempty,oneof=true false"`
	ParentID    string `form:"parent_id" validate:"omitempty,uuid"`
}
