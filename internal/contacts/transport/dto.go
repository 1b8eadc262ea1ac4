package transport

// ListContactsRequest carries the supported contact list filters.
type ListContactsRequest struct {
	Status     string `form:"status" validate:"omitempty,oneof=lead prospect client inactive"`
	PipelineID string `form:"pipeline_id" validate:"omitempty,uuid"`
	Search     string `form:"search" validate:"omitempty,max=255"`
	Tag        string `form:"tag" validate:"omitempty,max=100"`
}
