package transport

// ListConversationsRequest carries the supported conversation list filters.
type ListConversationsRequest struct {
	Status     string `form:"status" validate:"omitempty,oneof=open closed transferred waiting"`
	Channel    string `form:"channel" validate:"omitempty,oneof=whatsapp email chat phone other"`
	Priority   string `form:"priority" validate:"omitempty,oneof=low normal high urgent"`
	ContactID  string `form:"contact_id" validate:"omitempty,uuid"`
	AssignedTo string `form:"assigned_to" validate:"omitempty,uuid"`
}

// ListMessagesRequest carries the supported message list filters.
type ListMessagesRequest struct {
	SenderType string `form:"sender_type" validate:"omitempty,oneof=human ai system"`
	Direction  string `form:"direction" validate:"omitempty,oneof=inbound outbound"`
}
