package dto

import "time"

// ConversationSummary is one inbox row per direct-message partner.
type ConversationSummary struct {
	Partner     UserSummary           `json:"partner"`
	LastMessage DirectMessageResponse `json:"last_message"`
	UnreadCount int64                 `json:"unread_count"`
}

// ConversationDetail is the full history with one partner.
type ConversationDetail struct {
	Partner  UserSummary             `json:"partner"`
	Messages []DirectMessageResponse `json:"messages"`
}

// GroupConversationSummary is one inbox row per active group membership.
type GroupConversationSummary struct {
	Group       GroupResponse         `json:"group"`
	LastMessage *GroupMessageResponse `json:"last_message,omitempty"`
	UnreadCount int64                 `json:"unread_count"`
	IsMuted     bool                  `json:"is_muted"`
}

// ConversationRequestCreateRequest opens a contact request to another user.
type ConversationRequestCreateRequest struct {
	ToUserID uint   `json:"to_user_id" validate:"required"`
	Message  string `json:"message" validate:"required,min=1,max=2000"`
}

// DecisionRequest approves or denies a pending request.
type DecisionRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}

// ConversationRequestResponse serializes a contact request.
type ConversationRequestResponse struct {
	ID        uint        `json:"id"`
	From      UserSummary `json:"from"`
	ToUserID  uint        `json:"to_user_id"`
	Message   string      `json:"message"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	DecidedAt *time.Time  `json:"decided_at,omitempty"`
}
