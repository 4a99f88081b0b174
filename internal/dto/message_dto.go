package dto

import (
	"time"

	"github.com/noah-isme/crewhub-api/internal/models"
)

// DirectMessageSendRequest is the payload for sendDirectMessage.
type DirectMessageSendRequest struct {
	RecipientID uint   `json:"recipient_id" validate:"required"`
	Subject     string `json:"subject" validate:"omitempty,max=255"`
	Content     string `json:"content" validate:"required,min=1,max=5000"`
}

// ConversationReplyRequest is the payload for sendMessage inside an existing conversation.
type ConversationReplyRequest struct {
	Content string `json:"content" validate:"required,min=1,max=5000"`
}

// GroupMessageSendRequest is the payload for sendGroupMessage.
type GroupMessageSendRequest struct {
	Content string `json:"content" validate:"required,min=1,max=5000"`
}

// MessageEditRequest carries the replacement content for an edit.
type MessageEditRequest struct {
	Content string `json:"content" validate:"required,min=1,max=5000"`
}

// DirectMessageResponse is the serialized direct message. CanEdit is evaluated for the
// viewer against the server clock; clients must not recompute the window.
type DirectMessageResponse struct {
	ID          uint       `json:"id"`
	SenderID    uint       `json:"sender_id"`
	RecipientID uint       `json:"recipient_id"`
	Subject     string     `json:"subject,omitempty"`
	Content     string     `json:"content"`
	Read        bool       `json:"read"`
	CreatedAt   time.Time  `json:"created_at"`
	EditedAt    *time.Time `json:"edited_at,omitempty"`
	CanEdit     bool       `json:"can_edit"`
}

// GroupMessageResponse is the serialized group message.
type GroupMessageResponse struct {
	ID        uint       `json:"id"`
	GroupID   uint       `json:"group_id"`
	SenderID  uint       `json:"sender_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	CanEdit   bool       `json:"can_edit"`
}

// NewDirectMessageResponse converts a model into a DTO.
func NewDirectMessageResponse(message models.DirectMessage, canEdit bool) DirectMessageResponse {
	return DirectMessageResponse{
		ID:          message.ID,
		SenderID:    message.SenderID,
		RecipientID: message.RecipientID,
		Subject:     message.Subject,
		Content:     message.Content,
		Read:        message.Read,
		CreatedAt:   message.CreatedAt,
		EditedAt:    message.EditedAt,
		CanEdit:     canEdit,
	}
}

// NewGroupMessageResponse converts a model into a DTO.
func NewGroupMessageResponse(message models.GroupMessage, canEdit bool) GroupMessageResponse {
	return GroupMessageResponse{
		ID:        message.ID,
		GroupID:   message.GroupID,
		SenderID:  message.SenderID,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
		EditedAt:  message.EditedAt,
		CanEdit:   canEdit,
	}
}
