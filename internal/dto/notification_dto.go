package dto

import (
	"time"

	"github.com/noah-isme/crewhub-api/internal/models"
)

// NotificationCreateRequest describes a notification addressed to one recipient.
type NotificationCreateRequest struct {
	UserID   uint                   `json:"user_id" validate:"required"`
	Type     string                 `json:"type" validate:"required,max=64"`
	Title    string                 `json:"title" validate:"required,min=1,max=255"`
	Message  string                 `json:"message" validate:"omitempty,max=2000"`
	Link     string                 `json:"link" validate:"omitempty,max=512"`
	Metadata map[string]interface{} `json:"metadata" validate:"omitempty"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID        uint                   `json:"id"`
	UserID    uint                   `json:"user_id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Link      *string                `json:"link"`
	Read      bool                   `json:"read"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NotificationSnapshot is the shape shared by the pull endpoint and every push frame.
type NotificationSnapshot struct {
	Notifications  []NotificationResponse `json:"notifications"`
	UnreadCount    int64                  `json:"unread_count"`
	PollIntervalMs int64                  `json:"poll_interval_ms"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	response := NotificationResponse{
		ID:        model.ID,
		UserID:    model.UserID,
		Type:      string(model.Type),
		Title:     model.Title,
		Message:   model.Message,
		Link:      model.Link,
		Read:      model.Read,
		CreatedAt: model.CreatedAt,
	}
	if len(model.Metadata) > 0 {
		response.Metadata = map[string]interface{}(model.Metadata)
	}
	return response
}

// NewNotificationResponseSlice converts a slice to DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
