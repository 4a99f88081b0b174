package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType is the closed set of notification kinds.
type NotificationType string

// Notification types.
const (
	NotificationDirectMessage               NotificationType = "DIRECT_MESSAGE"
	NotificationGroupMessage                NotificationType = "GROUP_MESSAGE"
	NotificationGroupAccessRequest          NotificationType = "GROUP_ACCESS_REQUEST"
	NotificationGroupAccessApproved         NotificationType = "GROUP_ACCESS_APPROVED"
	NotificationGroupAccessDenied           NotificationType = "GROUP_ACCESS_DENIED"
	NotificationGroupMemberAdded            NotificationType = "GROUP_MEMBER_ADDED"
	NotificationCommentReply                NotificationType = "COMMENT_REPLY"
	NotificationCommentReaction             NotificationType = "COMMENT_REACTION"
	NotificationConversationRequest         NotificationType = "CONVERSATION_REQUEST"
	NotificationConversationRequestApproved NotificationType = "CONVERSATION_REQUEST_APPROVED"
	NotificationConversationRequestDenied   NotificationType = "CONVERSATION_REQUEST_DENIED"
)

// Notification is a record addressed to a single recipient. Content is immutable; only the
// read flag changes and rows may be deleted by their owner.
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"not null;index:idx_notification_user,priority:1" json:"user_id"`
	Type      NotificationType  `gorm:"size:64;not null" json:"type"`
	Title     string            `gorm:"size:255;not null" json:"title"`
	Message   string            `gorm:"type:text" json:"message"`
	Link      *string           `gorm:"size:512" json:"link"`
	Read      bool              `gorm:"not null;default:false;index:idx_notification_user,priority:2" json:"read"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// Valid reports whether t belongs to the closed set of notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationDirectMessage,
		NotificationGroupMessage,
		NotificationGroupAccessRequest,
		NotificationGroupAccessApproved,
		NotificationGroupAccessDenied,
		NotificationGroupMemberAdded,
		NotificationCommentReply,
		NotificationCommentReaction,
		NotificationConversationRequest,
		NotificationConversationRequestApproved,
		NotificationConversationRequestDenied:
		return true
	default:
		return false
	}
}
