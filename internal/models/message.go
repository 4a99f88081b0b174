package models

import "time"

// DirectMessage is a one-to-one message between two users.
type DirectMessage struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SenderID    uint       `gorm:"not null;index:idx_direct_pair,priority:1" json:"sender_id"`
	RecipientID uint       `gorm:"not null;index:idx_direct_pair,priority:2;index:idx_direct_unread,priority:1" json:"recipient_id"`
	Subject     string     `gorm:"size:255" json:"subject"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	Read        bool       `gorm:"not null;default:false;index:idx_direct_unread,priority:2" json:"read"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	EditedAt    *time.Time `json:"edited_at"`
}

// GroupMessage is a message broadcast to the active members of a MessageGroup.
type GroupMessage struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	GroupID   uint       `gorm:"not null;index:idx_group_message_timeline,priority:1" json:"group_id"`
	SenderID  uint       `gorm:"not null;index" json:"sender_id"`
	Content   string     `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time  `gorm:"index:idx_group_message_timeline,priority:2" json:"created_at"`
	EditedAt  *time.Time `json:"edited_at"`
}

// MessageKind distinguishes the two message stores sharing the edit/delete policy.
type MessageKind string

// Message kinds.
const (
	MessageKindDirect MessageKind = "direct"
	MessageKindGroup  MessageKind = "group"
)
