package models

import "time"

// ConversationRequestStatus tracks the decision on a contact request.
type ConversationRequestStatus string

// Conversation request states.
const (
	ConversationRequestPending  ConversationRequestStatus = "PENDING"
	ConversationRequestApproved ConversationRequestStatus = "APPROVED"
	ConversationRequestDenied   ConversationRequestStatus = "DENIED"
)

// ConversationRequest is a non-admin initiated request to open a conversation. At most one
// request per (from, to) pair can be PENDING.
type ConversationRequest struct {
	ID         uint                      `gorm:"primaryKey" json:"id"`
	FromUserID uint                      `gorm:"not null;index;uniqueIndex:idx_conversation_requests_pending,where:status = 'PENDING'" json:"from_user_id"`
	ToUserID   uint                      `gorm:"not null;index;uniqueIndex:idx_conversation_requests_pending,where:status = 'PENDING'" json:"to_user_id"`
	Message    string                    `gorm:"type:text;not null" json:"message"`
	Status     ConversationRequestStatus `gorm:"size:16;not null;index" json:"status"`
	CreatedAt  time.Time                 `json:"created_at"`
	DecidedAt  *time.Time                `json:"decided_at"`
}
