package dto

// CommentReplyEvent is published by the comment module after a reply is stored.
type CommentReplyEvent struct {
	CommentID      uint   `json:"comment_id" validate:"required"`
	ReplierID      uint   `json:"replier_id" validate:"required"`
	ParentAuthorID uint   `json:"parent_author_id" validate:"required"`
	Content        string `json:"content" validate:"max=5000"`
	CorrelationID  string `json:"correlation_id,omitempty"`
}
