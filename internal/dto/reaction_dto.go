package dto

// ReactionToggleRequest is the payload for toggleReaction.
type ReactionToggleRequest struct {
	Type       string `json:"type" validate:"required,oneof=LIKE HEART DOWNVOTE"`
	TargetID   uint   `json:"target_id" validate:"required"`
	TargetKind string `json:"target_kind" validate:"required,oneof=COMMENT PHOTO MESSAGE"`
}

// ReactionTargetQuery identifies a reaction target for reads.
type ReactionTargetQuery struct {
	TargetID   uint   `query:"target_id" validate:"required"`
	TargetKind string `query:"target_kind" validate:"required,oneof=COMMENT PHOTO MESSAGE"`
}

// ReactionSummary is the aggregate badge data for one target.
type ReactionSummary struct {
	TargetID     uint             `json:"target_id"`
	TargetKind   string           `json:"target_kind"`
	Counts       map[string]int64 `json:"counts"`
	UserReaction *string          `json:"user_reaction"`
}
