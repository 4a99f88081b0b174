package models

import "time"

// ReactionType is a single typed endorsement.
type ReactionType string

// Reaction types.
const (
	ReactionLike     ReactionType = "LIKE"
	ReactionHeart    ReactionType = "HEART"
	ReactionDownvote ReactionType = "DOWNVOTE"
)

// ReactionTypes lists every reaction type in display order.
var ReactionTypes = []ReactionType{ReactionLike, ReactionHeart, ReactionDownvote}

// TargetKind identifies what a reaction is attached to.
type TargetKind string

// Reaction target kinds.
const (
	TargetComment TargetKind = "COMMENT"
	TargetPhoto   TargetKind = "PHOTO"
	TargetMessage TargetKind = "MESSAGE"
)

// Reaction is a user's single reaction on a target. The unique index enforces at most one
// row per (user, target, kind).
type Reaction struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	Type       ReactionType `gorm:"size:16;not null" json:"type"`
	UserID     uint         `gorm:"not null;uniqueIndex:idx_reaction_owner_target,priority:1" json:"user_id"`
	TargetID   uint         `gorm:"not null;uniqueIndex:idx_reaction_owner_target,priority:2;index:idx_reaction_target,priority:1" json:"target_id"`
	TargetKind TargetKind   `gorm:"size:16;not null;uniqueIndex:idx_reaction_owner_target,priority:3;index:idx_reaction_target,priority:2" json:"target_kind"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
