package models

import (
	"time"

	"gorm.io/datatypes"
)

// Entity types referenced by moderation entries.
const (
	AuditEntityDirectMessage   = "direct_message"
	AuditEntityGroupMessage    = "group_message"
	AuditEntityGroupMembership = "group_membership"
)

// ActivityLog is one moderation event: an administrator deleting someone else's message,
// deciding an access request, or adding and removing group members. Rows are append-only.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:64;not null;index:idx_activity_entity,priority:1" json:"entity_type"`
	EntityID   *uint             `gorm:"index:idx_activity_entity,priority:2" json:"entity_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}

// TableName keeps the audit table distinct from platform-wide activity feeds.
func (ActivityLog) TableName() string {
	return "moderation_activity_logs"
}
