package models

import "time"

// JoinPolicy is the group level rule deciding how users get in.
type JoinPolicy string

// Join policies. OPEN groups admit any staff member immediately; DISCOVERABLE groups are
// listed for browsing but still require approval; CLOSED groups are invisible to non-members.
const (
	JoinPolicyClosed       JoinPolicy = "CLOSED"
	JoinPolicyOpen         JoinPolicy = "OPEN"
	JoinPolicyDiscoverable JoinPolicy = "DISCOVERABLE"
)

// MembershipStatus is the per-user state inside a group.
type MembershipStatus string

// Membership states.
const (
	MembershipPending MembershipStatus = "PENDING"
	MembershipActive  MembershipStatus = "ACTIVE"
	MembershipDenied  MembershipStatus = "DENIED"
)

// MembershipRole is the user's role inside a single group.
type MembershipRole string

// Membership roles.
const (
	MembershipRoleMember MembershipRole = "MEMBER"
	MembershipRoleAdmin  MembershipRole = "ADMIN"
)

// MessageGroup is an access-controlled channel. Groups are administered elsewhere.
type MessageGroup struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Name       string     `gorm:"size:255;not null" json:"name"`
	Type       string     `gorm:"size:64" json:"type"`
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`
	JoinPolicy JoinPolicy `gorm:"size:16;not null;default:CLOSED" json:"join_policy"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// GroupMembership links a user to a group. At most one row exists per (group, user).
type GroupMembership struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	GroupID    uint             `gorm:"not null;uniqueIndex:idx_membership_group_user,priority:1" json:"group_id"`
	UserID     uint             `gorm:"not null;uniqueIndex:idx_membership_group_user,priority:2;index" json:"user_id"`
	Role       MembershipRole   `gorm:"size:16;not null;default:MEMBER" json:"role"`
	Status     MembershipStatus `gorm:"size:16;not null;index" json:"status"`
	IsMuted    bool             `gorm:"not null;default:false" json:"is_muted"`
	LastReadAt *time.Time       `json:"last_read_at"`
	JoinedAt   time.Time        `json:"joined_at"`
	DecidedBy  *uint            `json:"decided_by"`
	DecidedAt  *time.Time       `json:"decided_at"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// IsActive reports whether the membership grants access to the group.
func (m GroupMembership) IsActive() bool {
	return m.Status == MembershipActive
}

// CanPost reports whether the member may post into the group.
func (m GroupMembership) CanPost() bool {
	return m.Status == MembershipActive && !m.IsMuted
}

// IsGroupAdmin reports whether the membership carries group administration rights.
func (m GroupMembership) IsGroupAdmin() bool {
	return m.Status == MembershipActive && m.Role == MembershipRoleAdmin
}
