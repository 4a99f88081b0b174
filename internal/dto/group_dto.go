package dto

import (
	"time"

	"github.com/noah-isme/crewhub-api/internal/models"
)

// GroupResponse serializes a message group.
type GroupResponse struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	IsActive   bool   `json:"is_active"`
	JoinPolicy string `json:"join_policy"`
}

// GroupListItem is a group as seen by a specific user.
type GroupListItem struct {
	GroupResponse
	MembershipStatus string `json:"membership_status,omitempty"`
	MembershipRole   string `json:"membership_role,omitempty"`
}

// MembershipResponse serializes a group membership.
type MembershipResponse struct {
	ID         uint       `json:"id"`
	GroupID    uint       `json:"group_id"`
	UserID     uint       `json:"user_id"`
	Role       string     `json:"role"`
	Status     string     `json:"status"`
	IsMuted    bool       `json:"is_muted"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
	JoinedAt   time.Time  `json:"joined_at"`
}

// GroupAccessResponse is returned by requestGroupAccess.
type GroupAccessResponse struct {
	AutoApproved bool               `json:"auto_approved"`
	Membership   MembershipResponse `json:"membership"`
}

// PendingAccessRequest pairs a pending membership with the requester's profile.
type PendingAccessRequest struct {
	Membership MembershipResponse `json:"membership"`
	User       UserSummary        `json:"user"`
}

// AddMemberRequest is the payload for addMemberDirectly.
type AddMemberRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// MuteRequest toggles notifications and posting for the caller's membership.
type MuteRequest struct {
	Muted *bool `json:"muted" validate:"required"`
}

// NewGroupResponse converts a group model to DTO.
func NewGroupResponse(group models.MessageGroup) GroupResponse {
	return GroupResponse{
		ID:         group.ID,
		Name:       group.Name,
		Type:       group.Type,
		IsActive:   group.IsActive,
		JoinPolicy: string(group.JoinPolicy),
	}
}

// NewMembershipResponse converts a membership model to DTO.
func NewMembershipResponse(membership models.GroupMembership) MembershipResponse {
	return MembershipResponse{
		ID:         membership.ID,
		GroupID:    membership.GroupID,
		UserID:     membership.UserID,
		Role:       string(membership.Role),
		Status:     string(membership.Status),
		IsMuted:    membership.IsMuted,
		LastReadAt: membership.LastReadAt,
		JoinedAt:   membership.JoinedAt,
	}
}
