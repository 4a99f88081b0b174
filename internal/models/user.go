package models

import "time"

// Role is the platform role assigned by the external identity provider.
type Role string

// Roles known to the messaging core.
const (
	RoleAdmin         Role = "admin"
	RoleFacilityAdmin Role = "facility_admin"
	RoleStaffLead     Role = "staff_lead"
	RoleStaff         Role = "staff"
	RoleVolunteer     Role = "volunteer"
)

// IsAdministrator reports whether the role carries the moderation override.
func (r Role) IsAdministrator() bool {
	return r == RoleAdmin
}

// User mirrors the externally owned users table. The messaging core only reads it.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null;index" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      Role      `gorm:"size:32;not null;default:volunteer" json:"role"`
	AvatarURL string    `gorm:"size:512" json:"avatar_url"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
