package dto

import "github.com/noah-isme/crewhub-api/internal/models"

// UserSummary is the profile subset shown next to conversations and search results.
type UserSummary struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// UserSearchQuery filters the user directory.
type UserSearchQuery struct {
	Query string `query:"q" validate:"required,min=2,max=100"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=50"`
}

// NewUserSummary converts a user model to its public summary.
func NewUserSummary(user models.User) UserSummary {
	return UserSummary{
		ID:        user.ID,
		Name:      user.Name,
		Role:      string(user.Role),
		AvatarURL: user.AvatarURL,
	}
}

// NewUserSummarySlice converts users to summaries.
func NewUserSummarySlice(users []models.User) []UserSummary {
	out := make([]UserSummary, 0, len(users))
	for _, user := range users {
		out = append(out, NewUserSummary(user))
	}
	return out
}
