package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/repository"
)

// UserService exposes the read-only user directory.
type UserService interface {
	Search(ctx context.Context, actor Actor, query dto.UserSearchQuery) ([]dto.UserSummary, error)
}

type userService struct {
	users     repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserService constructs the user directory service.
func NewUserService(users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

// Search matches active users by name or email, leaving the caller out.
func (s *userService) Search(ctx context.Context, actor Actor, query dto.UserSearchQuery) ([]dto.UserSummary, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err)
	}

	users, err := s.users.Search(ctx, query.Query, query.Limit)
	if err != nil {
		return nil, err
	}

	out := make([]dto.UserSummary, 0, len(users))
	for _, user := range users {
		if user.ID == actor.ID {
			continue
		}
		out = append(out, dto.NewUserSummary(user))
	}
	return out, nil
}
