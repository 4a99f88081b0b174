package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/service"
	"github.com/noah-isme/crewhub-api/internal/utils"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

// UserHandler exposes the user directory used by the compose dialogs.
type UserHandler struct {
	users  service.UserService
	logger zerolog.Logger
}

// NewUserHandler constructs a user handler.
func NewUserHandler(users service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register binds user routes.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/search", h.search)
}

func (h *UserHandler) search(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	var query dto.UserSearchQuery
	if err := c.QueryParser(&query); err != nil {
		return respondError(c, h.logger, apperror.Validation("invalid query"), nil)
	}

	users, err := h.users.Search(requestContext(c), actor, query)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "users", users)
}
