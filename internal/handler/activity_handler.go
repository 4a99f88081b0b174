package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/service"
	"github.com/noah-isme/crewhub-api/internal/utils"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

// ActivityHandler exposes the moderation audit log.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches activity log routes to the router group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return respondError(c, h.logger, apperror.Validation("invalid page"), nil)
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return respondError(c, h.logger, apperror.Validation("invalid page size"), nil)
	}
	actorID, err := parseQueryInt(c, "actor_id")
	if err != nil || actorID < 0 {
		return respondError(c, h.logger, apperror.Validation("invalid actor id"), nil)
	}

	req := dto.ActivityListRequest{
		Page:       page,
		PageSize:   pageSize,
		ActorID:    uint(actorID),
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
	}

	response, err := h.service.List(requestContext(c), actor, req)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.OK(c, response.Items, "activity logs", response.Pagination)
}
