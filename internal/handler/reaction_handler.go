package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/service"
	"github.com/noah-isme/crewhub-api/internal/utils"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

// ReactionHandler exposes the reaction toggle and badge reads.
type ReactionHandler struct {
	reactions service.ReactionService
	logger    zerolog.Logger
}

// NewReactionHandler constructs a reaction handler.
func NewReactionHandler(reactions service.ReactionService, logger zerolog.Logger) *ReactionHandler {
	return &ReactionHandler{
		reactions: reactions,
		logger:    logger.With().Str("component", "reaction_handler").Logger(),
	}
}

// Register binds reaction routes.
func (h *ReactionHandler) Register(router fiber.Router) {
	router.Get("/", h.get)
	router.Post("/toggle", h.toggle)
}

func (h *ReactionHandler) toggle(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	var req dto.ReactionToggleRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.logger, err, nil)
	}

	summary, err := h.reactions.Toggle(requestContext(c), actor, req)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "reaction updated", summary)
}

func (h *ReactionHandler) get(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	var query dto.ReactionTargetQuery
	if err := c.QueryParser(&query); err != nil {
		return respondError(c, h.logger, apperror.Validation("invalid query"), nil)
	}

	summary, err := h.reactions.Get(requestContext(c), actor, query)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "reactions", summary)
}
