package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/service"
	"github.com/noah-isme/crewhub-api/internal/utils"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

// ConversationRequestHandler exposes contact requests between users.
type ConversationRequestHandler struct {
	requests service.ConversationRequestService
	logger   zerolog.Logger
}

// NewConversationRequestHandler constructs the handler.
func NewConversationRequestHandler(requests service.ConversationRequestService, logger zerolog.Logger) *ConversationRequestHandler {
	return &ConversationRequestHandler{
		requests: requests,
		logger:   logger.With().Str("component", "conversation_request_handler").Logger(),
	}
}

// Register binds conversation request routes.
func (h *ConversationRequestHandler) Register(router fiber.Router) {
	router.Post("/", h.create)
	router.Get("/", h.listIncoming)
	router.Post("/:id/decision", h.decide)
}

func (h *ConversationRequestHandler) create(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	var req dto.ConversationRequestCreateRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.logger, err, nil)
	}

	created, err := h.requests.Create(requestContext(c), actor, req)
	if err != nil {
		return respondError(c, h.logger, err, unsentContent(req.Message))
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "conversation request sent", created)
}

func (h *ConversationRequestHandler) listIncoming(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	items, err := h.requests.ListIncoming(requestContext(c), actor)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "conversation requests", items)
}

func (h *ConversationRequestHandler) decide(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	var req dto.DecisionRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.logger, err, nil)
	}
	if req.Approve == nil {
		return respondError(c, h.logger, apperror.Validation("approve is required"), nil)
	}

	decided, err := h.requests.Decide(requestContext(c), actor, id, *req.Approve)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "conversation request decided", decided)
}
