package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/service"
	"github.com/noah-isme/crewhub-api/internal/utils"
)

// ConversationHandler serves the inbox views and replies inside a conversation.
type ConversationHandler struct {
	conversations service.ConversationService
	messages      service.MessageService
	logger        zerolog.Logger
}

// NewConversationHandler constructs a conversation handler.
func NewConversationHandler(conversations service.ConversationService, messages service.MessageService, logger zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		logger:        logger.With().Str("component", "conversation_handler").Logger(),
	}
}

// Register binds conversation routes. /groups is registered before /:partnerId.
func (h *ConversationHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/groups", h.listGroups)
	router.Get("/:partnerId", h.get)
	router.Post("/:partnerId/messages", h.reply)
}

func (h *ConversationHandler) list(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	items, err := h.conversations.List(requestContext(c), actor)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "conversations", items)
}

func (h *ConversationHandler) listGroups(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	items, err := h.conversations.ListGroups(requestContext(c), actor)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "group conversations", items)
}

func (h *ConversationHandler) get(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	partnerID, err := parseIDParam(c, "partnerId")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	detail, err := h.conversations.Get(requestContext(c), actor, partnerID)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "conversation", detail)
}

func (h *ConversationHandler) reply(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	partnerID, err := parseIDParam(c, "partnerId")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	var req dto.ConversationReplyRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.logger, err, nil)
	}

	message, err := h.messages.Reply(requestContext(c), actor, partnerID, req)
	if err != nil {
		return respondError(c, h.logger, err, unsentContent(req.Content))
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}
