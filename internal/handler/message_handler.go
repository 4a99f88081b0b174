package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/service"
	"github.com/noah-isme/crewhub-api/internal/utils"
)

// MessageHandler exposes direct message endpoints.
type MessageHandler struct {
	messages service.MessageService
	logger   zerolog.Logger
}

// NewMessageHandler constructs a direct message handler.
func NewMessageHandler(messages service.MessageService, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		logger:   logger.With().Str("component", "message_handler").Logger(),
	}
}

// Register binds direct message routes.
func (h *MessageHandler) Register(router fiber.Router) {
	router.Post("/", h.send)
	router.Patch("/:id", h.edit)
	router.Delete("/:id", h.delete)
}

func (h *MessageHandler) send(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	var req dto.DirectMessageSendRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.logger, err, nil)
	}

	message, err := h.messages.SendDirect(requestContext(c), actor, req)
	if err != nil {
		return respondError(c, h.logger, err, unsentContent(req.Content))
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *MessageHandler) edit(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	var req dto.MessageEditRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.logger, err, nil)
	}

	message, err := h.messages.Edit(requestContext(c), actor, id, req)
	if err != nil {
		return respondError(c, h.logger, err, unsentContent(req.Content))
	}

	return utils.SendSuccess(c, "message updated", message)
}

func (h *MessageHandler) delete(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	if err := h.messages.Delete(requestContext(c), actor, id); err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "message deleted", nil)
}

// unsentContent lets the client restore its compose box after a rejected send.
func unsentContent(content string) fiber.Map {
	if content == "" {
		return nil
	}
	return fiber.Map{"content": content}
}
