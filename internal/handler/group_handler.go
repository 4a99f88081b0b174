package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/service"
	"github.com/noah-isme/crewhub-api/internal/utils"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

// GroupHandler exposes group channels, their messages and membership management.
type GroupHandler struct {
	access   service.GroupAccessService
	messages service.GroupMessageService
	logger   zerolog.Logger
}

// NewGroupHandler constructs a group handler.
func NewGroupHandler(access service.GroupAccessService, messages service.GroupMessageService, logger zerolog.Logger) *GroupHandler {
	return &GroupHandler{
		access:   access,
		messages: messages,
		logger:   logger.With().Str("component", "group_handler").Logger(),
	}
}

// Register binds group routes.
func (h *GroupHandler) Register(router fiber.Router) {
	router.Get("/", h.list)

	router.Patch("/messages/:messageId", h.editMessage)
	router.Delete("/messages/:messageId", h.deleteMessage)

	router.Get("/:id/messages", h.history)
	router.Post("/:id/messages", h.sendMessage)

	router.Post("/:id/access-requests", h.requestAccess)
	router.Get("/:id/access-requests", h.listPending)
	router.Post("/:id/access-requests/:userId/decision", h.decide)

	router.Post("/:id/members", h.addMember)
	router.Delete("/:id/members/:userId", h.removeMember)
	router.Delete("/:id/membership", h.leave)
	router.Patch("/:id/membership", h.setMuted)
}

func (h *GroupHandler) list(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	groups, err := h.access.ListGroups(requestContext(c), actor)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "groups", groups)
}

func (h *GroupHandler) history(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	var before time.Time
	if raw := strings.TrimSpace(c.Query("before")); raw != "" {
		before, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return respondError(c, h.logger, apperror.Validation("invalid before timestamp"), nil)
		}
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return respondError(c, h.logger, apperror.Validation("invalid limit"), nil)
	}

	messages, err := h.messages.History(requestContext(c), actor, groupID, before, limit)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "group messages", messages)
}

func (h *GroupHandler) sendMessage(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	var req dto.GroupMessageSendRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.logger, err, nil)
	}

	message, err := h.messages.Send(requestContext(c), actor, groupID, req)
	if err != nil {
		return respondError(c, h.logger, err, unsentContent(req.Content))
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message sent", message)
}

func (h *GroupHandler) editMessage(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	messageID, err := parseIDParam(c, "messageId")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	var req dto.MessageEditRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.logger, err, nil)
	}

	message, err := h.messages.Edit(requestContext(c), actor, messageID, req)
	if err != nil {
		return respondError(c, h.logger, err, unsentContent(req.Content))
	}

	return utils.SendSuccess(c, "message updated", message)
}

func (h *GroupHandler) deleteMessage(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	messageID, err := parseIDParam(c, "messageId")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	if err := h.messages.Delete(requestContext(c), actor, messageID); err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "message deleted", nil)
}

func (h *GroupHandler) requestAccess(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	result, err := h.access.RequestAccess(requestContext(c), actor, groupID)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	message := "access requested"
	if result.AutoApproved {
		message = "joined group"
	}
	return utils.SendSuccess(c, message, result)
}

func (h *GroupHandler) listPending(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	pending, err := h.access.ListPending(requestContext(c), actor, groupID)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "pending access requests", pending)
}

func (h *GroupHandler) decide(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	userID, err := parseIDParam(c, "userId")
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

	membership, err := h.access.Decide(requestContext(c), actor, groupID, userID, *req.Approve)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "access request decided", membership)
}

func (h *GroupHandler) addMember(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	var req dto.AddMemberRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.logger, err, nil)
	}
	if req.UserID == 0 {
		return respondError(c, h.logger, apperror.Validation("user_id is required"), nil)
	}

	membership, err := h.access.AddMember(requestContext(c), actor, groupID, req.UserID)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "member added", membership)
}

func (h *GroupHandler) removeMember(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	userID, err := parseIDParam(c, "userId")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	if err := h.access.RemoveMember(requestContext(c), actor, groupID, userID); err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "member removed", nil)
}

func (h *GroupHandler) leave(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	if err := h.access.Leave(requestContext(c), actor, groupID); err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "left group", nil)
}

func (h *GroupHandler) setMuted(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	var req dto.MuteRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, h.logger, err, nil)
	}
	if req.Muted == nil {
		return respondError(c, h.logger, apperror.Validation("muted is required"), nil)
	}

	membership, err := h.access.SetMuted(requestContext(c), actor, groupID, *req.Muted)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "membership updated", membership)
}
