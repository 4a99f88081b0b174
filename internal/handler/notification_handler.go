package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/middleware"
	"github.com/noah-isme/crewhub-api/internal/service"
	"github.com/noah-isme/crewhub-api/internal/utils"
)

// NotificationHandler serves the notification snapshot over pull, SSE and WebSocket,
// plus the per-user mutations.
type NotificationHandler struct {
	notifications service.NotificationService
	delivery      service.DeliveryService
	logger        zerolog.Logger
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(notifications service.NotificationService, delivery service.DeliveryService, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		delivery:      delivery,
		logger:        logger.With().Str("component", "notification_handler").Logger(),
	}
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if userIDFromContext(c) == 0 {
			return utils.SendErrorWithCode(c, fiber.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		return c.Next()
	})

	router.Get("/", h.snapshot)
	router.Delete("/", h.clear)
	router.Get("/stream", h.stream)
	router.Get("/ws", websocket.New(h.handleSocket))
	router.Post("/read-all", h.markAllRead)
	router.Patch("/:id/read", h.markRead)
	router.Delete("/:id", h.delete)
}

func (h *NotificationHandler) snapshot(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	snapshot, err := h.delivery.Snapshot(requestContext(c), actor.ID)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "notifications", snapshot)
}

func (h *NotificationHandler) stream(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// The body writer outlives the fiber context, so it gets its own root.
	correlation := middleware.GetCorrelationID(c)
	ctx, cancel := context.WithCancel(middleware.ContextWithCorrelation(context.Background(), correlation))
	session := h.delivery.Open(ctx, actor.ID, "sse")
	logger := h.logger.With().Uint("user_id", actor.ID).Str("correlation_id", correlation).Logger()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			session.Close()
			cancel()
		}()

		logger.Debug().Msg("notification stream opened")
		for snapshot := range session.Updates() {
			if err := writeSnapshotEvent(w, snapshot); err != nil {
				logger.Debug().Err(err).Msg("notification stream closed by client")
				return
			}
		}
	})

	return nil
}

func (h *NotificationHandler) handleSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(uint)
	correlation, _ := conn.Locals("correlation_id").(string)
	logger := h.logger.With().Uint("user_id", userID).Str("correlation_id", correlation).Logger()

	ctx, cancel := context.WithCancel(middleware.ContextWithCorrelation(context.Background(), correlation))
	defer cancel()

	session := h.delivery.Open(ctx, userID, "websocket")
	defer session.Close()

	// Inbound frames are ignored; a read error means the peer went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Info().Msg("notification websocket connected")
	for snapshot := range session.Updates() {
		if err := conn.WriteJSON(snapshot); err != nil {
			logger.Debug().Err(err).Msg("notification websocket write failed")
			break
		}
	}
	_ = conn.Close()
	logger.Info().Msg("notification websocket disconnected")
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	notification, err := h.notifications.MarkRead(requestContext(c), id, actor.ID)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "notification updated", notification)
}

func (h *NotificationHandler) markAllRead(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	updated, err := h.notifications.MarkAllRead(requestContext(c), actor.ID)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "notifications updated", fiber.Map{"updated": updated})
}

func (h *NotificationHandler) delete(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	if err := h.notifications.Delete(requestContext(c), id, actor.ID); err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "notification deleted", nil)
}

func (h *NotificationHandler) clear(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	removed, err := h.notifications.Clear(requestContext(c), actor.ID)
	if err != nil {
		return respondError(c, h.logger, err, nil)
	}

	return utils.SendSuccess(c, "notifications cleared", fiber.Map{"deleted": removed})
}

func writeSnapshotEvent(w *bufio.Writer, snapshot dto.NotificationSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: notifications\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\n", snapshot.GeneratedAt.UnixMilli()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}
