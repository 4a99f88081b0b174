package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/crewhub-api/internal/config"
	"github.com/noah-isme/crewhub-api/internal/handler"
	"github.com/noah-isme/crewhub-api/internal/middleware"
	"github.com/noah-isme/crewhub-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ConversationHandler        *handler.ConversationHandler
	MessageHandler             *handler.MessageHandler
	GroupHandler               *handler.GroupHandler
	ReactionHandler            *handler.ReactionHandler
	NotificationHandler        *handler.NotificationHandler
	UserHandler                *handler.UserHandler
	ConversationRequestHandler *handler.ConversationRequestHandler
	ActivityHandler            *handler.ActivityHandler
	HealthProbes               []handler.HealthProbe
	JWTMiddleware              fiber.Handler
	MessageLimiter             fiber.Handler
	ReactionLimiter            fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = passThrough
	}

	api := app.Group(middleware.APIPrefix, func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	}, jwtMiddleware)

	// Limiters run ahead of the handlers registered below on the same routes.
	messageLimiter := orPassThrough(deps.MessageLimiter)
	api.Post("/messages", messageLimiter)
	api.Post("/conversations/:partnerId/messages", messageLimiter)
	api.Post("/groups/:id/messages", messageLimiter)
	api.Post("/reactions/toggle", orPassThrough(deps.ReactionLimiter))

	if deps.ConversationHandler != nil {
		deps.ConversationHandler.Register(api.Group("/conversations"))
	}
	if deps.MessageHandler != nil {
		deps.MessageHandler.Register(api.Group("/messages"))
	}
	if deps.GroupHandler != nil {
		deps.GroupHandler.Register(api.Group("/groups"))
	}
	if deps.ReactionHandler != nil {
		deps.ReactionHandler.Register(api.Group("/reactions"))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(api.Group("/notifications"))
	}
	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users"))
	}
	if deps.ConversationRequestHandler != nil {
		deps.ConversationRequestHandler.Register(api.Group("/conversation-requests"))
	}
	if deps.ActivityHandler != nil {
		admin := api.Group("/admin", middleware.RequireRole("admin", "facility_admin"))
		deps.ActivityHandler.Register(admin.Group("/activity"))
	}
}

func passThrough(c *fiber.Ctx) error { return c.Next() }

func orPassThrough(h fiber.Handler) fiber.Handler {
	if h == nil {
		return passThrough
	}
	return h
}
