package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/crewhub-api/internal/middleware"
	"github.com/noah-isme/crewhub-api/internal/service"
	"github.com/noah-isme/crewhub-api/internal/utils"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseIDParam(c *fiber.Ctx, key string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(c.Params(key)), 10, 64)
	if err != nil || value == 0 {
		return 0, apperror.Validation("invalid " + key)
	}
	return uint(value), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	id, _ := c.Locals(middleware.LocalUserID).(uint)
	return id
}

func userRoleFromContext(c *fiber.Ctx) string {
	role, _ := c.Locals(middleware.LocalUserRole).(string)
	return role
}

func actorFromContext(c *fiber.Ctx) (service.Actor, error) {
	id := userIDFromContext(c)
	if id == 0 {
		return service.Actor{}, apperror.New(apperror.ErrUnauthorized, "authentication required")
	}
	return service.NewActor(id, userRoleFromContext(c)), nil
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// respondError renders err using the shared envelope. Known kinds keep their message,
// anything else is logged and reported as an opaque failure.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, details interface{}) error {
	if apperror.IsKnown(err) {
		return utils.SendErrorWithCode(c, apperror.Status(err), apperror.Code(err), err.Error(), details)
	}
	if isValidationError(err) {
		err = apperror.Wrap(apperror.ErrValidation, err.Error(), err)
		return utils.SendErrorWithCode(c, apperror.Status(err), apperror.Code(err), err.Error(), details)
	}

	requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return utils.SendErrorWithCode(c, fiber.StatusInternalServerError, apperror.Code(err), "internal server error", details)
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperror.Validation("invalid request body")
	}
	return nil
}
