package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/crewhub-api/internal/utils"
)

// RequireRole admits callers whose role, as set by JWTProtected, is one of roles.
// Requests without an authenticated user are rejected with 401, others with 403.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := normalizeRole(role); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		if id, _ := c.Locals(LocalUserID).(uint); id == 0 {
			return unauthorized(c, "authentication required")
		}
		role, _ := c.Locals(LocalUserRole).(string)
		if _, ok := allowed[normalizeRole(role)]; !ok {
			return utils.SendErrorWithCode(c, fiber.StatusForbidden, "forbidden", "insufficient permissions", nil)
		}
		return c.Next()
	}
}
