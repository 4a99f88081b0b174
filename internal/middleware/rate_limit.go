package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/crewhub-api/internal/utils"
)

const (
	defaultRateLimit  = 10
	defaultRateWindow = time.Second
)

// RateLimit throttles a group of routes per caller: the authenticated user when present,
// otherwise the client IP. Buckets are namespaced by scope so the message and reaction
// limiters never share a counter.
func RateLimit(scope string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = defaultRateLimit
	}
	if window <= 0 {
		window = defaultRateWindow
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return scope + ":" + rateLimitSubject(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Round(time.Second).Seconds())))
			return utils.SendErrorWithCode(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests", nil)
		},
	})
}

func rateLimitSubject(c *fiber.Ctx) string {
	if id, ok := c.Locals(LocalUserID).(uint); ok && id != 0 {
		return "user:" + strconv.FormatUint(uint64(id), 10)
	}
	return "ip:" + c.IP()
}
