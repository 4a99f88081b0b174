package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crewhub-api/internal/middleware"
)

func TestRateLimitIsPerUser(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-User"); id == "1" {
			c.Locals("user_id", uint(1))
		} else {
			c.Locals("user_id", uint(2))
		}
		return c.Next()
	})
	app.Post("/messages", middleware.RateLimit("messages", 2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	send := func(user string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/messages", nil)
		req.Header.Set("X-User", user)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	require.Equal(t, fiber.StatusCreated, send("1").StatusCode)
	require.Equal(t, fiber.StatusCreated, send("1").StatusCode)

	limited := send("1")
	require.Equal(t, fiber.StatusTooManyRequests, limited.StatusCode)
	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, limited, &body)
	require.Equal(t, "rate_limited", body.Code)

	require.Equal(t, fiber.StatusCreated, send("2").StatusCode)
}

func decodeBody(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
