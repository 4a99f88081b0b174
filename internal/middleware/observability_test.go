package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crewhub-api/internal/middleware"
	"github.com/noah-isme/crewhub-api/internal/observability"
)

func TestObservabilityCountsVersionedAPIRequests(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Use(middleware.Observability(zerolog.Nop()))
	app.Get("/api/v1/groups/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	requests := observability.APIRequests().WithLabelValues(http.MethodGet, "/api/v1/groups/:id", "404")
	failures := observability.APIErrors().WithLabelValues(http.MethodGet, "/api/v1/groups/:id", "404")
	health := observability.APIRequests().WithLabelValues(http.MethodGet, "/health", "200")
	beforeRequests := testutil.ToFloat64(requests)
	beforeFailures := testutil.ToFloat64(failures)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/groups/9", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)

	require.Equal(t, beforeRequests+1, testutil.ToFloat64(requests))
	require.Equal(t, beforeFailures+1, testutil.ToFloat64(failures))
	require.Zero(t, testutil.ToFloat64(health))
}
