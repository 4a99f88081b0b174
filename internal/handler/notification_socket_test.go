package handler_test

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/handler"
	"github.com/noah-isme/crewhub-api/internal/middleware"
)

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}

func TestNotificationSocketPushesSnapshots(t *testing.T) {
	first := sampleSnapshot()
	second := sampleSnapshot()
	second.UnreadCount = 0
	delivery := &stubDeliveryService{frames: []dto.NotificationSnapshot{first, second}}

	app := fiber.New()
	app.Use(middleware.CorrelationID())
	group := app.Group("/api/v1/notifications", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(2))
		c.Locals("user_role", "staff")
		return c.Next()
	})
	handler.NewNotificationHandler(&stubNotificationService{}, delivery, testLogger()).Register(group)

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v1/notifications/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, resp, err := dialer.Dial(url, http.Header{"X-Correlation-ID": {"socket-test"}})
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var got []dto.NotificationSnapshot
	for i := 0; i < 2; i++ {
		var snapshot dto.NotificationSnapshot
		require.NoError(t, conn.ReadJSON(&snapshot))
		got = append(got, snapshot)
	}
	require.Equal(t, int64(1), got[0].UnreadCount)
	require.Equal(t, int64(0), got[1].UnreadCount)
	require.Len(t, got[0].Notifications, 1)

	delivery.mu.Lock()
	defer delivery.mu.Unlock()
	require.Equal(t, []string{"websocket"}, delivery.opened)
}
