// Package deliveryclient consumes the notification delivery channel from Go programs. It
// prefers the WebSocket push stream and falls back to polling the snapshot endpoint.
package deliveryclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Modes reported by Client.Mode.
const (
	ModeIdle = "idle"
	ModePush = "push"
	ModePoll = "poll"
)

// Notification mirrors one entry of a snapshot.
type Notification struct {
	ID        uint                   `json:"id"`
	UserID    uint                   `json:"user_id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Link      *string                `json:"link"`
	Read      bool                   `json:"read"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Snapshot is the payload served by both the pull endpoint and the push stream.
type Snapshot struct {
	Notifications  []Notification `json:"notifications"`
	UnreadCount    int64          `json:"unread_count"`
	PollIntervalMs int64          `json:"poll_interval_ms"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. https://crew.example.com/api/v1.
	BaseURL      string
	Token        string
	PollInterval time.Duration
	// PushRetry is how long the client stays on polling before trying the push stream again.
	PushRetry      time.Duration
	RequestTimeout time.Duration
	Dialer         *websocket.Dialer
	Logger         zerolog.Logger
}

// Client keeps a local copy of the caller's notification snapshot up to date.
type Client struct {
	cfg     Config
	pullURL string
	pushURL string
	logger  zerolog.Logger

	resume  chan struct{}
	updates chan Snapshot

	mu      sync.RWMutex
	mode    string
	started bool
}

// New validates cfg and constructs a client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PushRetry <= 0 {
		cfg.PushRetry = 30 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &websocket.Dialer{HandshakeTimeout: cfg.RequestTimeout}
	}

	push := *base
	switch base.Scheme {
	case "https":
		push.Scheme = "wss"
	case "http":
		push.Scheme = "ws"
	default:
		return nil, fmt.Errorf("unsupported scheme %q", base.Scheme)
	}
	push.Path += "/notifications/ws"

	return &Client{
		cfg:     cfg,
		pullURL: base.String() + "/notifications",
		pushURL: push.String(),
		logger:  cfg.Logger.With().Str("component", "delivery_client").Logger(),
		resume:  make(chan struct{}, 1),
		updates: make(chan Snapshot, 1),
		mode:    ModeIdle,
	}, nil
}

// Start launches the background task and returns the snapshot channel. The channel holds
// at most one pending snapshot, older ones are replaced. It is closed when ctx ends.
func (c *Client) Start(ctx context.Context) <-chan Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		c.started = true
		go c.run(ctx)
	}
	return c.updates
}

// Resume forces an immediate pull, e.g. when the application returns to the foreground.
func (c *Client) Resume() {
	select {
	case c.resume <- struct{}{}:
	default:
	}
}

// Mode reports the transport currently in use.
func (c *Client) Mode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Pull fetches a snapshot from the pull endpoint.
func (c *Client) Pull() (Snapshot, error) {
	agent := fiber.Get(c.pullURL)
	agent.Set(fiber.HeaderAuthorization, "Bearer "+c.cfg.Token)
	agent.Timeout(c.cfg.RequestTimeout)
	if err := agent.Parse(); err != nil {
		return Snapshot{}, fmt.Errorf("pull notifications: %w", err)
	}

	var envelope struct {
		Success bool     `json:"success"`
		Message string   `json:"message"`
		Data    Snapshot `json:"data"`
	}
	status, _, errs := agent.Struct(&envelope)
	if len(errs) > 0 {
		return Snapshot{}, fmt.Errorf("pull notifications: %w", errs[0])
	}
	if status != fiber.StatusOK || !envelope.Success {
		return Snapshot{}, fmt.Errorf("pull notifications: status %d: %s", status, envelope.Message)
	}
	return envelope.Data, nil
}

func (c *Client) run(ctx context.Context) {
	defer close(c.updates)
	defer c.setMode(ModeIdle)

	for ctx.Err() == nil {
		if err := c.runPush(ctx); err != nil && ctx.Err() == nil {
			c.logger.Debug().Err(err).Msg("push stream unavailable, polling")
		}
		if ctx.Err() != nil {
			return
		}
		c.runPoll(ctx, c.cfg.PushRetry)
	}
}

// runPush consumes the WebSocket stream until it fails or ctx ends.
func (c *Client) runPush(ctx context.Context) error {
	header := http.Header{}
	header.Set(fiber.HeaderAuthorization, "Bearer "+c.cfg.Token)

	conn, resp, err := c.cfg.Dialer.DialContext(ctx, c.pushURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	c.setMode(ModePush)
	frames := make(chan Snapshot)
	failed := make(chan error, 1)
	go func() {
		for {
			var snapshot Snapshot
			if err := conn.ReadJSON(&snapshot); err != nil {
				failed <- err
				return
			}
			select {
			case frames <- snapshot:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return ctx.Err()
		case err := <-failed:
			return err
		case snapshot := <-frames:
			c.offer(snapshot)
		case <-c.resume:
			c.pullOnce()
		}
	}
}

// runPoll pulls on every tick and on Resume until window elapses or ctx ends.
func (c *Client) runPoll(ctx context.Context, window time.Duration) {
	c.setMode(ModePoll)
	c.pullOnce()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()
	retry := time.NewTimer(window)
	defer retry.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-retry.C:
			return
		case <-ticker.C:
			c.pullOnce()
		case <-c.resume:
			c.pullOnce()
		}
	}
}

func (c *Client) pullOnce() {
	snapshot, err := c.Pull()
	if err != nil {
		c.logger.Warn().Err(err).Msg("notification pull failed")
		return
	}
	c.offer(snapshot)
}

func (c *Client) offer(snapshot Snapshot) {
	for {
		select {
		case c.updates <- snapshot:
			return
		default:
		}
		select {
		case <-c.updates:
		default:
		}
	}
}

func (c *Client) setMode(mode string) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
}
