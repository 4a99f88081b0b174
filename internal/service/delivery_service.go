package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/observability"
)

// DeliveryConfig tunes snapshot size and push cadence.
type DeliveryConfig struct {
	Heartbeat     time.Duration
	PollInterval  time.Duration
	SnapshotLimit int
}

// DeliveryService serves the notification snapshot over pull and push transports. Both
// transports emit the same snapshot shape.
type DeliveryService interface {
	Snapshot(ctx context.Context, userID uint) (dto.NotificationSnapshot, error)
	Open(ctx context.Context, userID uint, transport string) DeliverySession
}

// DeliverySession is one push connection. Updates is closed once the session ends.
type DeliverySession interface {
	Updates() <-chan dto.NotificationSnapshot
	Close()
}

type deliveryService struct {
	notifications NotificationService
	config        DeliveryConfig
	logger        zerolog.Logger
	now           func() time.Time
}

// NewDeliveryService constructs the delivery channel.
func NewDeliveryService(notifications NotificationService, config DeliveryConfig, logger zerolog.Logger) DeliveryService {
	if config.Heartbeat <= 0 {
		config.Heartbeat = 30 * time.Second
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.SnapshotLimit <= 0 {
		config.SnapshotLimit = 50
	}
	return &deliveryService{
		notifications: notifications,
		config:        config,
		logger:        logger.With().Str("component", "delivery_service").Logger(),
		now:           time.Now,
	}
}

func (s *deliveryService) Snapshot(ctx context.Context, userID uint) (dto.NotificationSnapshot, error) {
	items, err := s.notifications.List(ctx, userID, false, s.config.SnapshotLimit)
	if err != nil {
		return dto.NotificationSnapshot{}, err
	}
	unread, err := s.notifications.UnreadCount(ctx, userID)
	if err != nil {
		return dto.NotificationSnapshot{}, err
	}

	return dto.NotificationSnapshot{
		Notifications:  items,
		UnreadCount:    unread,
		PollIntervalMs: s.config.PollInterval.Milliseconds(),
		GeneratedAt:    s.now().UTC(),
	}, nil
}

// Open starts a push session that emits a snapshot immediately, after every change to the
// user's notifications and on every heartbeat. The session ends on Close or when ctx is done.
func (s *deliveryService) Open(ctx context.Context, userID uint, transport string) DeliverySession {
	signals, unsubscribe := s.notifications.Subscribe(userID)

	session := &deliverySession{
		updates: make(chan dto.NotificationSnapshot, 1),
		done:    make(chan struct{}),
	}

	gauge := observability.DeliverySessionsActive().WithLabelValues(transport)
	gauge.Inc()

	go func() {
		defer func() {
			unsubscribe()
			close(session.updates)
			gauge.Dec()
		}()

		ticker := time.NewTicker(s.config.Heartbeat)
		defer ticker.Stop()

		s.emit(ctx, session, userID)
		for {
			select {
			case <-ctx.Done():
				return
			case <-session.done:
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				s.emit(ctx, session, userID)
			case <-ticker.C:
				s.emit(ctx, session, userID)
			}
		}
	}()

	return session
}

func (s *deliveryService) emit(ctx context.Context, session *deliverySession, userID uint) {
	snapshot, err := s.Snapshot(ctx, userID)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to build notification snapshot")
		}
		return
	}
	session.offer(snapshot)
}

type deliverySession struct {
	updates chan dto.NotificationSnapshot
	done    chan struct{}
	once    sync.Once
}

func (s *deliverySession) Updates() <-chan dto.NotificationSnapshot {
	return s.updates
}

func (s *deliverySession) Close() {
	s.once.Do(func() { close(s.done) })
}

// offer replaces any snapshot the consumer has not picked up yet.
func (s *deliverySession) offer(snapshot dto.NotificationSnapshot) {
	for {
		select {
		case s.updates <- snapshot:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}
