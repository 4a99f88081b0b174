package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/models"
	"github.com/noah-isme/crewhub-api/internal/observability"
	"github.com/noah-isme/crewhub-api/internal/repository"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

// NotificationService owns a user's notification set: it persists rows, applies the
// caller-scoped mutations and signals subscribers whenever the set changes.
type NotificationService interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
	List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]dto.NotificationResponse, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, id, userID uint) error
	Clear(ctx context.Context, userID uint) (int64, error)
	Subscribe(userID uint) (<-chan struct{}, func())
	Start(ctx context.Context)
}

type notificationService struct {
	repo        repository.NotificationRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	broker      *notificationBroker
	nodeID      string
	now         func() time.Time
}

// changeEvent is the cross-node payload. It only names the user whose set changed; each
// node recomputes snapshots from the store.
type changeEvent struct {
	Source string    `json:"source"`
	UserID uint      `json:"user_id"`
	Reason string    `json:"reason"`
	SentAt time.Time `json:"sent_at"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan struct{}]struct{}
}

// NewNotificationService constructs a notification service. Redis and NATS are optional;
// without them change signals stay on this node.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
	}

	return &notificationService{
		repo:        repo,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		validator:   validate,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/crewhub-api/internal/service/notification"),
		sanitizer:   bluemonday.StrictPolicy(),
		broker: &notificationBroker{
			subscribers: make(map[uint]map[chan struct{}]struct{}),
		},
		nodeID: uuid.NewString(),
		now:    time.Now,
	}
}

func (s *notificationService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *notificationService) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationResponse{}, validationError(err)
	}

	kind := models.NotificationType(payload.Type)
	if !kind.Valid() {
		return dto.NotificationResponse{}, apperror.Validation("unknown notification type")
	}

	title := strings.TrimSpace(s.sanitizer.Sanitize(payload.Title))
	if title == "" {
		return dto.NotificationResponse{}, apperror.Validation("notification title empty after sanitization")
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(payload.UserID)),
		attribute.String("notification.type", payload.Type),
	))
	defer span.End()

	model := models.Notification{
		UserID:    payload.UserID,
		Type:      kind,
		Title:     title,
		Message:   strings.TrimSpace(s.sanitizer.Sanitize(payload.Message)),
		CreatedAt: s.now().UTC(),
	}
	if link := strings.TrimSpace(payload.Link); link != "" {
		model.Link = &link
	}
	if len(payload.Metadata) > 0 {
		model.Metadata = datatypes.JSONMap(payload.Metadata)
	}

	if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	observability.NotificationsPublishedTotal().WithLabelValues(string(kind)).Inc()
	s.changed(spanCtx, model.UserID, "created")

	return dto.NewNotificationResponse(model), nil
}

func (s *notificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]dto.NotificationResponse, error) {
	if userID == 0 {
		return nil, apperror.New(apperror.ErrUnauthorized, "user id is required")
	}

	notifications, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}

	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(userID)),
	))
	defer span.End()

	notification, err := s.repo.MarkRead(spanCtx, id, userID)
	if err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, translateNotFound(err, "notification not found")
	}

	s.changed(spanCtx, userID, "read")
	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.changed(ctx, userID, "read_all")
	}
	return updated, nil
}

// Delete removes a notification owned by userID. Deleting a row that is already gone succeeds.
func (s *notificationService) Delete(ctx context.Context, id, userID uint) error {
	removed, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.changed(ctx, userID, "deleted")
	}
	return nil
}

func (s *notificationService) Clear(ctx context.Context, userID uint) (int64, error) {
	removed, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.changed(ctx, userID, "cleared")
	}
	return removed, nil
}

// Subscribe registers a change listener for userID. The channel holds at most one pending
// signal, so bursts collapse into a single wake-up.
func (s *notificationService) Subscribe(userID uint) (<-chan struct{}, func()) {
	channel := make(chan struct{}, 1)
	s.broker.subscribe(userID, channel)

	var once sync.Once
	cleanup := func() {
		once.Do(func() { s.broker.unsubscribe(userID, channel) })
	}

	return channel, cleanup
}

func (s *notificationService) changed(ctx context.Context, userID uint, reason string) {
	s.broker.signal(userID)
	if err := s.publish(ctx, userID, reason); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to fan out notification change")
	}
}

func (s *notificationService) publish(ctx context.Context, userID uint, reason string) error {
	if (s.redis == nil || s.redisStream == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(changeEvent{
		Source: s.nodeID,
		UserID: userID,
		Reason: reason,
		SentAt: s.now().UTC(),
	})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	// Plain subscription: every node must see every change to wake its own sessions.
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notifications subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

func (s *notificationService) handleEvent(payload []byte) {
	var event changeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}

	if event.Source == s.nodeID || event.UserID == 0 {
		return
	}

	s.broker.signal(event.UserID)
}

func (b *notificationBroker) subscribe(userID uint, ch chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[userID]; !exists {
		b.subscribers[userID] = make(map[chan struct{}]struct{})
	}
	b.subscribers[userID][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(userID uint, ch chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[userID]; ok {
		if _, present := subscribers[ch]; present {
			delete(subscribers, ch)
			close(ch)
		}
		if len(subscribers) == 0 {
			delete(b.subscribers, userID)
		}
	}
}

func (b *notificationBroker) signal(userID uint) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[userID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
