package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/middleware"
	"github.com/noah-isme/crewhub-api/internal/models"
	"github.com/noah-isme/crewhub-api/internal/observability"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

// NotificationPublisher persists a single notification.
type NotificationPublisher interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
}

// Notice is the content shared by every recipient of one event.
type Notice struct {
	Type     models.NotificationType
	Title    string
	Message  string
	Link     string
	Metadata map[string]interface{}
}

// Dispatcher turns domain events into notifications. Dispatch never returns an error: the
// triggering mutation has already committed and must not be rolled back by a delivery failure.
type Dispatcher interface {
	Dispatch(ctx context.Context, actorID uint, recipients []uint, notice Notice) int
	NotifyCommentReply(ctx context.Context, replierID, parentAuthorID, commentID uint, replyText string) int
}

type notificationDispatcher struct {
	publisher NotificationPublisher
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewDispatcher constructs a dispatcher over the given publisher.
func NewDispatcher(publisher NotificationPublisher, logger zerolog.Logger) Dispatcher {
	return &notificationDispatcher{
		publisher: publisher,
		logger:    logger.With().Str("component", "notification_dispatcher").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/crewhub-api/internal/service/dispatcher"),
	}
}

// Dispatch delivers notice to every recipient except the actor and returns how many rows
// were created.
func (d *notificationDispatcher) Dispatch(ctx context.Context, actorID uint, recipients []uint, notice Notice) int {
	targets := uniqueRecipients(actorID, recipients)
	if len(targets) == 0 || d.publisher == nil {
		return 0
	}

	spanCtx, span := d.tracer.Start(ctx, "notifications.dispatch", trace.WithAttributes(
		attribute.String("notification.type", string(notice.Type)),
		attribute.Int("notification.recipients", len(targets)),
	))
	defer span.End()

	delivered := 0
	for _, recipientID := range targets {
		_, err := d.publisher.Publish(spanCtx, dto.NotificationCreateRequest{
			UserID:   recipientID,
			Type:     string(notice.Type),
			Title:    notice.Title,
			Message:  notice.Message,
			Link:     notice.Link,
			Metadata: notice.Metadata,
		})
		if err != nil {
			wrapped := apperror.Wrap(apperror.ErrExternalDelivery, fmt.Sprintf("notify user %d", recipientID), err)
			span.RecordError(wrapped)
			observability.NotificationDispatchFailuresTotal().WithLabelValues(string(notice.Type)).Inc()
			d.logger.Error().
				Err(wrapped).
				Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).
				Str("type", string(notice.Type)).
				Uint("recipient_id", recipientID).
				Uint("actor_id", actorID).
				Msg("notification dispatch failed")
			continue
		}
		delivered++
	}

	return delivered
}

// NotifyCommentReply is invoked by the comment module when a reply is posted.
func (d *notificationDispatcher) NotifyCommentReply(ctx context.Context, replierID, parentAuthorID, commentID uint, replyText string) int {
	return d.Dispatch(ctx, replierID, []uint{parentAuthorID}, Notice{
		Type:    models.NotificationCommentReply,
		Title:   "New reply to your comment",
		Message: excerpt(replyText, 140),
		Metadata: map[string]interface{}{
			"comment_id": commentID,
			"replier_id": replierID,
		},
	})
}
