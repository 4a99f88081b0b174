package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/middleware"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

const commentReplyQueue = "crewhub-comment-replies"

// CommentEventConsumer turns reply events from the comment module into COMMENT_REPLY
// notifications. Nodes join one queue group so each reply is handled once.
type CommentEventConsumer struct {
	dispatcher Dispatcher
	nats       *nats.Conn
	subject    string
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewCommentEventConsumer subscribes to "<channelBase>.comments.replied" once started.
// A nil connection leaves Start a no-op.
func NewCommentEventConsumer(dispatcher Dispatcher, natsConn *nats.Conn, channelBase string, validate *validator.Validate, logger zerolog.Logger) *CommentEventConsumer {
	if channelBase == "" {
		channelBase = "crewhub"
	}
	return &CommentEventConsumer{
		dispatcher: dispatcher,
		nats:       natsConn,
		subject:    strings.ReplaceAll(channelBase, ":", ".") + ".comments.replied",
		validator:  validate,
		logger:     logger.With().Str("component", "comment_event_consumer").Logger(),
	}
}

// Subject is the NATS subject reply events are read from.
func (c *CommentEventConsumer) Subject() string {
	return c.subject
}

// Start subscribes until ctx is cancelled.
func (c *CommentEventConsumer) Start(ctx context.Context) {
	if c.nats == nil {
		c.logger.Warn().Msg("nats not configured; comment reply notifications disabled")
		return
	}

	sub, err := c.nats.QueueSubscribe(c.subject, commentReplyQueue, func(msg *nats.Msg) {
		if _, err := c.Handle(ctx, msg.Data); err != nil {
			c.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("dropped comment reply event")
		}
	})
	if err != nil {
		c.logger.Error().Err(err).Str("subject", c.subject).Msg("failed to subscribe to comment replies")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to drain comment reply subscription")
		}
	}()
}

// Handle decodes one event and dispatches the notification. It returns how many
// notifications were created.
func (c *CommentEventConsumer) Handle(ctx context.Context, payload []byte) (int, error) {
	var event dto.CommentReplyEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return 0, apperror.Wrap(apperror.ErrValidation, "invalid comment reply event", err)
	}
	if err := c.validator.Struct(event); err != nil {
		return 0, validationError(err)
	}

	ctx = middleware.ContextWithCorrelation(ctx, event.CorrelationID)
	return c.dispatcher.NotifyCommentReply(ctx, event.ReplierID, event.ParentAuthorID, event.CommentID, event.Content), nil
}
