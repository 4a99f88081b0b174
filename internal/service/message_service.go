package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/models"
	"github.com/noah-isme/crewhub-api/internal/observability"
	"github.com/noah-isme/crewhub-api/internal/repository"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

// MessageService handles direct messages between two users.
type MessageService interface {
	SendDirect(ctx context.Context, actor Actor, req dto.DirectMessageSendRequest) (dto.DirectMessageResponse, error)
	Reply(ctx context.Context, actor Actor, partnerID uint, req dto.ConversationReplyRequest) (dto.DirectMessageResponse, error)
	Edit(ctx context.Context, actor Actor, messageID uint, req dto.MessageEditRequest) (dto.DirectMessageResponse, error)
	Delete(ctx context.Context, actor Actor, messageID uint) error
}

type messageService struct {
	messages   repository.DirectMessageRepository
	users      repository.UserRepository
	dispatcher Dispatcher
	audit      ActivityRecorder
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewMessageService constructs the direct message service.
func NewMessageService(messages repository.DirectMessageRepository, users repository.UserRepository, dispatcher Dispatcher, audit ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) MessageService {
	return &messageService{
		messages:   messages,
		users:      users,
		dispatcher: dispatcher,
		audit:      audit,
		validator:  validate,
		sanitizer:  bluemonday.UGCPolicy(),
		logger:     logger.With().Str("component", "message_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/crewhub-api/internal/service/message"),
		now:        time.Now,
	}
}

func (s *messageService) SendDirect(ctx context.Context, actor Actor, req dto.DirectMessageSendRequest) (dto.DirectMessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.DirectMessageResponse{}, validationError(err)
	}
	return s.send(ctx, actor, req.RecipientID, req.Subject, req.Content)
}

// Reply sends a message inside an existing conversation; it carries no subject.
func (s *messageService) Reply(ctx context.Context, actor Actor, partnerID uint, req dto.ConversationReplyRequest) (dto.DirectMessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.DirectMessageResponse{}, validationError(err)
	}
	return s.send(ctx, actor, partnerID, "", req.Content)
}

func (s *messageService) send(ctx context.Context, actor Actor, recipientID uint, subject, content string) (dto.DirectMessageResponse, error) {
	if recipientID == 0 || recipientID == actor.ID {
		return dto.DirectMessageResponse{}, apperror.Validation("choose another user as the recipient")
	}

	body, err := sanitizeBody(s.sanitizer, content)
	if err != nil {
		return dto.DirectMessageResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "messages.send_direct", trace.WithAttributes(
		attribute.Int64("message.sender_id", int64(actor.ID)),
		attribute.Int64("message.recipient_id", int64(recipientID)),
	))
	defer span.End()

	recipient, err := s.users.FindByID(spanCtx, recipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.DirectMessageResponse{}, apperror.Validation("recipient does not exist")
		}
		span.RecordError(err)
		return dto.DirectMessageResponse{}, err
	}
	if !recipient.IsActive {
		return dto.DirectMessageResponse{}, apperror.Validation("recipient is not active")
	}

	message := models.DirectMessage{
		SenderID:    actor.ID,
		RecipientID: recipient.ID,
		Subject:     strings.TrimSpace(s.sanitizer.Sanitize(subject)),
		Content:     body,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.messages.Create(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.DirectMessageResponse{}, fmt.Errorf("persist direct message: %w", err)
	}
	observability.MessagesSentTotal().WithLabelValues(string(models.MessageKindDirect)).Inc()

	senderName := s.displayName(spanCtx, actor.ID)
	s.dispatcher.Dispatch(spanCtx, actor.ID, []uint{recipient.ID}, Notice{
		Type:    models.NotificationDirectMessage,
		Title:   fmt.Sprintf("New message from %s", senderName),
		Message: excerpt(message.Content, 140),
		Link:    fmt.Sprintf("/conversations/%d", actor.ID),
		Metadata: map[string]interface{}{
			"message_id": message.ID,
			"sender_id":  actor.ID,
		},
	})

	s.logger.Debug().Uint("message_id", message.ID).Uint("sender_id", actor.ID).Msg("direct message sent")
	return dto.NewDirectMessageResponse(message, true), nil
}

func (s *messageService) Edit(ctx context.Context, actor Actor, messageID uint, req dto.MessageEditRequest) (dto.DirectMessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.DirectMessageResponse{}, validationError(err)
	}

	message, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return dto.DirectMessageResponse{}, translateNotFound(err, "message not found")
	}

	now := s.now().UTC()
	if err := authorizeEdit(message.SenderID, message.CreatedAt, actor, now); err != nil {
		return dto.DirectMessageResponse{}, err
	}

	body, err := sanitizeBody(s.sanitizer, req.Content)
	if err != nil {
		return dto.DirectMessageResponse{}, err
	}

	if err := s.messages.UpdateContent(ctx, message.ID, body, now); err != nil {
		return dto.DirectMessageResponse{}, translateNotFound(err, "message not found")
	}

	message.Content = body
	message.EditedAt = &now
	return dto.NewDirectMessageResponse(message, CanEditOrDelete(message.CreatedAt, now)), nil
}

func (s *messageService) Delete(ctx context.Context, actor Actor, messageID uint) error {
	message, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return translateNotFound(err, "message not found")
	}

	override, err := authorizeDelete(message.SenderID, actor)
	if err != nil {
		return err
	}

	if err := s.messages.Delete(ctx, message.ID); err != nil {
		return translateNotFound(err, "message not found")
	}

	if override {
		recordAudit(ctx, s.audit, s.logger, ActivityEntry{
			Actor:      actor,
			Action:     ActionMessageDeleted,
			EntityType: models.AuditEntityDirectMessage,
			EntityID:   uintPtr(message.ID),
			Metadata: map[string]interface{}{
				"sender_id":    message.SenderID,
				"recipient_id": message.RecipientID,
			},
		})
	}

	return nil
}

func (s *messageService) displayName(ctx context.Context, userID uint) string {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil || strings.TrimSpace(user.Name) == "" {
		return "a teammate"
	}
	return user.Name
}
