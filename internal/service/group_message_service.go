package service

import (
	"context"
	"errors"
	"fmt"
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

// GroupMessageService posts into and reads from group channels.
type GroupMessageService interface {
	Send(ctx context.Context, actor Actor, groupID uint, req dto.GroupMessageSendRequest) (dto.GroupMessageResponse, error)
	History(ctx context.Context, actor Actor, groupID uint, before time.Time, limit int) ([]dto.GroupMessageResponse, error)
	Edit(ctx context.Context, actor Actor, messageID uint, req dto.MessageEditRequest) (dto.GroupMessageResponse, error)
	Delete(ctx context.Context, actor Actor, messageID uint) error
}

type groupMessageService struct {
	groups     repository.GroupRepository
	messages   repository.GroupMessageRepository
	dispatcher Dispatcher
	audit      ActivityRecorder
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewGroupMessageService constructs the group message service.
func NewGroupMessageService(groups repository.GroupRepository, messages repository.GroupMessageRepository, dispatcher Dispatcher, audit ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) GroupMessageService {
	return &groupMessageService{
		groups:     groups,
		messages:   messages,
		dispatcher: dispatcher,
		audit:      audit,
		validator:  validate,
		sanitizer:  bluemonday.UGCPolicy(),
		logger:     logger.With().Str("component", "group_message_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/crewhub-api/internal/service/group_message"),
		now:        time.Now,
	}
}

func (s *groupMessageService) Send(ctx context.Context, actor Actor, groupID uint, req dto.GroupMessageSendRequest) (dto.GroupMessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.GroupMessageResponse{}, validationError(err)
	}

	body, err := sanitizeBody(s.sanitizer, req.Content)
	if err != nil {
		return dto.GroupMessageResponse{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "messages.send_group", trace.WithAttributes(
		attribute.Int64("message.sender_id", int64(actor.ID)),
		attribute.Int64("message.group_id", int64(groupID)),
	))
	defer span.End()

	group, err := s.groups.FindGroup(spanCtx, groupID)
	if err != nil {
		return dto.GroupMessageResponse{}, translateNotFound(err, "group not found")
	}
	if !group.IsActive {
		return dto.GroupMessageResponse{}, apperror.Forbidden("group is not active")
	}

	membership, err := s.groups.FindMembership(spanCtx, groupID, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GroupMessageResponse{}, apperror.Forbidden("you are not a member of this group")
		}
		return dto.GroupMessageResponse{}, err
	}
	if !membership.IsActive() {
		return dto.GroupMessageResponse{}, apperror.Forbidden("your membership is not active")
	}
	if !membership.CanPost() {
		return dto.GroupMessageResponse{}, apperror.Forbidden("you are muted in this group")
	}

	message := models.GroupMessage{
		GroupID:   group.ID,
		SenderID:  actor.ID,
		Content:   body,
		CreatedAt: s.now().UTC(),
	}
	if err := s.messages.Create(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.GroupMessageResponse{}, fmt.Errorf("persist group message: %w", err)
	}
	observability.MessagesSentTotal().WithLabelValues(string(models.MessageKindGroup)).Inc()

	members, err := s.groups.ListMembers(spanCtx, group.ID, models.MembershipActive)
	if err != nil {
		s.logger.Warn().Err(err).Uint("group_id", group.ID).Msg("failed to load group members for notification")
	} else {
		recipients := make([]uint, 0, len(members))
		for _, member := range members {
			if member.IsMuted {
				continue
			}
			recipients = append(recipients, member.UserID)
		}
		s.dispatcher.Dispatch(spanCtx, actor.ID, recipients, Notice{
			Type:    models.NotificationGroupMessage,
			Title:   fmt.Sprintf("New message in %s", group.Name),
			Message: excerpt(message.Content, 140),
			Link:    fmt.Sprintf("/groups/%d", group.ID),
			Metadata: map[string]interface{}{
				"group_id":   group.ID,
				"message_id": message.ID,
				"sender_id":  actor.ID,
			},
		})
	}

	return dto.NewGroupMessageResponse(message, true), nil
}

// History returns the channel in ascending order and advances the viewer's read marker.
func (s *groupMessageService) History(ctx context.Context, actor Actor, groupID uint, before time.Time, limit int) ([]dto.GroupMessageResponse, error) {
	if _, err := s.groups.FindGroup(ctx, groupID); err != nil {
		return nil, translateNotFound(err, "group not found")
	}

	membership, err := s.groups.FindMembership(ctx, groupID, actor.ID)
	isMember := err == nil && membership.IsActive()
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if !isMember && !actor.IsAdministrator() {
		return nil, apperror.Forbidden("you are not a member of this group")
	}

	messages, err := s.messages.ListByGroup(ctx, groupID, before, limit)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if isMember {
		if err := s.groups.TouchLastRead(ctx, groupID, actor.ID, now); err != nil {
			s.logger.Warn().Err(err).Uint("group_id", groupID).Msg("failed to advance last read marker")
		}
	}

	out := make([]dto.GroupMessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, dto.NewGroupMessageResponse(message, canEditFor(message.SenderID, message.CreatedAt, actor.ID, now)))
	}
	return out, nil
}

func (s *groupMessageService) Edit(ctx context.Context, actor Actor, messageID uint, req dto.MessageEditRequest) (dto.GroupMessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.GroupMessageResponse{}, validationError(err)
	}

	message, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return dto.GroupMessageResponse{}, translateNotFound(err, "message not found")
	}

	now := s.now().UTC()
	if err := authorizeEdit(message.SenderID, message.CreatedAt, actor, now); err != nil {
		return dto.GroupMessageResponse{}, err
	}

	body, err := sanitizeBody(s.sanitizer, req.Content)
	if err != nil {
		return dto.GroupMessageResponse{}, err
	}

	if err := s.messages.UpdateContent(ctx, message.ID, body, now); err != nil {
		return dto.GroupMessageResponse{}, translateNotFound(err, "message not found")
	}

	message.Content = body
	message.EditedAt = &now
	return dto.NewGroupMessageResponse(message, CanEditOrDelete(message.CreatedAt, now)), nil
}

func (s *groupMessageService) Delete(ctx context.Context, actor Actor, messageID uint) error {
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
			EntityType: models.AuditEntityGroupMessage,
			EntityID:   uintPtr(message.ID),
			Metadata: map[string]interface{}{
				"group_id":  message.GroupID,
				"sender_id": message.SenderID,
			},
		})
	}

	return nil
}
