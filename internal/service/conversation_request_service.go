package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/models"
	"github.com/noah-isme/crewhub-api/internal/repository"
	"github.com/noah-isme/crewhub-api/pkg/apperror"
)

// ConversationRequestService lets users ask someone to open a conversation with them.
type ConversationRequestService interface {
	Create(ctx context.Context, actor Actor, req dto.ConversationRequestCreateRequest) (dto.ConversationRequestResponse, error)
	Decide(ctx context.Context, actor Actor, requestID uint, approve bool) (dto.ConversationRequestResponse, error)
	ListIncoming(ctx context.Context, actor Actor) ([]dto.ConversationRequestResponse, error)
}

type conversationRequestService struct {
	requests   repository.ConversationRequestRepository
	users      repository.UserRepository
	dispatcher Dispatcher
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	now        func() time.Time
}

// NewConversationRequestService constructs the service.
func NewConversationRequestService(requests repository.ConversationRequestRepository, users repository.UserRepository, dispatcher Dispatcher, validate *validator.Validate, logger zerolog.Logger) ConversationRequestService {
	return &conversationRequestService{
		requests:   requests,
		users:      users,
		dispatcher: dispatcher,
		validator:  validate,
		sanitizer:  bluemonday.UGCPolicy(),
		logger:     logger.With().Str("component", "conversation_request_service").Logger(),
		now:        time.Now,
	}
}

func (s *conversationRequestService) Create(ctx context.Context, actor Actor, req dto.ConversationRequestCreateRequest) (dto.ConversationRequestResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ConversationRequestResponse{}, validationError(err)
	}
	if req.ToUserID == actor.ID {
		return dto.ConversationRequestResponse{}, apperror.Validation("you cannot send a request to yourself")
	}

	body, err := sanitizeBody(s.sanitizer, req.Message)
	if err != nil {
		return dto.ConversationRequestResponse{}, err
	}

	target, err := s.users.FindByID(ctx, req.ToUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ConversationRequestResponse{}, apperror.Validation("user does not exist")
		}
		return dto.ConversationRequestResponse{}, err
	}
	if !target.IsActive {
		return dto.ConversationRequestResponse{}, apperror.Validation("user is not active")
	}

	request := models.ConversationRequest{
		FromUserID: actor.ID,
		ToUserID:   target.ID,
		Message:    body,
		Status:     models.ConversationRequestPending,
		CreatedAt:  s.now().UTC(),
	}
	created, err := s.requests.CreatePending(ctx, &request)
	if err != nil {
		return dto.ConversationRequestResponse{}, err
	}
	if !created {
		return dto.ConversationRequestResponse{}, apperror.Conflict("a request to this user is already pending")
	}

	sender := s.summary(ctx, actor.ID)
	s.dispatcher.Dispatch(ctx, actor.ID, []uint{target.ID}, Notice{
		Type:     models.NotificationConversationRequest,
		Title:    fmt.Sprintf("%s wants to start a conversation", sender.Name),
		Message:  excerpt(body, 140),
		Link:     "/conversation-requests",
		Metadata: map[string]interface{}{"request_id": request.ID, "from_user_id": actor.ID},
	})

	return newConversationRequestResponse(request, sender), nil
}

// Decide settles a pending request. Only the addressee decides; approving opens the
// conversation with the request text as its first message.
func (s *conversationRequestService) Decide(ctx context.Context, actor Actor, requestID uint, approve bool) (dto.ConversationRequestResponse, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return dto.ConversationRequestResponse{}, translateNotFound(err, "conversation request not found")
	}
	if request.ToUserID != actor.ID {
		return dto.ConversationRequestResponse{}, apperror.Forbidden("only the recipient can decide this request")
	}

	target := models.ConversationRequestDenied
	if approve {
		target = models.ConversationRequestApproved
	}

	sender := s.summary(ctx, request.FromUserID)
	if request.Status == target {
		return newConversationRequestResponse(request, sender), nil
	}
	if request.Status != models.ConversationRequestPending {
		return dto.ConversationRequestResponse{}, apperror.Conflict("conversation request was already decided")
	}

	now := s.now().UTC()
	var opening models.DirectMessage
	var moved bool
	if approve {
		opening = models.DirectMessage{
			SenderID:    request.FromUserID,
			RecipientID: request.ToUserID,
			Content:     request.Message,
			CreatedAt:   now,
		}
		moved, err = s.requests.Approve(ctx, request.ID, &opening, now)
		if err != nil {
			return dto.ConversationRequestResponse{}, fmt.Errorf("open conversation: %w", err)
		}
	} else {
		moved, err = s.requests.TransitionStatus(ctx, request.ID, target, now)
		if err != nil {
			return dto.ConversationRequestResponse{}, err
		}
	}
	if !moved {
		current, err := s.requests.FindByID(ctx, request.ID)
		if err != nil {
			return dto.ConversationRequestResponse{}, translateNotFound(err, "conversation request not found")
		}
		if current.Status == target {
			return newConversationRequestResponse(current, sender), nil
		}
		return dto.ConversationRequestResponse{}, apperror.Conflict("conversation request was already decided")
	}
	request.Status = target
	request.DecidedAt = &now

	notice := Notice{
		Type:     models.NotificationConversationRequestDenied,
		Title:    "Your conversation request was declined",
		Metadata: map[string]interface{}{"request_id": request.ID},
	}
	if approve {
		notice = Notice{
			Type:     models.NotificationConversationRequestApproved,
			Title:    "Your conversation request was accepted",
			Link:     fmt.Sprintf("/conversations/%d", request.ToUserID),
			Metadata: map[string]interface{}{"request_id": request.ID, "message_id": opening.ID},
		}
	}
	s.dispatcher.Dispatch(ctx, actor.ID, []uint{request.FromUserID}, notice)

	return newConversationRequestResponse(request, sender), nil
}

func (s *conversationRequestService) ListIncoming(ctx context.Context, actor Actor) ([]dto.ConversationRequestResponse, error) {
	requests, err := s.requests.ListIncoming(ctx, actor.ID, models.ConversationRequestPending)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(requests))
	for _, request := range requests {
		ids = append(ids, request.FromUserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]dto.ConversationRequestResponse, 0, len(requests))
	for _, request := range requests {
		sender := dto.UserSummary{ID: request.FromUserID}
		if user, ok := users[request.FromUserID]; ok {
			sender = dto.NewUserSummary(user)
		}
		out = append(out, newConversationRequestResponse(request, sender))
	}
	return out, nil
}

func (s *conversationRequestService) summary(ctx context.Context, userID uint) dto.UserSummary {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return dto.UserSummary{ID: userID, Name: "Someone"}
	}
	return dto.NewUserSummary(user)
}

func newConversationRequestResponse(request models.ConversationRequest, from dto.UserSummary) dto.ConversationRequestResponse {
	return dto.ConversationRequestResponse{
		ID:        request.ID,
		From:      from,
		ToUserID:  request.ToUserID,
		Message:   request.Message,
		Status:    string(request.Status),
		CreatedAt: request.CreatedAt,
		DecidedAt: request.DecidedAt,
	}
}
