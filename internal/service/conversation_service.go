package service

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/crewhub-api/internal/dto"
	"github.com/noah-isme/crewhub-api/internal/models"
	"github.com/noah-isme/crewhub-api/internal/repository"
)

// ConversationService builds inbox views on demand. It holds no state between calls.
type ConversationService interface {
	List(ctx context.Context, actor Actor) ([]dto.ConversationSummary, error)
	Get(ctx context.Context, actor Actor, partnerID uint) (dto.ConversationDetail, error)
	ListGroups(ctx context.Context, actor Actor) ([]dto.GroupConversationSummary, error)
}

type conversationService struct {
	messages      repository.DirectMessageRepository
	groupMessages repository.GroupMessageRepository
	groups        repository.GroupRepository
	users         repository.UserRepository
	logger        zerolog.Logger
	now           func() time.Time
}

// NewConversationService constructs the conversation aggregator.
func NewConversationService(messages repository.DirectMessageRepository, groupMessages repository.GroupMessageRepository, groups repository.GroupRepository, users repository.UserRepository, logger zerolog.Logger) ConversationService {
	return &conversationService{
		messages:      messages,
		groupMessages: groupMessages,
		groups:        groups,
		users:         users,
		logger:        logger.With().Str("component", "conversation_service").Logger(),
		now:           time.Now,
	}
}

// List returns one summary per partner, most recent conversation first.
func (s *conversationService) List(ctx context.Context, actor Actor) ([]dto.ConversationSummary, error) {
	// Newest first, so the first message seen for a partner is the latest one.
	messages, err := s.messages.ListForUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	latest := make(map[uint]models.DirectMessage)
	order := make([]uint, 0)
	for _, message := range messages {
		partnerID := message.RecipientID
		if message.SenderID != actor.ID {
			partnerID = message.SenderID
		}
		if partnerID == actor.ID {
			continue
		}
		if _, seen := latest[partnerID]; seen {
			continue
		}
		latest[partnerID] = message
		order = append(order, partnerID)
	}

	unread, err := s.messages.CountUnreadBySender(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	partners, err := s.users.FindByIDs(ctx, order)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	summaries := make([]dto.ConversationSummary, 0, len(order))
	for _, partnerID := range order {
		message := latest[partnerID]
		partner := dto.UserSummary{ID: partnerID}
		if user, ok := partners[partnerID]; ok {
			partner = dto.NewUserSummary(user)
		}
		summaries = append(summaries, dto.ConversationSummary{
			Partner:     partner,
			LastMessage: dto.NewDirectMessageResponse(message, canEditFor(message.SenderID, message.CreatedAt, actor.ID, now)),
			UnreadCount: unread[partnerID],
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return newerMessage(summaries[i].LastMessage.CreatedAt, summaries[i].LastMessage.ID,
			summaries[j].LastMessage.CreatedAt, summaries[j].LastMessage.ID)
	})
	return summaries, nil
}

// Get marks the partner's messages as read, then returns the full ascending history.
func (s *conversationService) Get(ctx context.Context, actor Actor, partnerID uint) (dto.ConversationDetail, error) {
	partner, err := s.users.FindByID(ctx, partnerID)
	if err != nil {
		return dto.ConversationDetail{}, translateNotFound(err, "user not found")
	}

	if _, err := s.messages.MarkReadFrom(ctx, actor.ID, partnerID); err != nil {
		return dto.ConversationDetail{}, err
	}

	messages, err := s.messages.ListBetween(ctx, actor.ID, partnerID)
	if err != nil {
		return dto.ConversationDetail{}, err
	}

	now := s.now().UTC()
	out := make([]dto.DirectMessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, dto.NewDirectMessageResponse(message, canEditFor(message.SenderID, message.CreatedAt, actor.ID, now)))
	}

	return dto.ConversationDetail{Partner: dto.NewUserSummary(partner), Messages: out}, nil
}

// ListGroups returns one summary per active membership. Groups without messages go last,
// ordered by group id.
func (s *conversationService) ListGroups(ctx context.Context, actor Actor) ([]dto.GroupConversationSummary, error) {
	memberships, err := s.groups.ListMembershipsForUser(ctx, actor.ID, models.MembershipActive)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	summaries := make([]dto.GroupConversationSummary, 0, len(memberships))
	for _, membership := range memberships {
		group, err := s.groups.FindGroup(ctx, membership.GroupID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("group_id", membership.GroupID).Msg("skipping membership without group")
			continue
		}

		summary := dto.GroupConversationSummary{
			Group:   dto.NewGroupResponse(group),
			IsMuted: membership.IsMuted,
		}

		last, err := s.groupMessages.Latest(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			response := dto.NewGroupMessageResponse(*last, canEditFor(last.SenderID, last.CreatedAt, actor.ID, now))
			summary.LastMessage = &response

			since := membership.JoinedAt
			if membership.LastReadAt != nil {
				since = *membership.LastReadAt
			}
			unread, err := s.groupMessages.CountSince(ctx, group.ID, since, actor.ID)
			if err != nil {
				return nil, err
			}
			summary.UnreadCount = unread
		}

		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		switch {
		case a.LastMessage != nil && b.LastMessage != nil:
			return newerMessage(a.LastMessage.CreatedAt, a.LastMessage.ID, b.LastMessage.CreatedAt, b.LastMessage.ID)
		case a.LastMessage != nil:
			return true
		case b.LastMessage != nil:
			return false
		default:
			return a.Group.ID < b.Group.ID
		}
	})
	return summaries, nil
}

func newerMessage(aAt time.Time, aID uint, bAt time.Time, bID uint) bool {
	if !aAt.Equal(bAt) {
		return aAt.After(bAt)
	}
	return aID > bID
}
