package service

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// GroupAccessService runs the membership state machine:
// NONE -> PENDING -> {ACTIVE, DENIED}, NONE -> ACTIVE for OPEN groups, DENIED -> PENDING on re-request.
type GroupAccessService interface {
	ListGroups(ctx context.Context, actor Actor) ([]dto.GroupListItem, error)
	RequestAccess(ctx context.Context, actor Actor, groupID uint) (dto.GroupAccessResponse, error)
	Decide(ctx context.Context, actor Actor, groupID, userID uint, approve bool) (dto.MembershipResponse, error)
	ListPending(ctx context.Context, actor Actor, groupID uint) ([]dto.PendingAccessRequest, error)
	AddMember(ctx context.Context, actor Actor, groupID, userID uint) (dto.MembershipResponse, error)
	RemoveMember(ctx context.Context, actor Actor, groupID, userID uint) error
	Leave(ctx context.Context, actor Actor, groupID uint) error
	SetMuted(ctx context.Context, actor Actor, groupID uint, muted bool) (dto.MembershipResponse, error)
}

type groupAccessService struct {
	groups     repository.GroupRepository
	users      repository.UserRepository
	dispatcher Dispatcher
	audit      ActivityRecorder
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewGroupAccessService constructs the group access controller.
func NewGroupAccessService(groups repository.GroupRepository, users repository.UserRepository, dispatcher Dispatcher, audit ActivityRecorder, logger zerolog.Logger) GroupAccessService {
	return &groupAccessService{
		groups:     groups,
		users:      users,
		dispatcher: dispatcher,
		audit:      audit,
		logger:     logger.With().Str("component", "group_access_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/crewhub-api/internal/service/group_access"),
		now:        time.Now,
	}
}

func (s *groupAccessService) ListGroups(ctx context.Context, actor Actor) ([]dto.GroupListItem, error) {
	groups, memberships, err := s.groups.ListVisible(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.GroupListItem, 0, len(groups))
	for _, group := range groups {
		item := dto.GroupListItem{GroupResponse: dto.NewGroupResponse(group)}
		if membership, ok := memberships[group.ID]; ok {
			item.MembershipStatus = string(membership.Status)
			item.MembershipRole = string(membership.Role)
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *groupAccessService) RequestAccess(ctx context.Context, actor Actor, groupID uint) (dto.GroupAccessResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "groups.request_access", trace.WithAttributes(
		attribute.Int64("group.id", int64(groupID)),
		attribute.Int64("group.user_id", int64(actor.ID)),
	))
	defer span.End()

	group, err := s.groups.FindGroup(spanCtx, groupID)
	if err != nil {
		return dto.GroupAccessResponse{}, translateNotFound(err, "group not found")
	}
	if !group.IsActive {
		return dto.GroupAccessResponse{}, apperror.Forbidden("group is not active")
	}

	now := s.now().UTC()
	if group.JoinPolicy == models.JoinPolicyOpen {
		membership, err := s.activate(spanCtx, group.ID, actor.ID, nil, now)
		if err != nil {
			return dto.GroupAccessResponse{}, err
		}
		return dto.GroupAccessResponse{AutoApproved: true, Membership: dto.NewMembershipResponse(membership)}, nil
	}

	created, err := s.groups.InsertMembership(spanCtx, &models.GroupMembership{
		GroupID:   group.ID,
		UserID:    actor.ID,
		Role:      models.MembershipRoleMember,
		Status:    models.MembershipPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		span.RecordError(err)
		return dto.GroupAccessResponse{}, err
	}

	notify := created
	if !created {
		existing, err := s.groups.FindMembership(spanCtx, group.ID, actor.ID)
		if err != nil {
			return dto.GroupAccessResponse{}, translateNotFound(err, "membership not found")
		}
		if existing.Status == models.MembershipDenied {
			moved, err := s.groups.TransitionStatus(spanCtx, group.ID, actor.ID,
				[]models.MembershipStatus{models.MembershipDenied}, models.MembershipPending, nil, now)
			if err != nil {
				return dto.GroupAccessResponse{}, err
			}
			notify = moved
		}
	}

	membership, err := s.groups.FindMembership(spanCtx, group.ID, actor.ID)
	if err != nil {
		return dto.GroupAccessResponse{}, translateNotFound(err, "membership not found")
	}

	if notify && membership.Status == models.MembershipPending {
		s.dispatcher.Dispatch(spanCtx, actor.ID, s.deciders(spanCtx, group.ID), Notice{
			Type:  models.NotificationGroupAccessRequest,
			Title: fmt.Sprintf("%s asked to join %s", s.displayName(spanCtx, actor.ID), group.Name),
			Link:  fmt.Sprintf("/groups/%d/access-requests", group.ID),
			Metadata: map[string]interface{}{
				"group_id": group.ID,
				"user_id":  actor.ID,
			},
		})
	}

	return dto.GroupAccessResponse{
		AutoApproved: false,
		Membership:   dto.NewMembershipResponse(membership),
	}, nil
}

func (s *groupAccessService) Decide(ctx context.Context, actor Actor, groupID, userID uint, approve bool) (dto.MembershipResponse, error) {
	target := models.MembershipDenied
	if approve {
		target = models.MembershipActive
	}

	spanCtx, span := s.tracer.Start(ctx, "groups.decide_access", trace.WithAttributes(
		attribute.Int64("group.id", int64(groupID)),
		attribute.Int64("group.user_id", int64(userID)),
		attribute.String("group.decision", string(target)),
	))
	defer span.End()

	group, err := s.authorizeManager(spanCtx, actor, groupID)
	if err != nil {
		return dto.MembershipResponse{}, err
	}

	membership, err := s.groups.FindMembership(spanCtx, groupID, userID)
	if err != nil {
		return dto.MembershipResponse{}, translateNotFound(err, "access request not found")
	}
	if membership.Status == target {
		return dto.NewMembershipResponse(membership), nil
	}
	if membership.Status != models.MembershipPending {
		return dto.MembershipResponse{}, apperror.Conflict("access request was already decided")
	}

	now := s.now().UTC()
	moved, err := s.groups.TransitionStatus(spanCtx, groupID, userID,
		[]models.MembershipStatus{models.MembershipPending}, target, &actor.ID, now)
	if err != nil {
		span.RecordError(err)
		return dto.MembershipResponse{}, err
	}

	membership, err = s.groups.FindMembership(spanCtx, groupID, userID)
	if err != nil {
		return dto.MembershipResponse{}, translateNotFound(err, "access request not found")
	}
	if !moved {
		// Another decider won the race; same outcome is a no-op, the opposite is a conflict.
		if membership.Status == target {
			return dto.NewMembershipResponse(membership), nil
		}
		return dto.MembershipResponse{}, apperror.Conflict("access request was already decided")
	}

	observability.GroupAccessDecisionsTotal().WithLabelValues(string(target)).Inc()

	action := ActionAccessDenied
	notice := Notice{
		Type:  models.NotificationGroupAccessDenied,
		Title: fmt.Sprintf("Your request to join %s was declined", group.Name),
	}
	if approve {
		action = ActionAccessApproved
		notice = Notice{
			Type:  models.NotificationGroupAccessApproved,
			Title: fmt.Sprintf("You now have access to %s", group.Name),
			Link:  fmt.Sprintf("/groups/%d", group.ID),
		}
	}
	notice.Metadata = map[string]interface{}{"group_id": group.ID}

	recordAudit(spanCtx, s.audit, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: models.AuditEntityGroupMembership,
		EntityID:   uintPtr(membership.ID),
		Metadata:   map[string]interface{}{"group_id": group.ID, "user_id": userID},
	})
	s.dispatcher.Dispatch(spanCtx, actor.ID, []uint{userID}, notice)

	return dto.NewMembershipResponse(membership), nil
}

func (s *groupAccessService) ListPending(ctx context.Context, actor Actor, groupID uint) ([]dto.PendingAccessRequest, error) {
	if _, err := s.authorizeManager(ctx, actor, groupID); err != nil {
		return nil, err
	}

	pending, err := s.groups.ListMembers(ctx, groupID, models.MembershipPending)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(pending))
	for _, membership := range pending {
		ids = append(ids, membership.UserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]dto.PendingAccessRequest, 0, len(pending))
	for _, membership := range pending {
		summary := dto.UserSummary{ID: membership.UserID}
		if user, ok := users[membership.UserID]; ok {
			summary = dto.NewUserSummary(user)
		}
		out = append(out, dto.PendingAccessRequest{
			Membership: dto.NewMembershipResponse(membership),
			User:       summary,
		})
	}
	return out, nil
}

func (s *groupAccessService) AddMember(ctx context.Context, actor Actor, groupID, userID uint) (dto.MembershipResponse, error) {
	group, err := s.authorizeManager(ctx, actor, groupID)
	if err != nil {
		return dto.MembershipResponse{}, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MembershipResponse{}, apperror.Validation("user does not exist")
		}
		return dto.MembershipResponse{}, err
	}
	if !user.IsActive {
		return dto.MembershipResponse{}, apperror.Validation("user is not active")
	}

	before, err := s.groups.FindMembership(ctx, groupID, userID)
	alreadyActive := err == nil && before.IsActive()
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.MembershipResponse{}, err
	}
	if alreadyActive {
		return dto.NewMembershipResponse(before), nil
	}

	membership, err := s.activate(ctx, groupID, userID, &actor.ID, s.now().UTC())
	if err != nil {
		return dto.MembershipResponse{}, err
	}

	recordAudit(ctx, s.audit, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     ActionMemberAdded,
		EntityType: models.AuditEntityGroupMembership,
		EntityID:   uintPtr(membership.ID),
		Metadata:   map[string]interface{}{"group_id": groupID, "user_id": userID},
	})
	s.dispatcher.Dispatch(ctx, actor.ID, []uint{userID}, Notice{
		Type:     models.NotificationGroupMemberAdded,
		Title:    fmt.Sprintf("You were added to %s", group.Name),
		Link:     fmt.Sprintf("/groups/%d", group.ID),
		Metadata: map[string]interface{}{"group_id": group.ID},
	})

	return dto.NewMembershipResponse(membership), nil
}

func (s *groupAccessService) RemoveMember(ctx context.Context, actor Actor, groupID, userID uint) error {
	if actor.ID == userID {
		return apperror.Forbidden("use leave to remove yourself from a group")
	}
	if _, err := s.authorizeManager(ctx, actor, groupID); err != nil {
		return err
	}

	removed, err := s.groups.DeleteMembership(ctx, groupID, userID, models.MembershipActive)
	if err != nil {
		return err
	}
	if !removed {
		return apperror.NotFound("member not found")
	}

	recordAudit(ctx, s.audit, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     ActionMemberRemoved,
		EntityType: models.AuditEntityGroupMembership,
		Metadata:   map[string]interface{}{"group_id": groupID, "user_id": userID},
	})
	return nil
}

func (s *groupAccessService) Leave(ctx context.Context, actor Actor, groupID uint) error {
	removed, err := s.groups.DeleteMembership(ctx, groupID, actor.ID, models.MembershipActive)
	if err != nil {
		return err
	}
	if !removed {
		return apperror.NotFound("membership not found")
	}
	return nil
}

func (s *groupAccessService) SetMuted(ctx context.Context, actor Actor, groupID uint, muted bool) (dto.MembershipResponse, error) {
	changed, err := s.groups.SetMuted(ctx, groupID, actor.ID, muted)
	if err != nil {
		return dto.MembershipResponse{}, err
	}

	membership, err := s.groups.FindMembership(ctx, groupID, actor.ID)
	if err != nil {
		return dto.MembershipResponse{}, translateNotFound(err, "membership not found")
	}
	if !changed && !membership.IsActive() {
		return dto.MembershipResponse{}, apperror.NotFound("membership not found")
	}
	return dto.NewMembershipResponse(membership), nil
}

// activate makes the membership ACTIVE whatever its previous state.
func (s *groupAccessService) activate(ctx context.Context, groupID, userID uint, decidedBy *uint, now time.Time) (models.GroupMembership, error) {
	created, err := s.groups.InsertMembership(ctx, &models.GroupMembership{
		GroupID:   groupID,
		UserID:    userID,
		Role:      models.MembershipRoleMember,
		Status:    models.MembershipActive,
		JoinedAt:  now,
		DecidedBy: decidedBy,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return models.GroupMembership{}, err
	}
	if !created {
		if _, err := s.groups.TransitionStatus(ctx, groupID, userID,
			[]models.MembershipStatus{models.MembershipPending, models.MembershipDenied},
			models.MembershipActive, decidedBy, now); err != nil {
			return models.GroupMembership{}, err
		}
	}

	membership, err := s.groups.FindMembership(ctx, groupID, userID)
	if err != nil {
		return models.GroupMembership{}, translateNotFound(err, "membership not found")
	}
	return membership, nil
}

// authorizeManager allows platform administrators and ACTIVE group admins.
func (s *groupAccessService) authorizeManager(ctx context.Context, actor Actor, groupID uint) (models.MessageGroup, error) {
	group, err := s.groups.FindGroup(ctx, groupID)
	if err != nil {
		return models.MessageGroup{}, translateNotFound(err, "group not found")
	}
	if actor.IsAdministrator() {
		return group, nil
	}

	membership, err := s.groups.FindMembership(ctx, groupID, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.MessageGroup{}, apperror.Forbidden("only group admins can manage members")
		}
		return models.MessageGroup{}, err
	}
	if !membership.IsGroupAdmin() {
		return models.MessageGroup{}, apperror.Forbidden("only group admins can manage members")
	}
	return group, nil
}

// deciders lists who is told about a new access request: the group's admins, or the
// platform administrators when the group has none.
func (s *groupAccessService) deciders(ctx context.Context, groupID uint) []uint {
	admins, err := s.groups.ListAdmins(ctx, groupID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("group_id", groupID).Msg("failed to load group admins")
	}
	ids := make([]uint, 0, len(admins))
	for _, admin := range admins {
		ids = append(ids, admin.UserID)
	}
	if len(ids) > 0 {
		return ids
	}

	platformAdmins, err := s.users.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load platform administrators")
		return nil
	}
	for _, admin := range platformAdmins {
		ids = append(ids, admin.ID)
	}
	return ids
}

func (s *groupAccessService) displayName(ctx context.Context, userID uint) string {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil || user.Name == "" {
		return "Someone"
	}
	return user.Name
}
