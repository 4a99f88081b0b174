package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/crewhub-api/internal/models"
)

// GroupRepository persists groups and the membership state machine. Every transition is a
// conditional statement so concurrent sessions cannot violate the one-row-per-member rule.
type GroupRepository interface {
	FindGroup(ctx context.Context, id uint) (models.MessageGroup, error)
	ListVisible(ctx context.Context, userID uint) ([]models.MessageGroup, map[uint]models.GroupMembership, error)
	FindMembership(ctx context.Context, groupID, userID uint) (models.GroupMembership, error)
	ListMembershipsForUser(ctx context.Context, userID uint, status models.MembershipStatus) ([]models.GroupMembership, error)
	ListMembers(ctx context.Context, groupID uint, status models.MembershipStatus) ([]models.GroupMembership, error)
	ListAdmins(ctx context.Context, groupID uint) ([]models.GroupMembership, error)
	InsertMembership(ctx context.Context, membership *models.GroupMembership) (bool, error)
	TransitionStatus(ctx context.Context, groupID, userID uint, from []models.MembershipStatus, to models.MembershipStatus, decidedBy *uint, at time.Time) (bool, error)
	DeleteMembership(ctx context.Context, groupID, userID uint, status models.MembershipStatus) (bool, error)
	SetMuted(ctx context.Context, groupID, userID uint, muted bool) (bool, error)
	TouchLastRead(ctx context.Context, groupID, userID uint, at time.Time) error
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository constructs a GORM-backed group repository.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) FindGroup(ctx context.Context, id uint) (models.MessageGroup, error) {
	var group models.MessageGroup
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return models.MessageGroup{}, err
	}
	return group, nil
}

func (r *groupRepository) ListVisible(ctx context.Context, userID uint) ([]models.MessageGroup, map[uint]models.GroupMembership, error) {
	var memberships []models.GroupMembership
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, nil, err
	}

	byGroup := make(map[uint]models.GroupMembership, len(memberships))
	groupIDs := make([]uint, 0, len(memberships))
	for _, membership := range memberships {
		byGroup[membership.GroupID] = membership
		groupIDs = append(groupIDs, membership.GroupID)
	}

	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	browsable := []models.JoinPolicy{models.JoinPolicyOpen, models.JoinPolicyDiscoverable}
	if len(groupIDs) > 0 {
		query = query.Where("(join_policy IN ? OR id IN ?)", browsable, groupIDs)
	} else {
		query = query.Where("join_policy IN ?", browsable)
	}

	var groups []models.MessageGroup
	if err := query.Order("name ASC, id ASC").Find(&groups).Error; err != nil {
		return nil, nil, err
	}

	return groups, byGroup, nil
}

func (r *groupRepository) FindMembership(ctx context.Context, groupID, userID uint) (models.GroupMembership, error) {
	var membership models.GroupMembership
	if err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&membership).Error; err != nil {
		return models.GroupMembership{}, err
	}
	return membership, nil
}

func (r *groupRepository) ListMembershipsForUser(ctx context.Context, userID uint, status models.MembershipStatus) ([]models.GroupMembership, error) {
	var memberships []models.GroupMembership
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, status).
		Order("group_id ASC").
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *groupRepository) ListMembers(ctx context.Context, groupID uint, status models.MembershipStatus) ([]models.GroupMembership, error) {
	var memberships []models.GroupMembership
	if err := r.db.WithContext(ctx).
		Where("group_id = ? AND status = ?", groupID, status).
		Order("created_at ASC, id ASC").
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *groupRepository) ListAdmins(ctx context.Context, groupID uint) ([]models.GroupMembership, error) {
	var memberships []models.GroupMembership
	if err := r.db.WithContext(ctx).
		Where("group_id = ? AND status = ? AND role = ?", groupID, models.MembershipActive, models.MembershipRoleAdmin).
		Find(&memberships).Error; err != nil {
		return nil, err
	}
	return memberships, nil
}

// InsertMembership creates the row unless one already exists for (group, user). It reports
// whether this call created it; the caller re-reads the row on false.
func (r *groupRepository) InsertMembership(ctx context.Context, membership *models.GroupMembership) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(membership)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// TransitionStatus moves the membership to `to` only when its current status is one of
// `from`, returning whether the swap happened.
func (r *groupRepository) TransitionStatus(ctx context.Context, groupID, userID uint, from []models.MembershipStatus, to models.MembershipStatus, decidedBy *uint, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case models.MembershipActive:
		updates["joined_at"] = at
		updates["decided_by"] = decidedBy
		updates["decided_at"] = at
	case models.MembershipDenied:
		updates["decided_by"] = decidedBy
		updates["decided_at"] = at
	case models.MembershipPending:
		updates["decided_by"] = nil
		updates["decided_at"] = nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.GroupMembership{}).
		Where("group_id = ? AND user_id = ? AND status IN ?", groupID, userID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *groupRepository) DeleteMembership(ctx context.Context, groupID, userID uint, status models.MembershipStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, status).
		Delete(&models.GroupMembership{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *groupRepository) SetMuted(ctx context.Context, groupID, userID uint, muted bool) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GroupMembership{}).
		Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, models.MembershipActive).
		Update("is_muted", muted)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *groupRepository) TouchLastRead(ctx context.Context, groupID, userID uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.GroupMembership{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Where("(last_read_at IS NULL OR last_read_at < ?)", at).
		Update("last_read_at", at).Error
}
