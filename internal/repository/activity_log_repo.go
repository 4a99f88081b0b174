package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/crewhub-api/internal/models"
)

// ActivityLogFilter narrows moderation audit queries.
type ActivityLogFilter struct {
	Page       int
	PageSize   int
	ActorID    *uint
	Action     string
	EntityType string
}

// ActivityLogRepository persists the moderation audit trail.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	scoped := r.db.WithContext(ctx).Model(&models.ActivityLog{})
	if filter.ActorID != nil {
		scoped = scoped.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.Action != "" {
		scoped = scoped.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		scoped = scoped.Where("entity_type = ?", filter.EntityType)
	}

	var total int64
	if err := scoped.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	var entries []models.ActivityLog
	if err := scoped.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
