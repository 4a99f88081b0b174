package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/crewhub-api/internal/models"
)

// GroupMessageRepository persists group channel messages.
type GroupMessageRepository interface {
	Create(ctx context.Context, message *models.GroupMessage) error
	FindByID(ctx context.Context, id uint) (models.GroupMessage, error)
	UpdateContent(ctx context.Context, id uint, content string, editedAt time.Time) error
	Delete(ctx context.Context, id uint) error
	ListByGroup(ctx context.Context, groupID uint, before time.Time, limit int) ([]models.GroupMessage, error)
	Latest(ctx context.Context, groupID uint) (*models.GroupMessage, error)
	CountSince(ctx context.Context, groupID uint, since time.Time, excludeSender uint) (int64, error)
}

type groupMessageRepository struct {
	db *gorm.DB
}

// NewGroupMessageRepository constructs a group message repository backed by GORM.
func NewGroupMessageRepository(db *gorm.DB) GroupMessageRepository {
	return &groupMessageRepository{db: db}
}

func (r *groupMessageRepository) Create(ctx context.Context, message *models.GroupMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *groupMessageRepository) FindByID(ctx context.Context, id uint) (models.GroupMessage, error) {
	var message models.GroupMessage
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return models.GroupMessage{}, err
	}
	return message, nil
}

func (r *groupMessageRepository) UpdateContent(ctx context.Context, id uint, content string, editedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.GroupMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"content": content, "edited_at": editedAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *groupMessageRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.GroupMessage{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *groupMessageRepository) ListByGroup(ctx context.Context, groupID uint, before time.Time, limit int) ([]models.GroupMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	query := r.db.WithContext(ctx).Where("group_id = ?", groupID)
	if !before.IsZero() {
		query = query.Where("created_at < ?", before)
	}

	var messages []models.GroupMessage
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse to chronological order ascending for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *groupMessageRepository) Latest(ctx context.Context, groupID uint) (*models.GroupMessage, error) {
	var message models.GroupMessage
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at DESC, id DESC").
		First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *groupMessageRepository) CountSince(ctx context.Context, groupID uint, since time.Time, excludeSender uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupMessage{}).
		Where("group_id = ? AND created_at > ? AND sender_id <> ?", groupID, since, excludeSender).
		Count(&count).Error
	return count, err
}
