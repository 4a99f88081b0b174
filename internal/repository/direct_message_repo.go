package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/crewhub-api/internal/models"
)

// DirectMessageRepository persists one-to-one messages.
type DirectMessageRepository interface {
	Create(ctx context.Context, message *models.DirectMessage) error
	FindByID(ctx context.Context, id uint) (models.DirectMessage, error)
	UpdateContent(ctx context.Context, id uint, content string, editedAt time.Time) error
	Delete(ctx context.Context, id uint) error
	ListForUser(ctx context.Context, userID uint) ([]models.DirectMessage, error)
	ListBetween(ctx context.Context, userID, partnerID uint) ([]models.DirectMessage, error)
	CountUnreadBySender(ctx context.Context, recipientID uint) (map[uint]int64, error)
	MarkReadFrom(ctx context.Context, recipientID, senderID uint) (int64, error)
}

type directMessageRepository struct {
	db *gorm.DB
}

// NewDirectMessageRepository constructs a repository backed by GORM.
func NewDirectMessageRepository(db *gorm.DB) DirectMessageRepository {
	return &directMessageRepository{db: db}
}

func (r *directMessageRepository) Create(ctx context.Context, message *models.DirectMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *directMessageRepository) FindByID(ctx context.Context, id uint) (models.DirectMessage, error) {
	var message models.DirectMessage
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		return models.DirectMessage{}, err
	}
	return message, nil
}

func (r *directMessageRepository) UpdateContent(ctx context.Context, id uint, content string, editedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.DirectMessage{}).
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

func (r *directMessageRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.DirectMessage{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *directMessageRepository) ListForUser(ctx context.Context, userID uint) ([]models.DirectMessage, error) {
	var messages []models.DirectMessage
	if err := r.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *directMessageRepository) ListBetween(ctx context.Context, userID, partnerID uint) ([]models.DirectMessage, error) {
	var messages []models.DirectMessage
	if err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", userID, partnerID, partnerID, userID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *directMessageRepository) CountUnreadBySender(ctx context.Context, recipientID uint) (map[uint]int64, error) {
	type row struct {
		SenderID uint
		Count    int64
	}
	var rows []row

	if err := r.db.WithContext(ctx).
		Model(&models.DirectMessage{}).
		Select("sender_id, COUNT(*) AS count").
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Group("sender_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, item := range rows {
		counts[item.SenderID] = item.Count
	}
	return counts, nil
}

func (r *directMessageRepository) MarkReadFrom(ctx context.Context, recipientID, senderID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.DirectMessage{}).
		Where("recipient_id = ? AND sender_id = ? AND read = ?", recipientID, senderID, false).
		Update("read", true)
	return result.RowsAffected, result.Error
}
