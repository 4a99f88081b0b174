package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/crewhub-api/internal/models"
)

// ConversationRequestRepository persists contact requests sent by non-admin users.
type ConversationRequestRepository interface {
	CreatePending(ctx context.Context, request *models.ConversationRequest) (bool, error)
	FindByID(ctx context.Context, id uint) (models.ConversationRequest, error)
	ListIncoming(ctx context.Context, toUserID uint, status models.ConversationRequestStatus) ([]models.ConversationRequest, error)
	TransitionStatus(ctx context.Context, id uint, to models.ConversationRequestStatus, at time.Time) (bool, error)
	Approve(ctx context.Context, id uint, opening *models.DirectMessage, at time.Time) (bool, error)
}

type conversationRequestRepository struct {
	db *gorm.DB
}

// NewConversationRequestRepository constructs the repository.
func NewConversationRequestRepository(db *gorm.DB) ConversationRequestRepository {
	return &conversationRequestRepository{db: db}
}

// CreatePending inserts a PENDING request. It returns false when the pair already has one;
// the partial unique index makes that check race free.
func (r *conversationRequestRepository) CreatePending(ctx context.Context, request *models.ConversationRequest) (bool, error) {
	request.Status = models.ConversationRequestPending
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(request)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *conversationRequestRepository) FindByID(ctx context.Context, id uint) (models.ConversationRequest, error) {
	var request models.ConversationRequest
	if err := r.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return models.ConversationRequest{}, err
	}
	return request, nil
}

func (r *conversationRequestRepository) ListIncoming(ctx context.Context, toUserID uint, status models.ConversationRequestStatus) ([]models.ConversationRequest, error) {
	query := r.db.WithContext(ctx).Where("to_user_id = ?", toUserID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []models.ConversationRequest
	if err := query.Order("created_at DESC, id DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// Approve moves a pending request to APPROVED and stores the opening message in one
// transaction. It returns false, writing nothing, when the request is no longer pending.
func (r *conversationRequestRepository) Approve(ctx context.Context, id uint, opening *models.DirectMessage, at time.Time) (bool, error) {
	approved := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ConversationRequest{}).
			Where("id = ? AND status = ?", id, models.ConversationRequestPending).
			Updates(map[string]interface{}{"status": models.ConversationRequestApproved, "decided_at": at})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		if err := tx.Create(opening).Error; err != nil {
			return err
		}
		approved = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return approved, nil
}

// TransitionStatus decides a pending request. It returns false when the request was already
// decided by someone else.
func (r *conversationRequestRepository) TransitionStatus(ctx context.Context, id uint, to models.ConversationRequestStatus, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ConversationRequest{}).
		Where("id = ? AND status = ?", id, models.ConversationRequestPending).
		Updates(map[string]interface{}{"status": to, "decided_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
