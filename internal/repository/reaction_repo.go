package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/crewhub-api/internal/models"
)

// ReactionToggleResult describes what a toggle did to the caller's reaction.
type ReactionToggleResult struct {
	Previous *models.ReactionType
	Current  *models.ReactionType
}

// ReactionRepository stores reactions and computes per-type counts.
type ReactionRepository interface {
	Toggle(ctx context.Context, userID, targetID uint, kind models.TargetKind, reaction models.ReactionType, at time.Time) (ReactionToggleResult, error)
	Counts(ctx context.Context, targetID uint, kind models.TargetKind) (map[models.ReactionType]int64, error)
	FindByUser(ctx context.Context, userID, targetID uint, kind models.TargetKind) (*models.Reaction, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository constructs a GORM-backed reaction repository.
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

// Toggle removes the caller's reaction when it already has the requested type, switches it
// when it has another type and creates it otherwise. The unique index on (user, target, kind)
// keeps concurrent toggles from producing two rows.
func (r *reactionRepository) Toggle(ctx context.Context, userID, targetID uint, kind models.TargetKind, reaction models.ReactionType, at time.Time) (ReactionToggleResult, error) {
	var result ReactionToggleResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed := tx.
			Where("user_id = ? AND target_id = ? AND target_kind = ? AND type = ?", userID, targetID, kind, reaction).
			Delete(&models.Reaction{})
		if removed.Error != nil {
			return removed.Error
		}
		if removed.RowsAffected > 0 {
			previous := reaction
			result.Previous = &previous
			return nil
		}

		var existing models.Reaction
		err := tx.Where("user_id = ? AND target_id = ? AND target_kind = ?", userID, targetID, kind).First(&existing).Error
		switch {
		case err == nil:
			switched := tx.Model(&models.Reaction{}).
				Where("id = ? AND type = ?", existing.ID, existing.Type).
				Updates(map[string]interface{}{"type": reaction, "updated_at": at})
			if switched.Error != nil {
				return switched.Error
			}
			if switched.RowsAffected == 1 {
				previous := existing.Type
				result.Previous = &previous
				current := reaction
				result.Current = &current
				return nil
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		row := models.Reaction{
			Type:       reaction,
			UserID:     userID,
			TargetID:   targetID,
			TargetKind: kind,
			CreatedAt:  at,
			UpdatedAt:  at,
		}
		// Concurrent first toggles of the same type can both land here and both report an
		// add; the upsert collapses them, so repeated submits end with one reaction.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "target_id"}, {Name: "target_kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"type", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}
		current := reaction
		result.Current = &current
		return nil
	})
	if err != nil {
		return ReactionToggleResult{}, err
	}

	return result, nil
}

func (r *reactionRepository) Counts(ctx context.Context, targetID uint, kind models.TargetKind) (map[models.ReactionType]int64, error) {
	type row struct {
		Type  models.ReactionType
		Total int64
	}

	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.Reaction{}).
		Select("type, COUNT(*) AS total").
		Where("target_id = ? AND target_kind = ?", targetID, kind).
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.ReactionType]int64, len(models.ReactionTypes))
	for _, reactionType := range models.ReactionTypes {
		counts[reactionType] = 0
	}
	for _, item := range rows {
		counts[item.Type] = item.Total
	}
	return counts, nil
}

func (r *reactionRepository) FindByUser(ctx context.Context, userID, targetID uint, kind models.TargetKind) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_id = ? AND target_kind = ?", userID, targetID, kind).
		First(&reaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}
