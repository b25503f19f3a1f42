package review

import (
	"context"
	"errors"

	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists reviews.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Get(ctx context.Context, userID, catalogID string) (*Review, error) {
	var rv Review
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND media_id = ?", userID, catalogID).
		Take(&rv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("review.get", "review not found")
	}
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// Upsert writes rv keyed by (UserID, CatalogID). Rewriting a review clears its flag.
func (r *Repository) Upsert(ctx context.Context, rv *Review) (*Review, error) {
	rv.IsFlagged = false
	err := r.db.WithContext(ctx).
		Omit("Media").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "media_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "content", "is_flagged", "updated_at"}),
		}).
		Create(rv).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, rv.UserID, rv.CatalogID)
}

// Flag marks a review for moderation.
func (r *Repository) Flag(ctx context.Context, userID, catalogID string) error {
	res := r.db.WithContext(ctx).
		Model(&Review{}).
		Where("user_id = ? AND media_id = ?", userID, catalogID).
		Update("is_flagged", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("review.flag", "review not found")
	}
	return nil
}
