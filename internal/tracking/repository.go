package tracking

import (
	"context"
	"errors"

	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the store surface the tracking service needs.
type Repository interface {
	Get(ctx context.Context, userID, catalogID string) (*Link, error)
	List(ctx context.Context, userID string, status *Status) ([]Link, error)
	// Upsert writes l keyed by (UserID, CatalogID) and returns the stored row.
	Upsert(ctx context.Context, l *Link) (*Link, error)
	Save(ctx context.Context, l *Link) error
	Delete(ctx context.Context, userID, catalogID string) error
}

// GormRepository implements Repository on a gorm connection.
type GormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Get(ctx context.Context, userID, catalogID string) (*Link, error) {
	var l Link
	err := r.db.WithContext(ctx).
		Preload("Media").
		Where("user_id = ? AND media_id = ?", userID, catalogID).
		Take(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("tracking.get", "media is not in the library")
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// List returns the user's links, most recently updated first.
func (r *GormRepository) List(ctx context.Context, userID string, status *Status) ([]Link, error) {
	q := r.db.WithContext(ctx).Preload("Media").Where("user_id = ?", userID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	links := []Link{}
	err := q.Order("updated_at DESC").Order("id ASC").Find(&links).Error
	return links, err
}

func (r *GormRepository) Upsert(ctx context.Context, l *Link) (*Link, error) {
	err := r.db.WithContext(ctx).
		Omit("Media").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "media_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "progress", "watched_episodes", "updated_at",
			}),
		}).
		Create(l).Error
	if err != nil {
		return nil, err
	}
	// the row id may belong to an earlier insert; read back what is stored
	return r.Get(ctx, l.UserID, l.CatalogID)
}

func (r *GormRepository) Save(ctx context.Context, l *Link) error {
	res := r.db.WithContext(ctx).
		Model(&Link{}).
		Where("user_id = ? AND media_id = ?", l.UserID, l.CatalogID).
		Select("status", "progress", "watched_episodes", "total_episodes", "rating", "updated_at").
		Updates(map[string]any{
			"status":           l.Status,
			"progress":         l.Progress,
			"watched_episodes": l.WatchedEpisodes,
			"total_episodes":   l.TotalEpisodes,
			"rating":           l.Rating,
			"updated_at":       l.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("tracking.save", "media is not in the library")
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, userID, catalogID string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND media_id = ?", userID, catalogID).Delete(&Link{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("tracking.remove", "media is not in the library")
	}
	return nil
}
