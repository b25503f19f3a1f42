package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the store surface the catalog needs.
type Repository interface {
	// Insert creates e. It reports created=false when (APIID, Type) already exists,
	// either silently or as a Conflict error depending on the backend.
	Insert(ctx context.Context, e *Entry) (created bool, err error)
	FindBySource(ctx context.Context, sourceID string, t MediaType) (*Entry, error)
	Get(ctx context.Context, id string) (*Entry, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	SearchTitle(ctx context.Context, query string, t MediaType, limit int) ([]Entry, error)
	MostTracked(ctx context.Context, t MediaType, limit int) ([]Entry, error)
}

// GormRepository implements Repository on a gorm connection.
type GormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Insert(ctx context.Context, e *Entry) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "api_id"}, {Name: "type"}},
			DoNothing: true,
		}).
		Create(e)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return false, apperr.Conflict("catalog.insert", res.Error)
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepository) FindBySource(ctx context.Context, sourceID string, t MediaType) (*Entry, error) {
	var e Entry
	err := r.db.WithContext(ctx).Where("api_id = ? AND type = ?", sourceID, t).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("catalog.find", "media not found")
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *GormRepository) Get(ctx context.Context, id string) (*Entry, error) {
	var e Entry
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("catalog.get", "media not found")
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *GormRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&Entry{}).Where("id = ?", id).Updates(fields).Error
}

// SearchTitle matches titles case-insensitively. An empty t searches every type.
func (r *GormRepository) SearchTitle(ctx context.Context, query string, t MediaType, limit int) ([]Entry, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	q := r.db.WithContext(ctx).Where("LOWER(title) LIKE ? ESCAPE '\\'", pattern)
	if t != "" {
		q = q.Where("type = ?", t)
	}
	var out []Entry
	err := q.Order("title asc").Limit(limit).Find(&out).Error
	return out, err
}

// MostTracked orders entries of type t by how many users track them.
func (r *GormRepository) MostTracked(ctx context.Context, t MediaType, limit int) ([]Entry, error) {
	var out []Entry
	err := r.db.WithContext(ctx).
		Model(&Entry{}).
		Select("media.*").
		Joins("LEFT JOIN user_media ON user_media.media_id = media.id").
		Where("media.type = ?", t).
		Group("media.id").
		Order("COUNT(user_media.id) DESC").
		Order("media.created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
