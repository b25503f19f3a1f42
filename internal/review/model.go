package review

import (
	"time"

	"github.com/SlpAus/mediashelf-backend/internal/catalog"
)

const (
	MinRating        = 1
	MaxRating        = 10
	MaxContentLength = 5000
)

// Review is a user's written opinion of a catalog entry, table "reviews".
// At most one review exists per (UserID, CatalogID).
type Review struct {
	ID        string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string `gorm:"type:varchar(36);not null;uniqueIndex:idx_review_user_media,priority:1" json:"userId"`
	CatalogID string `gorm:"column:media_id;type:varchar(36);not null;uniqueIndex:idx_review_user_media,priority:2;index" json:"mediaId"`
	Rating    int    `gorm:"not null" json:"rating"`
	Content   string `json:"content"`
	IsFlagged bool   `gorm:"not null;default:false" json:"isFlagged"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Media *catalog.Entry `gorm:"foreignKey:CatalogID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Review) TableName() string { return "reviews" }
