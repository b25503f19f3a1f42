package tracking

import (
	"fmt"
	"strings"
	"time"

	"github.com/SlpAus/mediashelf-backend/internal/catalog"
)

// Status is the consumption state of a tracked item.
type Status string

const (
	Planned    Status = "planned"
	InProgress Status = "in_progress"
	Completed  Status = "completed"
	Dropped    Status = "dropped"
)

// Statuses lists every status in display order.
var Statuses = []Status{Planned, InProgress, Completed, Dropped}

func (s Status) Valid() bool {
	switch s {
	case Planned, InProgress, Completed, Dropped:
		return true
	}
	return false
}

// resets reports whether entering s discards progress.
func (s Status) resets() bool {
	return s == Planned || s == Dropped
}

// ParseStatus accepts a wire value. Older clients send plan_to_watch and watching.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "planned", "plan_to_watch", "plan_to_read", "plan_to_play":
		return Planned, nil
	case "in_progress", "inprogress", "watching", "reading", "playing":
		return InProgress, nil
	case "completed":
		return Completed, nil
	case "dropped":
		return Dropped, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Link is one user's tracking state for one catalog entry, table "user_media".
// (UserID, CatalogID) is unique. Rating 0 means unrated.
type Link struct {
	ID              string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_media,priority:1;index:idx_user_updated,priority:1" json:"userId"`
	CatalogID       string         `gorm:"column:media_id;type:varchar(36);not null;uniqueIndex:idx_user_media,priority:2;index" json:"mediaId"`
	Status          Status         `gorm:"type:varchar(16);not null" json:"status"`
	Progress        int            `gorm:"not null" json:"progress"`
	WatchedEpisodes *int           `json:"watchedEpisodes,omitempty"`
	TotalEpisodes   *int           `json:"totalEpisodes,omitempty"`
	Rating          int            `gorm:"not null" json:"rating"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime:false;index:idx_user_updated,priority:2" json:"updatedAt"`
	Media           *catalog.Entry `gorm:"foreignKey:CatalogID;references:ID;constraint:OnDelete:CASCADE" json:"media,omitempty"`
}

func (Link) TableName() string { return "user_media" }

// clone returns a deep copy so transitions never alias the caller's link.
func (l *Link) clone() *Link {
	cp := *l
	if l.WatchedEpisodes != nil {
		w := *l.WatchedEpisodes
		cp.WatchedEpisodes = &w
	}
	if l.TotalEpisodes != nil {
		t := *l.TotalEpisodes
		cp.TotalEpisodes = &t
	}
	return &cp
}
