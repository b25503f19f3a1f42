package catalog

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// MediaType is the closed set of media kinds the catalog accepts.
type MediaType string

const (
	Movie MediaType = "movie"
	TV    MediaType = "tv"
	Book  MediaType = "book"
	Game  MediaType = "game"
)

// MediaTypes lists every known type in display order.
var MediaTypes = []MediaType{Movie, TV, Book, Game}

// Valid reports whether t is one of the known types.
func (t MediaType) Valid() bool {
	switch t {
	case Movie, TV, Book, Game:
		return true
	}
	return false
}

// ParseMediaType accepts a wire value, case-insensitively.
func ParseMediaType(s string) (MediaType, error) {
	t := MediaType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown media type %q", s)
	}
	return t, nil
}

// Entry is the canonical catalog record, table "media".
// (APIID, Type) identifies the record in its upstream source.
type Entry struct {
	ID          string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	APIID       string                      `gorm:"column:api_id;type:varchar(128);not null;uniqueIndex:idx_media_source,priority:1" json:"apiId"`
	Type        MediaType                   `gorm:"type:varchar(16);not null;uniqueIndex:idx_media_source,priority:2;index" json:"type"`
	Title       string                      `gorm:"not null" json:"title"`
	Description string                      `json:"description,omitempty"`
	PosterURL   string                      `gorm:"column:poster_url" json:"posterUrl,omitempty"`
	ReleaseDate string                      `json:"releaseDate,omitempty"`
	Genres      datatypes.JSONSlice[string] `json:"genres"`
	CreatedAt   time.Time                   `json:"createdAt"`
}

func (Entry) TableName() string { return "media" }

// Descriptor is a media item as reported by a search provider, before it has a catalog id.
type Descriptor struct {
	SourceID    string    `json:"sourceId" binding:"required"`
	Type        MediaType `json:"type" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description,omitempty"`
	PosterURL   string    `json:"posterUrl,omitempty"`
	ReleaseDate string    `json:"releaseDate,omitempty"`
	Genres      []string  `json:"genres,omitempty"`
}

// Validate checks the identity fields of a descriptor.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.SourceID) == "" {
		return fmt.Errorf("sourceId is required")
	}
	if !d.Type.Valid() {
		return fmt.Errorf("unknown media type %q", d.Type)
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// toEntry builds a new catalog record for d under the given id.
func (d Descriptor) toEntry(id string) *Entry {
	genres := d.Genres
	if genres == nil {
		genres = []string{}
	}
	return &Entry{
		ID:          id,
		APIID:       d.SourceID,
		Type:        d.Type,
		Title:       d.Title,
		Description: d.Description,
		PosterURL:   d.PosterURL,
		ReleaseDate: d.ReleaseDate,
		Genres:      datatypes.JSONSlice[string](genres),
	}
}

// Descriptor converts a stored entry back to the provider-facing shape.
func (e Entry) Descriptor() Descriptor {
	return Descriptor{
		SourceID:    e.APIID,
		Type:        e.Type,
		Title:       e.Title,
		Description: e.Description,
		PosterURL:   e.PosterURL,
		ReleaseDate: e.ReleaseDate,
		Genres:      []string(e.Genres),
	}
}

// backfill returns the columns of e that are empty but supplied by d.
// Existing values are never overwritten.
func (e Entry) backfill(d Descriptor) map[string]any {
	fields := map[string]any{}
	if e.Description == "" && d.Description != "" {
		fields["description"] = d.Description
	}
	if e.PosterURL == "" && d.PosterURL != "" {
		fields["poster_url"] = d.PosterURL
	}
	if e.ReleaseDate == "" && d.ReleaseDate != "" {
		fields["release_date"] = d.ReleaseDate
	}
	if len(e.Genres) == 0 && len(d.Genres) > 0 {
		fields["genres"] = datatypes.JSONSlice[string](d.Genres)
	}
	return fields
}
