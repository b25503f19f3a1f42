package review

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/SlpAus/mediashelf-backend/internal/catalog"
	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogLookup confirms a catalog entry exists.
type CatalogLookup interface {
	Get(ctx context.Context, id string) (*catalog.Entry, error)
}

// Service validates and stores reviews.
type Service struct {
	repo    *Repository
	catalog CatalogLookup
	log     *zap.Logger
}

func NewService(repo *Repository, cat CatalogLookup, log *zap.Logger) *Service {
	return &Service{repo: repo, catalog: cat, log: log.Named("review")}
}

// Get returns userID's review of catalogID.
func (s *Service) Get(ctx context.Context, userID, catalogID string) (*Review, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("review.get")
	}
	return s.repo.Get(ctx, userID, catalogID)
}

// Write creates or replaces userID's review of catalogID.
func (s *Service) Write(ctx context.Context, userID, catalogID string, rating int, content string) (*Review, error) {
	const op = "review.write"
	if userID == "" {
		return nil, apperr.Unauthorized(op)
	}

	// 1. Validate before touching the store
	if rating < MinRating || rating > MaxRating {
		return nil, apperr.Validation(op, "rating must be between %d and %d", MinRating, MaxRating)
	}
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, apperr.Validation(op, "content exceeds %d characters", MaxContentLength)
	}
	if _, err := s.catalog.Get(ctx, catalogID); err != nil {
		return nil, err
	}

	// 2. Upsert
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate review id: %w", err)
	}
	rv, err := s.repo.Upsert(ctx, &Review{
		ID:        id.String(),
		UserID:    userID,
		CatalogID: catalogID,
		Rating:    rating,
		Content:   content,
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("review written", zap.String("user", userID), zap.String("media", catalogID))
	return rv, nil
}

// Flag marks authorID's review of catalogID for moderation.
func (s *Service) Flag(ctx context.Context, authorID, catalogID string) error {
	if err := s.repo.Flag(ctx, authorID, catalogID); err != nil {
		return err
	}
	s.log.Info("review flagged", zap.String("author", authorID), zap.String("media", catalogID))
	return nil
}
