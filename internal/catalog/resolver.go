package catalog

import (
	"context"
	"fmt"

	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/SlpAus/mediashelf-backend/internal/platform/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Resolver maps provider descriptors onto canonical catalog entries.
type Resolver struct {
	repo Repository
	log  *zap.Logger
}

func NewResolver(repo Repository, log *zap.Logger) *Resolver {
	return &Resolver{repo: repo, log: log.Named("catalog")}
}

// Resolve returns the catalog entry for d, creating it on first sight.
//
// The insert is attempted first and the uniqueness constraint on (api_id, type)
// decides the winner. A loser re-reads the row the winner wrote, so concurrent
// callers for the same descriptor all observe one id and never see the conflict.
func (r *Resolver) Resolve(ctx context.Context, d Descriptor) (*Entry, error) {
	if err := d.Validate(); err != nil {
		return nil, apperr.Validation("catalog.resolve", "%s", err.Error())
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate catalog id: %w", err)
	}
	entry := d.toEntry(id.String())

	// 1. Insert first
	created, err := r.repo.Insert(ctx, entry)
	if err != nil && !apperr.Is(err, apperr.KindConflict) {
		return nil, fmt.Errorf("insert catalog entry: %w", err)
	}
	if created {
		metrics.ResolverOutcomes.WithLabelValues("created").Inc()
		r.log.Debug("catalog entry created", zap.String("id", entry.ID), zap.String("source", d.SourceID), zap.String("type", string(d.Type)))
		return entry, nil
	}
	if err != nil {
		metrics.ResolverOutcomes.WithLabelValues("conflict").Inc()
	} else {
		metrics.ResolverOutcomes.WithLabelValues("existing").Inc()
	}

	// 2. The row exists; read it back
	existing, err := r.repo.FindBySource(ctx, d.SourceID, d.Type)
	if err != nil {
		return nil, fmt.Errorf("re-read catalog entry: %w", err)
	}

	// 3. Fill in metadata the stored row is missing
	if fields := existing.backfill(d); len(fields) > 0 {
		if err := r.repo.Update(ctx, existing.ID, fields); err != nil {
			r.log.Warn("catalog backfill failed", zap.String("id", existing.ID), zap.Error(err))
		} else {
			applyBackfill(existing, d, fields)
		}
	}
	return existing, nil
}

func applyBackfill(e *Entry, d Descriptor, fields map[string]any) {
	if _, ok := fields["description"]; ok {
		e.Description = d.Description
	}
	if _, ok := fields["poster_url"]; ok {
		e.PosterURL = d.PosterURL
	}
	if _, ok := fields["release_date"]; ok {
		e.ReleaseDate = d.ReleaseDate
	}
	if _, ok := fields["genres"]; ok {
		e.Genres = d.Genres
	}
}

// Get returns the entry with the given catalog id.
func (r *Resolver) Get(ctx context.Context, id string) (*Entry, error) {
	return r.repo.Get(ctx, id)
}
