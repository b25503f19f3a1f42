package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/mediashelf-backend/internal/cache"
	"github.com/SlpAus/mediashelf-backend/internal/catalog"
	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/SlpAus/mediashelf-backend/internal/platform/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service runs tracking mutations through the state machine and keeps the
// per-user read caches consistent with the store.
type Service struct {
	repo     Repository
	resolver *catalog.Resolver
	cache    *cache.Coordinator
	log      *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, resolver *catalog.Resolver, coord *cache.Coordinator, log *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		cache:    coord,
		log:      log.Named("tracking"),
		now:      time.Now,
	}
}

func requireUser(op, userID string) error {
	if userID == "" {
		return apperr.Unauthorized(op)
	}
	return nil
}

// --- Reads ---

// List returns the user's library, optionally filtered by status.
func (s *Service) List(ctx context.Context, userID string, status *Status) ([]Link, error) {
	if err := requireUser("tracking.list", userID); err != nil {
		return nil, err
	}
	variant := "all"
	if status != nil {
		variant = string(*status)
	}
	return cache.Fetch(ctx, s.cache, cache.KindList, userID, variant, func(ctx context.Context) ([]Link, error) {
		return s.repo.List(ctx, userID, status)
	})
}

// Get returns one library entry.
func (s *Service) Get(ctx context.Context, userID, catalogID string) (*Link, error) {
	if err := requireUser("tracking.get", userID); err != nil {
		return nil, err
	}
	return cache.Fetch(ctx, s.cache, cache.KindDetail, userID, catalogID, func(ctx context.Context) (*Link, error) {
		return s.repo.Get(ctx, userID, catalogID)
	})
}

// Links returns every link of the user straight from the store.
func (s *Service) Links(ctx context.Context, userID string) ([]Link, error) {
	if err := requireUser("tracking.links", userID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, userID, nil)
}

// --- Mutations ---

// AddToList resolves d into the catalog and adds it to the user's library.
func (s *Service) AddToList(ctx context.Context, userID string, d catalog.Descriptor, status Status) (*Link, error) {
	if err := requireUser("tracking.add_to_list", userID); err != nil {
		return nil, err
	}
	entry, err := s.resolver.Resolve(ctx, d)
	if err != nil {
		return nil, err
	}
	return s.AddCatalogEntry(ctx, userID, entry.ID, status)
}

// AddCatalogEntry adds an already resolved catalog entry to the user's library.
// Adding an entry twice resets the existing link instead of duplicating it.
func (s *Service) AddCatalogEntry(ctx context.Context, userID, catalogID string, status Status) (*Link, error) {
	const op = "tracking.add_to_list"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}
	if _, err := s.resolver.Get(ctx, catalogID); err != nil {
		return nil, err
	}

	// 1. Load the current link, if any
	cur, err := s.repo.Get(ctx, userID, catalogID)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, fmt.Errorf("load link: %w", err)
	}

	// 2. Compute the next state
	ev := AddToList{Status: status}
	next, err := Apply(cur, ev, s.now())
	if err != nil {
		s.countEvent(ev, err)
		return nil, err
	}
	if next.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate link id: %w", err)
		}
		next.ID = id.String()
	}
	next.UserID, next.CatalogID = userID, catalogID

	// 3. Upsert on (user_id, media_id)
	stored, err := s.repo.Upsert(ctx, next)
	if err != nil {
		s.countEvent(ev, err)
		return nil, fmt.Errorf("upsert link: %w", err)
	}
	s.countEvent(ev, nil)

	// 4. Invalidate
	s.invalidate(ctx, userID)
	return stored, nil
}

// Mutate applies ev to the user's link for catalogID.
// It returns the stored link, or nil after Remove.
func (s *Service) Mutate(ctx context.Context, userID, catalogID string, ev Event) (*Link, error) {
	op := "tracking." + ev.Name()
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}
	if add, ok := ev.(AddToList); ok {
		return s.AddCatalogEntry(ctx, userID, catalogID, add.Status)
	}

	// 1. Load the current link
	cur, err := s.repo.Get(ctx, userID, catalogID)
	if err != nil {
		s.countEvent(ev, err)
		return nil, err
	}

	// 2. Compute the next state; invalid events are rejected before any write
	next, err := Apply(cur, ev, s.now())
	if err != nil {
		s.countEvent(ev, err)
		return nil, err
	}

	// 3. Persist
	if next == nil {
		err = s.repo.Delete(ctx, userID, catalogID)
	} else {
		err = s.repo.Save(ctx, next)
	}
	s.countEvent(ev, err)
	if err != nil {
		return nil, err
	}

	// 4. Invalidate
	s.invalidate(ctx, userID)
	return next, nil
}

func (s *Service) SetProgress(ctx context.Context, userID, catalogID string, percent int, status *Status) (*Link, error) {
	return s.Mutate(ctx, userID, catalogID, SetProgress{Percent: percent, Status: status})
}

func (s *Service) SetEpisodes(ctx context.Context, userID, catalogID string, watched, total int, status *Status) (*Link, error) {
	return s.Mutate(ctx, userID, catalogID, SetEpisodes{Watched: watched, Total: total, Status: status})
}

func (s *Service) SetStatus(ctx context.Context, userID, catalogID string, status Status) (*Link, error) {
	return s.Mutate(ctx, userID, catalogID, SetStatus{Status: status})
}

func (s *Service) SetRating(ctx context.Context, userID, catalogID string, rating int) (*Link, error) {
	return s.Mutate(ctx, userID, catalogID, SetRating{Rating: rating})
}

func (s *Service) Remove(ctx context.Context, userID, catalogID string) error {
	_, err := s.Mutate(ctx, userID, catalogID, Remove{})
	return err
}

// invalidate drops the user's cached reads. A failure is not returned:
// the write is already committed and the coordinator keeps the user pending.
func (s *Service) invalidate(ctx context.Context, userID string) {
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		s.log.Warn("tracking cache invalidation deferred", zap.String("user", userID), zap.Error(err))
	}
}

func (s *Service) countEvent(ev Event, err error) {
	result := "ok"
	if err != nil {
		result = apperr.KindOf(err).String()
	}
	metrics.TrackingEvents.WithLabelValues(ev.Name(), result).Inc()
}
