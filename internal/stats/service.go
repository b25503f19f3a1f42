package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/mediashelf-backend/internal/cache"
	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/SlpAus/mediashelf-backend/internal/tracking"
	"golang.org/x/sync/singleflight"
)

// sharedLoadTimeout bounds a collapsed load once it no longer follows any caller.
const sharedLoadTimeout = 30 * time.Second

// LinkSource supplies the raw tracking rows of a user.
type LinkSource interface {
	Links(ctx context.Context, userID string) ([]tracking.Link, error)
}

// Service serves cached statistics.
type Service struct {
	links LinkSource
	cache *cache.Coordinator
	loc   *time.Location
	now   func() time.Time
	group singleflight.Group
}

func NewService(links LinkSource, coord *cache.Coordinator, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{links: links, cache: coord, loc: loc, now: time.Now}
}

// dayVariant keys cached results by the evaluation day so a rollover at
// midnight never serves yesterday's streak.
func (s *Service) dayVariant(now time.Time) string {
	return now.In(s.loc).Format(time.DateOnly)
}

// Stats returns the user's snapshot including the current streak.
func (s *Service) Stats(ctx context.Context, userID string) (Snapshot, error) {
	if userID == "" {
		return Snapshot{}, apperr.Unauthorized("stats.get")
	}
	now := s.now()
	day := s.dayVariant(now)
	return cache.Fetch(ctx, s.cache, cache.KindStats, userID, day, func(ctx context.Context) (Snapshot, error) {
		// Readers that started after an invalidation never join a computation from before it
		key := fmt.Sprintf("stats:%s:%s:%d", userID, day, s.cache.Epoch(userID))
		ch := s.group.DoChan(key, func() (any, error) {
			// Detached so one caller giving up does not fail the others waiting on it
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
			defer cancel()
			links, err := s.links.Links(sctx, userID)
			if err != nil {
				return Snapshot{}, err
			}
			snap := Aggregate(links)
			snap.Streak = StreakOf(links, now, s.loc)
			return snap, nil
		})
		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return Snapshot{}, res.Err
			}
			return res.Val.(Snapshot), nil
		}
	})
}

// Streak returns only the current day streak.
func (s *Service) Streak(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, apperr.Unauthorized("stats.streak")
	}
	now := s.now()
	day := s.dayVariant(now)
	return cache.Fetch(ctx, s.cache, cache.KindStreak, userID, day, func(ctx context.Context) (int, error) {
		links, err := s.links.Links(ctx, userID)
		if err != nil {
			return 0, err
		}
		return StreakOf(links, now, s.loc), nil
	})
}
