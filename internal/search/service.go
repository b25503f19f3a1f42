package search

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SlpAus/mediashelf-backend/internal/cache"
	"github.com/SlpAus/mediashelf-backend/internal/catalog"
	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/SlpAus/mediashelf-backend/internal/platform/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// minQueryLength is the shortest query sent to a provider; shorter ones return nothing.
const minQueryLength = 3

// sharedFetchTimeout bounds a collapsed upstream call once it no longer follows any caller.
const sharedFetchTimeout = 30 * time.Second

// Service fronts a Provider with time-based caching and request collapsing.
// Unlike tracking reads, these results are shared across users and simply expire.
type Service struct {
	provider    Provider
	store       cache.Store
	searchTTL   time.Duration
	trendingTTL time.Duration
	group       singleflight.Group
	log         *zap.Logger
}

func NewService(provider Provider, store cache.Store, searchTTL, trendingTTL time.Duration, log *zap.Logger) *Service {
	return &Service{
		provider:    provider,
		store:       store,
		searchTTL:   searchTTL,
		trendingTTL: trendingTTL,
		log:         log.Named("search"),
	}
}

// ParseTypeFilter maps "all" or "" to the empty filter and validates anything else.
func ParseTypeFilter(raw string) (catalog.MediaType, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "all" {
		return "", nil
	}
	t, err := catalog.ParseMediaType(raw)
	if err != nil {
		return "", apperr.Validation("search", "%s", err.Error())
	}
	return t, nil
}

func searchKey(query string, t catalog.MediaType) string {
	filter := string(t)
	if filter == "" {
		filter = "all"
	}
	return fmt.Sprintf("search:%s:%s", filter, strings.ToLower(query))
}

func trendingKey(t catalog.MediaType) string {
	return "trending:" + string(t)
}

// Search returns at most MaxResults descriptors for query.
// Queries of fewer than three characters yield an empty list.
func (s *Service) Search(ctx context.Context, query string, t catalog.MediaType) ([]catalog.Descriptor, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryLength {
		return []catalog.Descriptor{}, nil
	}
	key := searchKey(query, t)
	return s.cached(ctx, "search", key, s.searchTTL, func(ctx context.Context) ([]catalog.Descriptor, error) {
		return s.provider.Search(ctx, query, t)
	})
}

// Trending returns the current trending list for t.
func (s *Service) Trending(ctx context.Context, t catalog.MediaType) ([]catalog.Descriptor, error) {
	if !t.Valid() {
		return nil, apperr.Validation("trending", "unknown media type %q", t)
	}
	return s.cached(ctx, "trending", trendingKey(t), s.trendingTTL, func(ctx context.Context) ([]catalog.Descriptor, error) {
		return s.provider.Trending(ctx, t)
	})
}

// RefreshTrending re-fetches every type and overwrites the cached lists.
func (s *Service) RefreshTrending(ctx context.Context) error {
	var failed []string
	for _, t := range catalog.MediaTypes {
		results, err := s.provider.Trending(ctx, t)
		if err != nil {
			failed = append(failed, string(t))
			s.log.Warn("trending refresh failed", zap.String("type", string(t)), zap.Error(err))
			continue
		}
		if err := cache.SetJSON(ctx, s.store, trendingKey(t), capResults(results), s.trendingTTL); err != nil {
			failed = append(failed, string(t))
			s.log.Warn("trending cache write failed", zap.String("type", string(t)), zap.Error(err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("trending refresh failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func (s *Service) cached(ctx context.Context, kind, key string, ttl time.Duration, fetch func(context.Context) ([]catalog.Descriptor, error)) ([]catalog.Descriptor, error) {
	// 1. Cache
	var hit []catalog.Descriptor
	found, err := cache.GetJSON(ctx, s.store, key, &hit)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(kind, "error").Inc()
		s.log.Warn("search cache read failed", zap.String("key", key), zap.Error(err))
	case found:
		metrics.CacheLookups.WithLabelValues(kind, "hit").Inc()
		return hit, nil
	default:
		metrics.CacheLookups.WithLabelValues(kind, "miss").Inc()
	}

	// 2. One upstream call per key, however many callers are waiting
	ch := s.group.DoChan(key, func() (any, error) {
		// Detached so one caller giving up does not fail the others waiting on it
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		results, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		results = capResults(results)
		if err := cache.SetJSON(fctx, s.store, key, results, ttl); err != nil {
			s.log.Warn("search cache write failed", zap.String("key", key), zap.Error(err))
		}
		return results, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, apperr.Upstream(kind, res.Err)
		}
		return res.Val.([]catalog.Descriptor), nil
	}
}

func capResults(results []catalog.Descriptor) []catalog.Descriptor {
	if results == nil {
		return []catalog.Descriptor{}
	}
	if len(results) > MaxResults {
		return results[:MaxResults]
	}
	return results
}
