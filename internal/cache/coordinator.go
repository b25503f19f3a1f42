package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SlpAus/mediashelf-backend/internal/platform/metrics"
	"go.uber.org/zap"
)

// Kind names a family of cached per-user read results.
type Kind string

const (
	KindList   Kind = "list"
	KindDetail Kind = "detail"
	KindStats  Kind = "stats"
	KindStreak Kind = "streak"
)

// AllKinds lists every kind derived from a user's tracking links.
var AllKinds = []Kind{KindList, KindDetail, KindStats, KindStreak}

// --- Key layout ---
// track:{kind}:{userID}:{variant}  cached read result
// track:index:{userID}             set of every cached key for that user

const keyPrefix = "track"

func entryKey(kind Kind, userID, variant string) string {
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, kind, userID, variant)
}

func kindPrefix(kind Kind, userID string) string {
	return fmt.Sprintf("%s:%s:%s:", keyPrefix, kind, userID)
}

func indexKey(userID string) string {
	return fmt.Sprintf("%s:index:%s", keyPrefix, userID)
}

// Coordinator owns the per-user tracking caches and their invalidation.
// Invalidation is always scoped to one user; nothing here flushes the whole store.
type Coordinator struct {
	store   Store
	ttl     time.Duration
	log     *zap.Logger
	healthy func() bool

	mu      sync.Mutex
	epochs  map[string]uint64
	pending map[string]struct{}
}

// NewCoordinator creates a coordinator whose entries expire after ttl.
func NewCoordinator(store Store, ttl time.Duration, log *zap.Logger) *Coordinator {
	return &Coordinator{
		store:   store,
		ttl:     ttl,
		log:     log.Named("cache"),
		healthy: func() bool { return true },
		epochs:  make(map[string]uint64),
		pending: make(map[string]struct{}),
	}
}

// UseHealth makes reads and writes bypass the store while fn reports false.
func (c *Coordinator) UseHealth(fn func() bool) {
	c.healthy = fn
}

// TTL is the staleness bound for entries that escaped invalidation.
func (c *Coordinator) TTL() time.Duration {
	return c.ttl
}

// Epoch changes every time userID's entries are invalidated. Work keyed by it
// never mixes results from before and after an invalidation.
func (c *Coordinator) Epoch(userID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epochs[userID]
}

func (c *Coordinator) isPending(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[userID]
	return ok
}

// bump marks every read started before now as outdated for userID.
func (c *Coordinator) bump(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epochs[userID]++
}

func (c *Coordinator) markPending(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[userID] = struct{}{}
	metrics.PendingInvalidations.Set(float64(len(c.pending)))
}

func (c *Coordinator) clearPending(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, userID)
	metrics.PendingInvalidations.Set(float64(len(c.pending)))
}

// Pending returns users whose invalidation has not reached the store yet.
func (c *Coordinator) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.pending))
	for id := range c.pending {
		out = append(out, id)
	}
	return out
}

// Fetch returns the cached value for (kind, userID, variant) or computes it with load
// and caches the result. A result computed while an invalidation for the same user
// happened is returned but not cached.
func Fetch[T any](ctx context.Context, c *Coordinator, kind Kind, userID, variant string, load func(context.Context) (T, error)) (T, error) {
	key := entryKey(kind, userID, variant)

	// 1. Try the cache, unless it is unusable for this user right now
	usable := c.healthy() && !c.isPending(userID)
	if usable {
		var cached T
		hit, err := GetJSON(ctx, c.store, key, &cached)
		switch {
		case err != nil:
			metrics.CacheLookups.WithLabelValues(string(kind), "error").Inc()
			c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		case hit:
			metrics.CacheLookups.WithLabelValues(string(kind), "hit").Inc()
			return cached, nil
		default:
			metrics.CacheLookups.WithLabelValues(string(kind), "miss").Inc()
		}
	} else {
		metrics.CacheLookups.WithLabelValues(string(kind), "bypass").Inc()
	}

	// 2. Compute from the source of truth
	startEpoch := c.Epoch(userID)
	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if !usable {
		return value, nil
	}

	// 3. Store only if no invalidation raced the computation
	if c.Epoch(userID) != startEpoch {
		return value, nil
	}
	if err := SetJSON(ctx, c.store, key, value, c.ttl); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return value, nil
	}
	if err := c.store.AddToIndex(ctx, indexKey(userID), key, c.ttl); err != nil {
		c.log.Warn("cache index write failed", zap.String("key", key), zap.Error(err))
	}

	// 4. An invalidation that ran between the check and the write could not see the key
	if c.Epoch(userID) != startEpoch {
		if err := c.store.Delete(ctx, key); err != nil {
			c.log.Warn("dropping raced cache entry failed", zap.String("key", key), zap.Error(err))
			c.markPending(userID)
		}
	}
	return value, nil
}

// Invalidate drops the cached entries of one kind for one user.
func (c *Coordinator) Invalidate(ctx context.Context, kind Kind, userID string) error {
	c.bump(userID)
	members, err := c.store.Members(ctx, indexKey(userID))
	if err != nil {
		return c.failInvalidation(kind, userID, err)
	}
	prefix := kindPrefix(kind, userID)
	var keys []string
	for _, k := range members {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		return c.failInvalidation(kind, userID, err)
	}
	metrics.CacheInvalidations.WithLabelValues(string(kind), "ok").Inc()
	return nil
}

// InvalidateUser drops every tracking-derived entry for one user.
// On failure the user is remembered and reads for that user skip the cache
// until Flush succeeds.
func (c *Coordinator) InvalidateUser(ctx context.Context, userID string) error {
	c.bump(userID)
	if err := c.dropUser(ctx, userID); err != nil {
		return c.failInvalidation("all", userID, err)
	}
	c.clearPending(userID)
	metrics.CacheInvalidations.WithLabelValues("all", "ok").Inc()
	return nil
}

func (c *Coordinator) dropUser(ctx context.Context, userID string) error {
	index := indexKey(userID)
	members, err := c.store.Members(ctx, index)
	if err != nil {
		return err
	}
	return c.store.Delete(ctx, append(members, index)...)
}

func (c *Coordinator) failInvalidation(kind Kind, userID string, err error) error {
	c.markPending(userID)
	metrics.CacheInvalidations.WithLabelValues(string(kind), "deferred").Inc()
	c.log.Warn("cache invalidation deferred",
		zap.String("kind", string(kind)), zap.String("user", userID), zap.Error(err))
	return fmt.Errorf("invalidate %s for %s: %w", kind, userID, err)
}

// Flush retries every deferred invalidation. Users that still fail stay pending.
func (c *Coordinator) Flush(ctx context.Context) error {
	var errs []error
	for _, userID := range c.Pending() {
		if err := c.dropUser(ctx, userID); err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", userID, err))
			continue
		}
		c.clearPending(userID)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Forget clears deferred invalidations without touching the store.
// Used when the backend lost its data, so nothing stale can be served.
func (c *Coordinator) Forget() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = make(map[string]struct{})
	metrics.PendingInvalidations.Set(0)
}
