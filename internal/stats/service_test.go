package stats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SlpAus/mediashelf-backend/internal/cache"
	"github.com/SlpAus/mediashelf-backend/internal/catalog"
	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/SlpAus/mediashelf-backend/internal/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLinks struct {
	mu    sync.Mutex
	links map[string][]tracking.Link
	calls int
	err   error

	// when hold is set the first call signals entered after reading its rows,
	// then waits for hold to close
	hold    chan struct{}
	entered chan struct{}
}

func (f *fakeLinks) Links(ctx context.Context, userID string) ([]tracking.Link, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	rows := append([]tracking.Link(nil), f.links[userID]...)
	err := f.err
	f.mu.Unlock()

	if first && f.hold != nil {
		close(f.entered)
		<-f.hold
	}
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}
	return rows, err
}

func (f *fakeLinks) add(userID string, l tracking.Link) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[userID] = append(f.links[userID], l)
}

func (f *fakeLinks) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func heldLinks(links map[string][]tracking.Link) *fakeLinks {
	return &fakeLinks{links: links, hold: make(chan struct{}), entered: make(chan struct{})}
}

func waitEntered(t *testing.T, f *fakeLinks) {
	t.Helper()
	select {
	case <-f.entered:
	case <-time.After(time.Second):
		t.Fatal("link source was never called")
	}
}

func TestStatsServiceCachesPerDayAndInvalidates(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	src := &fakeLinks{links: map[string][]tracking.Link{
		"u1": {{Status: tracking.Completed, Rating: 8, UpdatedAt: now, Media: &catalog.Entry{Type: catalog.Movie}}},
	}}
	coord := cache.NewCoordinator(cache.NewMemoryStore(), time.Hour, zap.NewNop())
	svc := NewService(src, coord, time.UTC)
	svc.now = func() time.Time { return now }

	snap, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Total)
	assert.Equal(t, 1, snap.Completed)
	assert.Equal(t, 1, snap.ByType[catalog.Movie])
	assert.Equal(t, 1, snap.Streak)

	_, err = svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	// a mutation elsewhere invalidates the user's derived reads
	src.links["u1"] = append(src.links["u1"], tracking.Link{Status: tracking.Planned, UpdatedAt: now})
	require.NoError(t, coord.InvalidateUser(ctx, "u1"))
	snap, err = svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, 2, src.calls)

	// two days later the day-keyed entry is not reused
	now = now.Add(48 * time.Hour)
	streak, err := svc.Streak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, streak)
}

func TestStatsServiceErrors(t *testing.T) {
	coord := cache.NewCoordinator(cache.NewMemoryStore(), time.Hour, zap.NewNop())
	svc := NewService(&fakeLinks{err: errors.New("db down")}, coord, time.UTC)

	_, err := svc.Stats(context.Background(), "")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = svc.Stats(context.Background(), "u1")
	assert.Error(t, err)
}

func TestStatsForNewUser(t *testing.T) {
	coord := cache.NewCoordinator(cache.NewMemoryStore(), time.Hour, zap.NewNop())
	svc := NewService(&fakeLinks{}, coord, time.UTC)

	snap, err := svc.Stats(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Total)
	assert.Equal(t, 0.0, snap.AverageRating)
	assert.Equal(t, 0, snap.Streak)
}

func TestStatsReadAfterInvalidationSeesTheMutation(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	done := func() tracking.Link {
		return tracking.Link{Status: tracking.Completed, UpdatedAt: now, Media: &catalog.Entry{Type: catalog.Book}}
	}
	src := heldLinks(map[string][]tracking.Link{"u1": {done()}})
	coord := cache.NewCoordinator(cache.NewMemoryStore(), time.Hour, zap.NewNop())
	svc := NewService(src, coord, time.UTC)
	svc.now = func() time.Time { return now }

	// a read starts and takes its rows before the mutation
	early := make(chan Snapshot, 1)
	go func() {
		snap, err := svc.Stats(ctx, "u1")
		assert.NoError(t, err)
		early <- snap
	}()
	waitEntered(t, src)

	src.add("u1", done())
	require.NoError(t, coord.InvalidateUser(ctx, "u1"))

	late := make(chan Snapshot, 1)
	go func() {
		snap, err := svc.Stats(ctx, "u1")
		assert.NoError(t, err)
		late <- snap
	}()
	select {
	case snap := <-late:
		assert.Equal(t, 2, snap.Total)
	case <-time.After(time.Second):
		t.Error("read after invalidation waited on the earlier computation")
	}

	close(src.hold)
	assert.Equal(t, 1, (<-early).Total)

	snap, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Total, "the earlier result must not be cached")
	assert.Equal(t, 2, src.callCount())
}

func TestStatsCallerCancelDoesNotFailOthers(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	src := heldLinks(map[string][]tracking.Link{
		"u1": {{Status: tracking.InProgress, UpdatedAt: now, Media: &catalog.Entry{Type: catalog.TV}}},
	})
	coord := cache.NewCoordinator(cache.NewMemoryStore(), time.Hour, zap.NewNop())
	svc := NewService(src, coord, time.UTC)
	svc.now = func() time.Time { return now }

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.Stats(leaderCtx, "u1")
		leaderErr <- err
	}()
	waitEntered(t, src)

	type outcome struct {
		snap Snapshot
		err  error
	}
	follower := make(chan outcome, 1)
	go func() {
		snap, err := svc.Stats(context.Background(), "u1")
		follower <- outcome{snap, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-leaderErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared load")
	}

	close(src.hold)
	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, 1, got.snap.Total)
}
