package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SlpAus/mediashelf-backend/internal/cache"
	"github.com/SlpAus/mediashelf-backend/internal/catalog"
	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProvider struct {
	mu       sync.Mutex
	calls    int
	results  []catalog.Descriptor
	err      error
	gate     chan struct{}
	trending map[catalog.MediaType][]catalog.Descriptor
}

func (p *stubProvider) Search(ctx context.Context, query string, t catalog.MediaType) ([]catalog.Descriptor, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.gate != nil {
		<-p.gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.results, p.err
}

func (p *stubProvider) Trending(ctx context.Context, t catalog.MediaType) ([]catalog.Descriptor, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.trending[t], nil
}

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func many(n int) []catalog.Descriptor {
	out := make([]catalog.Descriptor, n)
	for i := range out {
		out[i] = catalog.Descriptor{SourceID: fmt.Sprint(i), Type: catalog.Movie, Title: fmt.Sprintf("Movie %d", i)}
	}
	return out
}

func newTestService(p Provider) *Service {
	return NewService(p, cache.NewMemoryStore(), time.Minute, time.Hour, zap.NewNop())
}

func TestSearchShortQueryReturnsEmpty(t *testing.T) {
	p := &stubProvider{results: many(3)}
	svc := newTestService(p)

	for _, q := range []string{"", "ab", "  ab  ", "日本"} {
		got, err := svc.Search(context.Background(), q, "")
		require.NoError(t, err)
		assert.Empty(t, got)
	}
	assert.Equal(t, 0, p.callCount())
}

func TestSearchCapsAndCaches(t *testing.T) {
	p := &stubProvider{results: many(35)}
	svc := newTestService(p)
	ctx := context.Background()

	got, err := svc.Search(ctx, "movie", "")
	require.NoError(t, err)
	assert.Len(t, got, MaxResults)

	again, err := svc.Search(ctx, "MOVIE", "")
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, 1, p.callCount(), "case-insensitive cache key")

	_, err = svc.Search(ctx, "movie", catalog.Movie)
	require.NoError(t, err)
	assert.Equal(t, 2, p.callCount(), "type filter is part of the key")
}

func TestSearchCollapsesConcurrentIdenticalQueries(t *testing.T) {
	p := &stubProvider{results: many(2), gate: make(chan struct{})}
	svc := newTestService(p)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res, err := svc.Search(context.Background(), "dune", ""); err == nil && len(res) == 2 {
				ok.Add(1)
			}
		}()
	}
	// let every caller reach the provider or the flight before releasing it
	require.Eventually(t, func() bool { return p.callCount() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(p.gate)
	wg.Wait()

	assert.EqualValues(t, 10, ok.Load())
	assert.Less(t, p.callCount(), 10)
}

func TestSearchCallerCancelDoesNotFailOthers(t *testing.T) {
	p := &stubProvider{results: many(2), gate: make(chan struct{})}
	svc := newTestService(p)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.Search(leaderCtx, "dune", "")
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return p.callCount() == 1 }, time.Second, time.Millisecond)

	type outcome struct {
		res []catalog.Descriptor
		err error
	}
	follower := make(chan outcome, 1)
	go func() {
		res, err := svc.Search(context.Background(), "dune", "")
		follower <- outcome{res, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-leaderErr:
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, apperr.Is(err, apperr.KindUpstream), "own cancellation is not an upstream failure")
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared call")
	}

	close(p.gate)
	got := <-follower
	require.NoError(t, got.err)
	assert.Len(t, got.res, 2)

	calls := p.callCount()
	_, err := svc.Search(context.Background(), "dune", "")
	require.NoError(t, err)
	assert.Equal(t, calls, p.callCount(), "the shared call still filled the cache")
}

func TestSearchProviderFailureIsUpstream(t *testing.T) {
	svc := newTestService(&stubProvider{err: errors.New("connection refused")})
	_, err := svc.Search(context.Background(), "dune", "")
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
}

func TestParseTypeFilter(t *testing.T) {
	for _, in := range []string{"", "all", "ALL"} {
		got, err := ParseTypeFilter(in)
		require.NoError(t, err)
		assert.Equal(t, catalog.MediaType(""), got)
	}
	got, err := ParseTypeFilter("book")
	require.NoError(t, err)
	assert.Equal(t, catalog.Book, got)

	_, err = ParseTypeFilter("podcast")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestTrendingAndRefresh(t *testing.T) {
	p := &stubProvider{trending: map[catalog.MediaType][]catalog.Descriptor{catalog.Movie: many(3)}}
	svc := newTestService(p)
	ctx := context.Background()

	require.NoError(t, svc.RefreshTrending(ctx))
	assert.Equal(t, 4, p.callCount())

	got, err := svc.Trending(ctx, catalog.Movie)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 4, p.callCount(), "served from the warmed cache")

	games, err := svc.Trending(ctx, catalog.Game)
	require.NoError(t, err)
	assert.Empty(t, games)

	_, err = svc.Trending(ctx, "podcast")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	p.err = errors.New("down")
	assert.Error(t, svc.RefreshTrending(ctx))
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(newTestService(&stubProvider{results: many(1)})).Register(router.Group("/api"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search?q=movie&type=all", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sourceId":"0"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search?q=movie&type=vinyl", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/trending/podcast", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
