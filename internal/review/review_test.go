package review

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SlpAus/mediashelf-backend/internal/catalog"
	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/SlpAus/mediashelf-backend/internal/platform/config"
	"github.com/SlpAus/mediashelf-backend/internal/platform/database"
	"github.com/SlpAus/mediashelf-backend/internal/user"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *catalog.Entry) {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "reviews.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, catalog.Migrate(db))
	require.NoError(t, Migrate(db))

	resolver := catalog.NewResolver(catalog.NewRepository(db), zap.NewNop())
	entry, err := resolver.Resolve(context.Background(), catalog.Descriptor{
		SourceID: "tt0113277", Type: catalog.Movie, Title: "Heat",
	})
	require.NoError(t, err)
	return NewService(NewRepository(db), resolver, zap.NewNop()), entry
}

func TestWriteUpsertsOneReviewPerUser(t *testing.T) {
	svc, entry := newTestService(t)
	ctx := context.Background()

	first, err := svc.Write(ctx, "u1", entry.ID, 7, "  tense  ")
	require.NoError(t, err)
	assert.Equal(t, "tense", first.Content)

	second, err := svc.Write(ctx, "u1", entry.ID, 9, "better on rewatch")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 9, second.Rating)
	assert.Equal(t, "better on rewatch", second.Content)

	other, err := svc.Write(ctx, "u2", entry.ID, 5, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestWriteValidation(t *testing.T) {
	svc, entry := newTestService(t)
	ctx := context.Background()

	for _, rating := range []int{0, 11, -1} {
		_, err := svc.Write(ctx, "u1", entry.ID, rating, "")
		assert.True(t, apperr.Is(err, apperr.KindValidation), "rating %d", rating)
	}

	_, err := svc.Write(ctx, "u1", entry.ID, 5, strings.Repeat("x", MaxContentLength+1))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Write(ctx, "u1", "missing", 5, "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.Write(ctx, "", entry.ID, 5, "")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = svc.Get(ctx, "u1", entry.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "rejected writes store nothing")
}

func TestRewriteClearsFlag(t *testing.T) {
	svc, entry := newTestService(t)
	ctx := context.Background()

	_, err := svc.Write(ctx, "u1", entry.ID, 3, "spoilers")
	require.NoError(t, err)
	require.NoError(t, svc.Flag(ctx, "u1", entry.ID))

	rv, err := svc.Get(ctx, "u1", entry.ID)
	require.NoError(t, err)
	assert.True(t, rv.IsFlagged)

	rv, err = svc.Write(ctx, "u1", entry.ID, 3, "no spoilers")
	require.NoError(t, err)
	assert.False(t, rv.IsFlagged)

	assert.True(t, apperr.Is(svc.Flag(ctx, "nobody", entry.ID), apperr.KindNotFound))
}

func asUser(id string, role user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(user.UserIDKey, id)
		c.Set(user.RoleKey, role)
		c.Next()
	}
}

func TestHandlerFlagRequiresAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, entry := newTestService(t)

	router := gin.New()
	NewHandler(svc).Register(router.Group("/user", asUser("u1", user.RoleUser)))
	NewHandler(svc).Register(router.Group("/admin", asUser("root", user.RoleAdmin)))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/user/media/"+entry.ID+"/review",
		strings.NewReader(`{"rating":8,"content":"great"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rating":8`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/user/media/"+entry.ID+"/reviews/u1/flag", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/media/"+entry.ID+"/reviews/u1/flag", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/user/media/"+entry.ID+"/review", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isFlagged":true`)
}
