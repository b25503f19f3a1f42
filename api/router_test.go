package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SlpAus/mediashelf-backend/internal/cache"
	"github.com/SlpAus/mediashelf-backend/internal/catalog"
	"github.com/SlpAus/mediashelf-backend/internal/platform/config"
	"github.com/SlpAus/mediashelf-backend/internal/platform/database"
	"github.com/SlpAus/mediashelf-backend/internal/platform/health"
	"github.com/SlpAus/mediashelf-backend/internal/platform/startup"
	"github.com/SlpAus/mediashelf-backend/internal/review"
	"github.com/SlpAus/mediashelf-backend/internal/search"
	"github.com/SlpAus/mediashelf-backend/internal/stats"
	"github.com/SlpAus/mediashelf-backend/internal/tracking"
	"github.com/SlpAus/mediashelf-backend/internal/user"
	"github.com/SlpAus/mediashelf-backend/pkg/token"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedState health.State

func (s fixedState) State() health.State { return health.State(s) }

func newTestRouter(t *testing.T, deps func(*Deps)) http.Handler {
	t.Helper()
	log := zap.NewNop()
	cfg := &config.Config{Server: config.ServerConfig{Mode: "test", Address: ":0"}}

	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "api.db"),
	}, log)
	require.NoError(t, err)
	require.NoError(t, startup.Migrate(db, log))

	signer, err := token.NewRandomSigner()
	require.NoError(t, err)
	store := cache.NewMemoryStore()
	coord := cache.NewCoordinator(store, time.Minute, log)
	catalogRepo := catalog.NewRepository(db)
	resolver := catalog.NewResolver(catalogRepo, log)
	trackingSvc := tracking.NewService(tracking.NewRepository(db), resolver, coord, log)

	d := Deps{
		Users:    user.NewService(user.NewRepository(db), signer),
		Resolver: resolver,
		Tracking: trackingSvc,
		Stats:    stats.NewService(trackingSvc, coord, time.UTC),
		Search:   search.NewService(search.NewLocalProvider(catalogRepo), store, time.Minute, time.Minute, log),
		Reviews:  review.NewService(review.NewRepository(db), resolver, log),
		PingDB:   func() error { return database.Ping(db) },
	}
	if deps != nil {
		deps(&d)
	}
	return SetupRouter(cfg, d, log)
}

func do(t *testing.T, h http.Handler, method, path, tok, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestTrackingFlow(t *testing.T) {
	h := newTestRouter(t, nil)

	// anonymous users cannot reach the library
	w := do(t, h, http.MethodGet, "/api/library", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodPost, "/api/session", "", `{"username":"dana"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var sess struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))

	w = do(t, h, http.MethodPost, "/api/library", sess.Token,
		`{"media":{"sourceId":"tt0903747","type":"tv","title":"Breaking Bad"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var link struct {
		MediaID string `json:"mediaId"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &link))
	assert.Equal(t, "planned", link.Status)

	w = do(t, h, http.MethodPut, "/api/library/"+link.MediaID+"/episodes", sess.Token, `{"watched":62,"total":62}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"completed"`)
	assert.Contains(t, w.Body.String(), `"progress":100`)

	w = do(t, h, http.MethodGet, "/api/stats", sess.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"completed":1`)

	w = do(t, h, http.MethodGet, "/api/stats/streak", sess.Token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"streak":1}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/api/search?q=breaking", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sourceId":"tt0903747"`)

	w = do(t, h, http.MethodPut, "/api/library/"+link.MediaID+"/progress", sess.Token, `{"progress":150}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodDelete, "/api/library/"+link.MediaID, sess.Token, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, http.MethodDelete, "/api/library/"+link.MediaID, sess.Token, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(t, nil)
	w := do(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"database":"ok","redis":"disabled"}`, w.Body.String())

	h = newTestRouter(t, func(d *Deps) {
		d.PingDB = func() error { return errors.New("closed") }
		d.Cache = fixedState(health.StateDegraded)
	})
	w = do(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"database":"error","redis":"degraded"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, nil)
	do(t, h, http.MethodGet, "/healthz", "", "")
	w := do(t, h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mediashelf_http_request_duration_seconds")
}
