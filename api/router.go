package api

import (
	"net/http"
	"time"

	"github.com/SlpAus/mediashelf-backend/internal/catalog"
	"github.com/SlpAus/mediashelf-backend/internal/platform/config"
	"github.com/SlpAus/mediashelf-backend/internal/platform/health"
	"github.com/SlpAus/mediashelf-backend/internal/review"
	"github.com/SlpAus/mediashelf-backend/internal/search"
	"github.com/SlpAus/mediashelf-backend/internal/stats"
	"github.com/SlpAus/mediashelf-backend/internal/tracking"
	"github.com/SlpAus/mediashelf-backend/internal/user"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// CacheState reports the cache backend's health. Nil means no external backend.
type CacheState interface {
	State() health.State
}

// Deps carries everything the router mounts.
type Deps struct {
	Users    *user.Service
	Resolver *catalog.Resolver
	Tracking *tracking.Service
	Stats    *stats.Service
	Search   *search.Service
	Reviews  *review.Service

	// PingDB checks the relational store for /healthz.
	PingDB func() error
	Cache  CacheState
}

// SetupRouter builds the engine with every route registered.
func SetupRouter(cfg *config.Config, deps Deps, log *zap.Logger) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(RequestLogger(log.Named("http")), Recovery(log))

	if len(cfg.Server.Cors.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", healthz(deps))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	SetupRoutes(r, cfg, deps)
	return r
}

// SetupRoutes registers the API routes on router.
func SetupRoutes(router *gin.Engine, cfg *config.Config, deps Deps) {
	api := router.Group("/api", user.LoadUserMiddleware(deps.Users))
	authed := api.Group("", user.RequireUser())

	// public
	search.NewHandler(deps.Search).Register(api)
	catalog.NewHandler(deps.Resolver).Register(api)

	// per user
	user.NewHandler(deps.Users, cfg.Server.Mode == gin.ReleaseMode).Register(api, authed)
	tracking.NewHandler(deps.Tracking).Register(authed)
	stats.NewHandler(deps.Stats).Register(authed)
	review.NewHandler(deps.Reviews).Register(authed)
}

func healthz(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := http.StatusOK
		dbState := "ok"
		if err := deps.PingDB(); err != nil {
			dbState = "error"
			code = http.StatusServiceUnavailable
		}
		cacheState := "disabled"
		if deps.Cache != nil {
			cacheState = deps.Cache.State().String()
		}
		c.JSON(code, gin.H{"database": dbState, "redis": cacheState})
	}
}
