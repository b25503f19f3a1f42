package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/SlpAus/mediashelf-backend/api"
	"github.com/SlpAus/mediashelf-backend/internal/cache"
	"github.com/SlpAus/mediashelf-backend/internal/catalog"
	"github.com/SlpAus/mediashelf-backend/internal/platform/config"
	"github.com/SlpAus/mediashelf-backend/internal/platform/database"
	"github.com/SlpAus/mediashelf-backend/internal/platform/health"
	"github.com/SlpAus/mediashelf-backend/internal/platform/logging"
	"github.com/SlpAus/mediashelf-backend/internal/platform/shutdown"
	"github.com/SlpAus/mediashelf-backend/internal/platform/startup"
	"github.com/SlpAus/mediashelf-backend/internal/review"
	"github.com/SlpAus/mediashelf-backend/internal/search"
	"github.com/SlpAus/mediashelf-backend/internal/stats"
	"github.com/SlpAus/mediashelf-backend/internal/tracking"
	"github.com/SlpAus/mediashelf-backend/internal/user"
	"github.com/SlpAus/mediashelf-backend/pkg/lifecycle"
	"github.com/SlpAus/mediashelf-backend/pkg/token"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		os.Stderr.WriteString("init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()
	graceful := lifecycle.NewManager("graceful", log)
	forceful := lifecycle.NewManager("forceful", log)
	stopper := shutdown.NewCoordinator(graceful, forceful, log)

	// 1. Relational store
	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	stopper.OnFinish("database", sqlDB.Close)
	if err := startup.Migrate(db, log); err != nil {
		return err
	}

	// 2. Cache backend
	var (
		store   cache.Store
		rdb     *redis.Client
		checker *health.Checker
	)
	switch cfg.Cache.Backend {
	case "memory":
		store = cache.NewMemoryStore()
		log.Info("using in-process cache")
	default:
		rdb, err = database.NewRedis(ctx, cfg.Database.Redis)
		if err != nil {
			return err
		}
		stopper.OnFinish("redis", rdb.Close)
		store = cache.NewRedisStore(rdb)
	}
	coord := cache.NewCoordinator(store, cfg.Cache.TrackingTTL, log)
	if rdb != nil {
		checker = health.NewChecker(func(ctx context.Context) (string, error) {
			return database.RunID(ctx, rdb)
		}, coord, log)
		if err := checker.Init(ctx); err != nil {
			return err
		}
		coord.UseHealth(checker.IsHealthy)
	}

	// 3. Sessions
	signer, err := newSigner(cfg.Server.SessionSecret, log)
	if err != nil {
		return err
	}

	// 4. Services
	loc, err := cfg.Stats.Location()
	if err != nil {
		return err
	}
	catalogRepo := catalog.NewRepository(db)
	resolver := catalog.NewResolver(catalogRepo, log)
	trackingSvc := tracking.NewService(tracking.NewRepository(db), resolver, coord, log)
	searchSvc := search.NewService(newProvider(cfg.Search, catalogRepo, log), store, cfg.Cache.SearchTTL, cfg.Cache.TrendingTTL, log)

	deps := api.Deps{
		Users:    user.NewService(user.NewRepository(db), signer),
		Resolver: resolver,
		Tracking: trackingSvc,
		Stats:    stats.NewService(trackingSvc, coord, loc),
		Search:   searchSvc,
		Reviews:  review.NewService(review.NewRepository(db), resolver, log),
		PingDB:   func() error { return database.Ping(db) },
	}
	if checker != nil {
		deps.Cache = checker
	}

	// 5. Background services
	if checker != nil {
		h, err := graceful.NewServiceHandle("cache-health")
		if err != nil {
			return err
		}
		go checker.Run(h, health.CheckInterval)
	}
	gh, err := graceful.NewServiceHandle("trending-refresher")
	if err != nil {
		return err
	}
	fh, err := forceful.NewServiceHandle("trending-refresher")
	if err != nil {
		return err
	}
	go search.StartTrendingRefresher(gh, fh, searchSvc, cfg.Search.TrendingRefresh, log)

	// 6. HTTP
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: api.SetupRouter(cfg, deps, log),
	}
	go func() {
		log.Info("listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stopper.ListenForSignalsAndShutdown(server)
	return nil
}

func newSigner(secret string, log *zap.Logger) (*token.Signer, error) {
	if secret == "" {
		log.Warn("no session secret configured, sessions will not survive a restart")
		return token.NewRandomSigner()
	}
	return token.NewSigner([]byte(secret))
}

func newProvider(cfg config.SearchConfig, local search.CatalogSource, log *zap.Logger) search.Provider {
	if cfg.Provider == "http" {
		log.Info("using remote search provider", zap.String("base_url", cfg.BaseURL))
		return search.NewHTTPProvider(cfg, log)
	}
	return search.NewLocalProvider(local)
}
