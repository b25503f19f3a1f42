package search

import (
	"context"
	"time"

	"github.com/SlpAus/mediashelf-backend/pkg/lifecycle"
	"go.uber.org/zap"
)

const refreshTimeout = 30 * time.Second

// StartTrendingRefresher keeps the trending caches warm. It stops between
// refreshes once graceful is cancelled; forceful aborts a refresh in progress.
// It should run in its own goroutine.
func StartTrendingRefresher(graceful, forceful *lifecycle.Handle, svc *Service, interval time.Duration, log *zap.Logger) {
	defer graceful.Close()
	defer forceful.Close()
	log = log.Named("trending-refresher")
	log.Info("trending refresher started", zap.Duration("interval", interval))

	for {
		ctx, cancel := context.WithTimeout(forceful.Ctx(), refreshTimeout)
		if err := svc.RefreshTrending(ctx); err != nil {
			log.Warn("trending refresh incomplete", zap.Error(err))
		}
		cancel()

		if err := graceful.Sleep(interval); err != nil {
			log.Info("trending refresher stopped")
			return
		}
	}
}
