package startup

import (
	"github.com/SlpAus/mediashelf-backend/internal/catalog"
	"github.com/SlpAus/mediashelf-backend/internal/review"
	"github.com/SlpAus/mediashelf-backend/internal/tracking"
	"github.com/SlpAus/mediashelf-backend/internal/user"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate creates or updates every table. Tables referenced by foreign keys come first.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("migrating schema")
	steps := []func(*gorm.DB) error{
		user.Migrate,
		catalog.Migrate,
		tracking.Migrate,
		review.Migrate,
	}
	for _, step := range steps {
		if err := step(db); err != nil {
			return err
		}
	}
	log.Info("schema ready")
	return nil
}
