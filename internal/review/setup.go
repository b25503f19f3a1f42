package review

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates or updates the reviews table. The media table must exist first.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Review{}); err != nil {
		return fmt.Errorf("migrate reviews table: %w", err)
	}
	return nil
}
