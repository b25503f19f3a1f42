package tracking

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates or updates the user_media table. The media table must exist first.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Link{}); err != nil {
		return fmt.Errorf("migrate user_media table: %w", err)
	}
	return nil
}
