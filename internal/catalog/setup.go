package catalog

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates or updates the media table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return fmt.Errorf("migrate media table: %w", err)
	}
	return nil
}
