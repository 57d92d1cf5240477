package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/pureclean/internal/models"
)

// Migrate applies the gorm schema for every model.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
