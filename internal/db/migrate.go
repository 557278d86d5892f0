package db

import (
	"fmt"

	"github.com/router-for-me/RoutingEngine/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for all engine tables.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	targets := []any{
		&models.ModelProfile{},
		&models.BudgetConfig{},
		&models.SteeringRule{},
		&models.SelectionRecord{},
		&models.Usage{},
	}
	if errMigrate := conn.AutoMigrate(targets...); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
