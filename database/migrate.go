package database

import (
	"smartdalali_backend/internal/models"

	"gorm.io/gorm"
)

// Migrate runs the schema migration for all models. Extensions first: the
// BaseModel id default needs uuid-ossp.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return err
	}

	return db.AutoMigrate(
		&models.User{},
		&models.AgentProfile{},
		&models.Property{},
		&models.Payment{},
	)
}
