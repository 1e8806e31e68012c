package database

import (
	"fmt"

	"realestate-app/internal/domain/listings"
	"realestate-app/internal/domain/media"
	"realestate-app/internal/domain/users"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to PostgreSQL and migrates the schema. The returned handle is
// passed explicitly to every component that needs it.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), Config())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Config is shared by the postgres connection and the sqlite test databases
// so both translate driver errors the same way.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&users.Administrator{},
		&listings.Listing{},
		&media.Photo{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
