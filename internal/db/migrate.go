package db

import (
	"bookshelf/internal/domain" // Importing domain models
	"fmt"                       // Error wrapping

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// Models lists every table owned by the application, parents first
func Models() []any {
	return []any{&domain.User{}, &domain.Category{}, &domain.Book{}, &domain.Review{}}
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migration failed: %w", err) // Wrap migration failure
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
