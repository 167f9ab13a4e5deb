package db

import (
	"fmt"  // Error wrapping
	"time" // Connection pool lifetimes

	"gorm.io/driver/mysql" // MySQL driver for GORM
	"gorm.io/gorm"         // GORM ORM library
	"gorm.io/gorm/logger"  // GORM logger levels
)

// Open connects to MySQL through GORM and configures the connection pool
func Open(dsn string, verbose bool) (*gorm.DB, error) {
	level := logger.Warn // Only slow queries and errors by default
	if verbose {
		level = logger.Info // Log every statement in development
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(level), // Statement logging level
		TranslateError: true,                          // Map unique violations to gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	sqlDB, err := db.DB() // Underlying database/sql pool
	if err != nil {
		return nil, fmt.Errorf("failed to access DB pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)                 // Cap concurrent connections
	sqlDB.SetMaxIdleConns(25)                 // Keep connections warm
	sqlDB.SetConnMaxLifetime(5 * time.Minute) // Recycle connections periodically
	return db, nil
}
