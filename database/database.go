// Package database provides database connection management for the wattscope
// energy-monitoring service.
//
// This package includes:
//   - GORM connection management for PostgreSQL
//   - A pooled database/sql connection used by the bulk CSV loader
//   - Schema initialization via AutoMigrate
//
// Data Models:
//
//	All data models (MeterReading, AlertEvent, SiteEvent, ...) are defined in
//	the models_pkg package to avoid circular import dependencies.
package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	models "wattscope/database/models_pkg"
)

// Database holds the GORM database connection and provides access to the
// underlying DB instance. It is the central connection point for all
// repository operations.
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM database instance for direct access when needed.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect establishes database connection using GORM
func Connect(host string, port int, dbname, user, password string) (*Database, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		host, port, dbname, user, password)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Silent logging for production
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{db: db}, nil
}

// InitSchema creates missing tables and indexes
func (d *Database) InitSchema() error {
	err := d.db.AutoMigrate(
		&models.MeterReading{},
		&models.Site{},
		&models.AlertEvent{},
		&models.SiteEvent{},
	)
	if err != nil {
		return fmt.Errorf("InitSchema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Core data models - type aliases so callers can keep importing the database
// package directly.
type MeterReading = models.MeterReading
type Site = models.Site
type AlertEvent = models.AlertEvent
type SiteEvent = models.SiteEvent
