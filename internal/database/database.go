package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/opspulse/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open opens (creating if necessary) the sqlite database at dbPath and runs
// migrations. Callers own the returned handle and pass it to the components
// that need it; there is no package-level singleton.
func Open(dbPath string) (*gorm.DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Notification{},
		&models.NotificationPreferences{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %v", err)
	}

	log.Printf("Database initialized at %s", dbPath)
	return db, nil
}

// Close closes the underlying sql connection.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %v", err)
	}

	return sqlDB.Close()
}
