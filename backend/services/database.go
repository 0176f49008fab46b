package services

import (
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cwatch-dashboard/backend/errors"
	"cwatch-dashboard/backend/models"
	"cwatch-dashboard/backend/system"
)

// OpenDatabase opens the local SQLite store and migrates the schema.
func OpenDatabase(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, errors.KindInternal, "create database directory %s", dir)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "open database")
	}

	// WAL keeps history writes from locking out readers.
	if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
		system.Warn("Failed to enable WAL mode: %v", err)
	}

	if err := db.AutoMigrate(
		&models.DashboardSettings{},
		&models.RefreshRecord{},
	); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "migrate database")
	}
	system.Info("Database ready: %s", path)
	return db, nil
}
