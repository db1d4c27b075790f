package database

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"focusmon/internal/models"
)

// The daemon writes while CLI commands read; WAL keeps readers off the
// writer's lock and busy_timeout absorbs the short overlaps that remain
const pragmas = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// DB is the transition journal
type DB struct {
	*gorm.DB
	path string
}

// DefaultPath is ~/.config/focusmon/focusmon.db
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(homeDir, ".config", "focusmon", "focusmon.db"), nil
}

// Connect opens the SQLite journal at dbPath, or DefaultPath when empty,
// creating the parent directory as needed
func Connect(dbPath string) (*DB, error) {
	if dbPath == "" {
		var err error
		if dbPath, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	db, err := gorm.Open(sqlite.Open(dbPath+pragmas), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", dbPath)
	}

	return &DB{DB: db, path: dbPath}, nil
}

// Path is the file the journal lives in
func (db *DB) Path() string {
	return db.path
}

// Initialize migrates the schema
func (db *DB) Initialize() error {
	if err := db.AutoMigrate(&models.FocusTransition{}, &models.ErrorLog{}); err != nil {
		return errors.Wrap(err, "failed to migrate database schema")
	}
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return sqlDB.Close()
}
