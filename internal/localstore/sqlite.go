package localstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// entry is one row of the key/value table.
type entry struct {
	Key       string    `gorm:"column:storage_key;primaryKey;type:varchar(128)"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (entry) TableName() string { return "local_storage" }

// SQLiteStore keeps values in a single SQLite table.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, zlog zerolog.Logger) (*SQLiteStore, error) {
	const busyTimeout = 5000

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// One writer keeps read-modify-write sequences from this process ordered.
	sqlDB.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate storage database: %w", err)
	}

	zlog.Debug().Str("path", path).Msg("Opened SQLite storage")
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var e entry
	err := s.db.Where("storage_key = ?", key).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return e.Value, true, nil
}

func (s *SQLiteStore) Set(key, value string) error {
	e := entry{Key: key, Value: value}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(key string) error {
	if err := s.db.Where("storage_key = ?", key).Delete(&entry{}).Error; err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
