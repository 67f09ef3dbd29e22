// Package gormstore implements folio.Repository on gorm, used with the pure
// Go SQLite driver for single-node deployments and local development.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/tendant/folio/pkg/folio"
)

// ConfigEntry is one row of the section table.
type ConfigEntry struct {
	Key   string         `gorm:"column:key;primaryKey;size:255"`
	Value datatypes.JSON `gorm:"column:value;not null"`
}

// TableName keeps the table name shared with the PostgreSQL schema.
func (ConfigEntry) TableName() string {
	return "config"
}

// Repository implements folio.Repository using gorm
type Repository struct {
	db *gorm.DB
}

// New wraps an open gorm handle. The caller owns the schema; see Migrate.
func New(db *gorm.DB) folio.Repository {
	return &Repository{db: db}
}

// OpenSQLite opens (creating if needed) the SQLite database at path and
// migrates the section table.
func OpenSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the section table if it is missing.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&ConfigEntry{}); err != nil {
		return fmt.Errorf("failed to migrate config table: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Repository) GetAll(ctx context.Context) ([]folio.Entry, error) {
	var rows []ConfigEntry
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: get all: %w", folio.ErrStorageUnavailable, err)
	}

	entries := make([]folio.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, folio.Entry{Key: row.Key, Value: []byte(row.Value)})
	}
	return entries, nil
}

func (r *Repository) Get(ctx context.Context, key string) (folio.Entry, error) {
	var row ConfigEntry
	err := r.db.WithContext(ctx).Take(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return folio.Entry{}, folio.ErrSectionNotFound
	}
	if err != nil {
		return folio.Entry{}, fmt.Errorf("%w: get section: %w", folio.ErrStorageUnavailable, err)
	}
	return folio.Entry{Key: row.Key, Value: []byte(row.Value)}, nil
}

func (r *Repository) Upsert(ctx context.Context, key string, value []byte) error {
	entry := ConfigEntry{Key: key, Value: datatypes.JSON(value)}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("%w: upsert section: %w", folio.ErrStorageUnavailable, err)
	}
	return nil
}

func (r *Repository) DeleteAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&ConfigEntry{}).Error
	if err != nil {
		return fmt.Errorf("%w: delete all: %w", folio.ErrStorageUnavailable, err)
	}
	return nil
}
