package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KeyValueEntry is the GORM model for a persisted ledger blob.
type KeyValueEntry struct {
	Key       string    `gorm:"primaryKey;type:text"`
	Value     []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (KeyValueEntry) TableName() string {
	return defaultKeyValueTable
}

type gormKeyValueStore struct {
	db *gorm.DB
}

// NewGormKeyValueStore creates a key-value store using GORM.
func NewGormKeyValueStore(db *gorm.DB) (KeyValueStore, error) {
	if err := db.AutoMigrate(&KeyValueEntry{}); err != nil {
		return nil, fmt.Errorf("auto migrate key-value entries: %w", err)
	}
	return &gormKeyValueStore{db: db}, nil
}

func (r *gormKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrEmptyKey
	}
	var entry KeyValueEntry
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return entry.Value, nil
}

func (r *gormKeyValueStore) Put(ctx context.Context, key string, value []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	entry := KeyValueEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}
