package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mhrivnak/modeldash/pkg/database/models"
)

type SessionEntryRepository struct {
	db *gorm.DB
}

func NewSessionEntryRepository(db *gorm.DB) *SessionEntryRepository {
	return &SessionEntryRepository{db: db}
}

// Get returns the value stored under key, and false when no row exists.
func (r *SessionEntryRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.SessionEntry
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

// Put upserts the value for key in a single statement.
func (r *SessionEntryRepository) Put(ctx context.Context, key, value string) error {
	entry := &models.SessionEntry{Key: key, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(entry).Error
}

// Delete removes key; deleting a missing key is not an error.
func (r *SessionEntryRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.SessionEntry{}).Error
}
