package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mhrivnak/modeldash/pkg/database/models"
)

func setupSessionDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.SessionEntry{}))
	return db
}

func TestSessionEntryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionEntryRepository(setupSessionDB(t))

	t.Run("missing key", func(t *testing.T) {
		value, ok, err := repo.Get(ctx, models.SessionTokenKey)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, value)
	})

	t.Run("put then overwrite", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, models.SessionTokenKey, "first"))
		require.NoError(t, repo.Put(ctx, models.SessionTokenKey, "second"))

		value, ok, err := repo.Get(ctx, models.SessionTokenKey)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "second", value)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, models.SessionTokenKey))
		require.NoError(t, repo.Delete(ctx, models.SessionTokenKey))

		_, ok, err := repo.Get(ctx, models.SessionTokenKey)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
