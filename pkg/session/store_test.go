package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mhrivnak/modeldash/pkg/config"
	"github.com/mhrivnak/modeldash/pkg/database/models"
	"github.com/mhrivnak/modeldash/pkg/database/repositories"
)

func newTestDBStore(t *testing.T) *DBStore {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.SessionEntry{}))
	return NewDBStore(repositories.NewSessionEntryRepository(db), nil)
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "nested", "session.yaml"), nil),
		"db":     newTestDBStore(t),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok := store.Token(ctx)
			assert.False(t, ok, "new store must be empty")

			require.NoError(t, store.SetToken(ctx, "abc123"))
			token, ok := store.Token(ctx)
			assert.True(t, ok)
			assert.Equal(t, "abc123", token)
			assert.True(t, Authenticated(ctx, store))

			require.NoError(t, store.SetToken(ctx, "abc123"))
			token, _ = store.Token(ctx)
			assert.Equal(t, "abc123", token)

			assert.ErrorIs(t, store.SetToken(ctx, ""), ErrEmptyToken)

			require.NoError(t, store.Clear(ctx))
			_, ok = store.Token(ctx)
			assert.False(t, ok)
			require.NoError(t, store.Clear(ctx))
			_, ok = store.Token(ctx)
			assert.False(t, ok)
		})
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.SetToken(ctx, "same")
		}()
		go func() {
			defer wg.Done()
			_ = store.Clear(ctx)
		}()
	}
	wg.Wait()

	token, ok := store.Token(ctx)
	if ok {
		assert.Equal(t, "same", token)
	}
}

func TestFileStoreSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.yaml")

	require.NoError(t, NewFileStore(path, nil).SetToken(ctx, "persisted"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, ok := NewFileStore(path, nil).Token(ctx)
	assert.True(t, ok)
	assert.Equal(t, "persisted", token)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: [unterminated"), 0o600))

	_, ok := NewFileStore(path, nil).Token(context.Background())
	assert.False(t, ok)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Session.Backend = config.BackendMemory
		store, closeFn, err := Open(ctx, cfg, nil)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("file", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Session.Backend = config.BackendFile
		cfg.Session.File = filepath.Join(t.TempDir(), "session.yaml")
		store, closeFn, err := Open(ctx, cfg, nil)
		require.NoError(t, err)
		defer closeFn()
		require.IsType(t, &FileStore{}, store)
		assert.Equal(t, cfg.Session.File, store.(*FileStore).Path())
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Session.Backend = config.BackendSQLite
		cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "session.db")
		store, closeFn, err := Open(ctx, cfg, nil)
		require.NoError(t, err)
		defer closeFn()

		require.NoError(t, store.SetToken(ctx, "from-db"))
		token, ok := store.Token(ctx)
		assert.True(t, ok)
		assert.Equal(t, "from-db", token)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Session.Backend = "etcd"
		_, closeFn, err := Open(ctx, cfg, nil)
		assert.ErrorIs(t, err, config.ErrUnknownBackend)
		assert.NotNil(t, closeFn)
	})
}
