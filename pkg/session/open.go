package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mhrivnak/modeldash/pkg/config"
	"github.com/mhrivnak/modeldash/pkg/database"
	"github.com/mhrivnak/modeldash/pkg/database/repositories"
)

// Open builds the Store selected by cfg.Session.Backend. The returned close
// function releases any database connection and is never nil.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Session.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), noop, nil
	case config.BackendFile, "":
		return NewFileStore(cfg.Session.File, logger), noop, nil
	case config.BackendSQLite, config.BackendPostgres:
		db, err := database.NewConnectionWithRetry(ctx, cfg, database.RetryConfigFromConfig(cfg))
		if err != nil {
			return nil, noop, err
		}
		if err := db.AutoMigrate(); err != nil {
			db.Close()
			return nil, noop, err
		}
		return NewDBStore(repositories.NewSessionEntryRepository(db.DB), logger), db.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Session.Backend)
	}
}
