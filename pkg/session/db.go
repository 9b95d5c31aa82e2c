package session

import (
	"context"
	"log/slog"

	"github.com/mhrivnak/modeldash/pkg/database/models"
	"github.com/mhrivnak/modeldash/pkg/database/repositories"
)

// DBStore keeps the token in a single row of the session_entries table.
type DBStore struct {
	repo   *repositories.SessionEntryRepository
	logger *slog.Logger
}

func NewDBStore(repo *repositories.SessionEntryRepository, logger *slog.Logger) *DBStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DBStore{repo: repo, logger: logger}
}

func (d *DBStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	return d.repo.Put(ctx, models.SessionTokenKey, token)
}

func (d *DBStore) Token(ctx context.Context) (string, bool) {
	token, ok, err := d.repo.Get(ctx, models.SessionTokenKey)
	if err != nil {
		d.logger.Warn("failed to read session token", "error", err)
		return "", false
	}
	return token, ok && token != ""
}

func (d *DBStore) Clear(ctx context.Context) error {
	return d.repo.Delete(ctx, models.SessionTokenKey)
}
