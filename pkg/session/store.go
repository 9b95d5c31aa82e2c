// Package session holds the client's bearer token: the single source of truth
// for whether the operator is authenticated.
package session

import (
	"context"
	"errors"
)

// ErrEmptyToken is returned when SetToken is called with an empty token
var ErrEmptyToken = errors.New("session token must not be empty")

// Store persists the current bearer token.
//
// Token never fails; a backend that cannot be read reports no token.
// Clear is idempotent and every implementation is safe for concurrent use.
type Store interface {
	SetToken(ctx context.Context, token string) error
	Token(ctx context.Context) (string, bool)
	Clear(ctx context.Context) error
}

// Authenticated reports whether s currently holds a token.
func Authenticated(ctx context.Context, s Store) bool {
	_, ok := s.Token(ctx)
	return ok
}
