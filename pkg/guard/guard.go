// Package guard decides whether navigation to a view may proceed, based only
// on the session store, and owns the AuthFailure transition.
package guard

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/mhrivnak/modeldash/pkg/session"
)

// DefaultLoginPath is where unauthenticated navigation is sent
const DefaultLoginPath = "/auth"

// DefaultProtected lists the dashboard views that require a session.
var DefaultProtected = []string{"/dashboard", "/models", "/deployments", "/cost", "/analytics", "/settings"}

// State is the authentication state derived from the session store.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Decision is the outcome of evaluating one navigation attempt.
type Decision struct {
	Allowed    bool
	RedirectTo string
}

// Navigator is told when the operator has to be sent to the login view
// without having navigated, i.e. after an AuthFailure.
type Navigator interface {
	RedirectToLogin(ctx context.Context, loginPath string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, loginPath string)

func (f NavigatorFunc) RedirectToLogin(ctx context.Context, loginPath string) { f(ctx, loginPath) }

type Guard struct {
	store     session.Store
	loginPath string
	protected []string
	logger    *slog.Logger

	mu         sync.RWMutex
	navigators []Navigator
}

type Option func(*Guard)

func WithLoginPath(path string) Option {
	return func(g *Guard) {
		if path != "" {
			g.loginPath = path
		}
	}
}

// WithProtected replaces DefaultProtected. A prefix protects itself and every
// path below it.
func WithProtected(prefixes ...string) Option {
	return func(g *Guard) {
		g.protected = append([]string(nil), prefixes...)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func New(store session.Store, opts ...Option) *Guard {
	g := &Guard{
		store:     store,
		loginPath: DefaultLoginPath,
		protected: append([]string(nil), DefaultProtected...),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LoginPath returns the view unauthenticated navigation is redirected to.
func (g *Guard) LoginPath() string {
	return g.loginPath
}

// State reads the current state from the store.
func (g *Guard) State(ctx context.Context) State {
	if session.Authenticated(ctx, g.store) {
		return Authenticated
	}
	return Unauthenticated
}

// Protected reports whether path needs a session.
func (g *Guard) Protected(path string) bool {
	for _, prefix := range g.protected {
		prefix = strings.TrimSuffix(prefix, "/")
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// Evaluate decides a navigation attempt to path. It never performs I/O beyond
// reading the session store.
func (g *Guard) Evaluate(ctx context.Context, path string) Decision {
	if !g.Protected(path) || g.State(ctx) == Authenticated {
		return Decision{Allowed: true}
	}
	return Decision{RedirectTo: g.loginPath}
}

// OnRedirect registers n to be told about AuthFailure-driven redirects.
func (g *Guard) OnRedirect(n Navigator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.navigators = append(g.navigators, n)
}

// HandleAuthFailure is the AuthFailure transition: the session is cleared and,
// when there was a session to end, every registered Navigator is sent to the
// login view. A rejected login finds no session and notifies nobody.
func (g *Guard) HandleAuthFailure(ctx context.Context) {
	hadSession := g.State(ctx) == Authenticated
	if err := g.store.Clear(ctx); err != nil {
		g.logger.Error("failed to clear session after auth failure", "error", err)
	}
	if !hadSession {
		g.logger.Debug("auth failure without a session", "login_path", g.loginPath)
		return
	}
	g.logger.Info("session invalidated by the api, redirecting to login", "login_path", g.loginPath)

	g.mu.RLock()
	navigators := append([]Navigator(nil), g.navigators...)
	g.mu.RUnlock()

	for _, n := range navigators {
		n.RedirectToLogin(ctx, g.loginPath)
	}
}
