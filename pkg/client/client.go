// Package client talks to the remote model-management API on behalf of a
// single operator session.
//
// Every Domain Operation goes through the same two stages: the request
// pipeline (base URL, bearer token, content negotiation, timeout) and the
// response pipeline, which classifies the outcome into exactly one of
// success, NetworkError, AuthFailure, MalformedPayload or RequestRejected.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mhrivnak/modeldash/pkg/session"
)

// DefaultTimeout bounds every request issued by the client.
const DefaultTimeout = 10 * time.Second

// AuthFailureHandler is the single transition run when the API answers 401.
// It is invoked once per failed response, after the response is read.
type AuthFailureHandler interface {
	HandleAuthFailure(ctx context.Context)
}

// AuthFailureFunc adapts a function to AuthFailureHandler.
type AuthFailureFunc func(ctx context.Context)

func (f AuthFailureFunc) HandleAuthFailure(ctx context.Context) { f(ctx) }

type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	store       session.Store
	logger      *slog.Logger
	authFailure AuthFailureHandler
	metrics     *Metrics
}

type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying transport client. Its Timeout is
// kept when set, otherwise DefaultTimeout applies.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		clone := *hc
		if clone.Timeout == 0 {
			clone.Timeout = c.httpClient.Timeout
		}
		c.httpClient = &clone
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAuthFailureHandler replaces the default handler, which only clears the
// session store. Replacements are responsible for clearing the store too.
func WithAuthFailureHandler(h AuthFailureHandler) Option {
	return func(c *Client) {
		if h != nil {
			c.authFailure = h
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, store session.Store, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrBaseURLMissing
	}
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", baseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q: absolute http(s) url required", baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""

	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		store:      store,
		logger:     slog.Default(),
	}
	c.authFailure = AuthFailureFunc(func(ctx context.Context) {
		if err := c.store.Clear(ctx); err != nil {
			c.logger.Error("failed to clear session after auth failure", "error", err)
		}
	})

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Timeout returns the per-request timeout in effect.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// Store returns the session store the client reads its token from.
func (c *Client) Store() session.Store {
	return c.store
}
