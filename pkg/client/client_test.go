package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhrivnak/modeldash/pkg/session"
)

// recorded is what the fake API saw of one request.
type recorded struct {
	Method        string
	Path          string
	Authorization string
	HasAuth       bool
	ContentType   string
	Accept        string
	RequestID     string
	Body          []byte
}

type fakeAPI struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recorded
	calls    atomic.Int32
}

func newFakeAPI(t *testing.T, handler http.HandlerFunc) *fakeAPI {
	api := &fakeAPI{}
	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_, hasAuth := r.Header["Authorization"]
		api.mu.Lock()
		api.requests = append(api.requests, recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			HasAuth:       hasAuth,
			ContentType:   r.Header.Get("Content-Type"),
			Accept:        r.Header.Get("Accept"),
			RequestID:     r.Header.Get(RequestIDHeader),
			Body:          body,
		})
		api.mu.Unlock()
		api.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(api.Close)
	return api
}

func (f *fakeAPI) last(t *testing.T) recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests, "no request reached the fake API")
	return f.requests[len(f.requests)-1]
}

func respondJSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func newTestClient(t *testing.T, baseURL string, store session.Store, opts ...Option) *Client {
	c, err := New(baseURL, store, opts...)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	store := session.NewMemoryStore()

	t.Run("missing base url", func(t *testing.T) {
		_, err := New("  ", store)
		assert.ErrorIs(t, err, ErrBaseURLMissing)
	})

	t.Run("relative base url", func(t *testing.T) {
		_, err := New("/api", store)
		assert.Error(t, err)
	})

	t.Run("missing store", func(t *testing.T) {
		_, err := New("http://localhost:8000", nil)
		assert.Error(t, err)
	})

	t.Run("normalizes trailing slash", func(t *testing.T) {
		c := newTestClient(t, "https://api.example.com/v1/", store)
		assert.Equal(t, "https://api.example.com/v1", c.BaseURL())
		assert.Equal(t, DefaultTimeout, c.Timeout())
	})

	t.Run("custom timeout", func(t *testing.T) {
		c := newTestClient(t, "https://api.example.com", store, WithTimeout(time.Second))
		assert.Equal(t, time.Second, c.Timeout())
	})

	t.Run("http client keeps default timeout", func(t *testing.T) {
		c := newTestClient(t, "https://api.example.com", store, WithHTTPClient(&http.Client{}))
		assert.Equal(t, DefaultTimeout, c.Timeout())
	})
}

func TestAuthorizationHeader(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t, respondJSON(http.StatusOK, `{"latency_ms": 12}`))

	t.Run("token present", func(t *testing.T) {
		store := session.NewMemoryStore()
		require.NoError(t, store.SetToken(ctx, "abc123"))
		c := newTestClient(t, api.URL, store)

		_, err := c.GetModelMetrics(ctx, "1")
		require.NoError(t, err)

		req := api.last(t)
		assert.Equal(t, "Bearer abc123", req.Authorization)
		assert.Equal(t, "application/json", req.Accept)
		_, err = uuid.Parse(req.RequestID)
		assert.NoError(t, err, "request id must be a uuid")
	})

	t.Run("token absent", func(t *testing.T) {
		c := newTestClient(t, api.URL, session.NewMemoryStore())

		_, err := c.GetModelMetrics(ctx, "1")
		require.NoError(t, err)
		assert.False(t, api.last(t).HasAuth)
	})

	t.Run("login never sends the token", func(t *testing.T) {
		loginAPI := newFakeAPI(t, respondJSON(http.StatusOK, `{"access_token":"new","token_type":"bearer"}`))
		store := session.NewMemoryStore()
		require.NoError(t, store.SetToken(ctx, "old"))
		c := newTestClient(t, loginAPI.URL, store)

		_, err := c.Login(ctx, Credentials{Username: "alice", Password: "secret"})
		require.NoError(t, err)
		assert.False(t, loginAPI.last(t).HasAuth)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the access token", func(t *testing.T) {
		api := newFakeAPI(t, respondJSON(http.StatusOK, `{"access_token":"abc123","token_type":"bearer"}`))
		store := session.NewMemoryStore()
		c := newTestClient(t, api.URL, store)

		resp, err := c.Login(ctx, Credentials{Username: "alice", Password: "s3cret&more"})
		require.NoError(t, err)
		assert.Equal(t, "abc123", resp.AccessToken)

		token, ok := store.Token(ctx)
		assert.True(t, ok)
		assert.Equal(t, "abc123", token)

		req := api.last(t)
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/token", req.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", req.ContentType)
		assert.Equal(t, "grant_type=password&password=s3cret%26more&username=alice", string(req.Body))
	})

	t.Run("invalid credentials keep the session absent", func(t *testing.T) {
		api := newFakeAPI(t, respondJSON(http.StatusUnauthorized, `{"detail":"Incorrect username or password"}`))
		store := session.NewMemoryStore()
		c := newTestClient(t, api.URL, store)

		_, err := c.Login(ctx, Credentials{Username: "alice", Password: "wrong"})
		assert.ErrorIs(t, err, ErrAuthFailure)

		var cerr *Error
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "Incorrect username or password", cerr.Detail)
		assert.False(t, session.Authenticated(ctx, store))
	})

	t.Run("missing access token", func(t *testing.T) {
		api := newFakeAPI(t, respondJSON(http.StatusOK, `{"token_type":"bearer"}`))
		store := session.NewMemoryStore()
		c := newTestClient(t, api.URL, store)

		_, err := c.Login(ctx, Credentials{Username: "alice", Password: "pw"})
		assert.ErrorIs(t, err, ErrMalformedPayload)
		assert.False(t, session.Authenticated(ctx, store))
	})

	t.Run("blank username is rejected locally", func(t *testing.T) {
		api := newFakeAPI(t, respondJSON(http.StatusOK, `{}`))
		c := newTestClient(t, api.URL, session.NewMemoryStore())

		_, err := c.Login(ctx, Credentials{Password: "pw"})
		assert.ErrorIs(t, err, ErrLocalValidation)
		assert.Zero(t, api.calls.Load())
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	require.NoError(t, store.SetToken(ctx, "abc123"))
	c := newTestClient(t, "http://localhost:1", store)

	require.NoError(t, c.Logout(ctx))
	require.NoError(t, c.Logout(ctx))
	assert.False(t, session.Authenticated(ctx, store))
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t, respondJSON(http.StatusOK, `{"id": 7, "email":"a@example.com", "username":"alice"}`))
	c := newTestClient(t, api.URL, session.NewMemoryStore())

	user, err := c.Register(ctx, RegistrationRequest{Email: "a@example.com", Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, ID("7"), user.ID)

	req := api.last(t)
	assert.Equal(t, "/users/", req.Path)
	assert.Equal(t, "application/json", req.ContentType)
	assert.JSONEq(t, `{"email":"a@example.com","username":"alice","password":"pw","organization_id":0}`, string(req.Body))
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/":
			respondJSON(http.StatusOK, `{"id":1,"username":"bob"}`)(w, r)
		case "/token":
			respondJSON(http.StatusOK, `{"access_token":"tok","token_type":"bearer"}`)(w, r)
		default:
			http.NotFound(w, r)
		}
	})
	store := session.NewMemoryStore()
	c := newTestClient(t, api.URL, store)

	_, err := c.SignUp(ctx, RegistrationRequest{Email: "b@example.com", Username: "bob", Password: "pw"})
	require.NoError(t, err)
	token, _ := store.Token(ctx)
	assert.Equal(t, "tok", token)
	assert.EqualValues(t, 2, api.calls.Load())
}

func TestAuthFailureClearsSession(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t, respondJSON(http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`))

	store := session.NewMemoryStore()
	require.NoError(t, store.SetToken(ctx, "expired"))
	c := newTestClient(t, api.URL, store)

	_, err := c.ListModels(ctx)
	assert.ErrorIs(t, err, ErrAuthFailure)
	assert.Equal(t, KindAuthFailure, KindOf(err))
	assert.False(t, session.Authenticated(ctx, store))
}

func TestAuthFailureHandlerRunsOncePerFailure(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t, respondJSON(http.StatusUnauthorized, `{}`))

	store := session.NewMemoryStore()
	var invoked atomic.Int32
	c := newTestClient(t, api.URL, store, WithAuthFailureHandler(AuthFailureFunc(func(ctx context.Context) {
		invoked.Add(1)
		_ = store.Clear(ctx)
	})))

	_, err := c.GetModelMetrics(ctx, "1")
	assert.ErrorIs(t, err, ErrAuthFailure)
	assert.EqualValues(t, 1, invoked.Load())

	err = c.DeleteModel(ctx, "1")
	assert.ErrorIs(t, err, ErrAuthFailure)
	assert.EqualValues(t, 2, invoked.Load())
}

func TestMalformedPayload(t *testing.T) {
	ctx := context.Background()

	t.Run("html page with success status", func(t *testing.T) {
		api := newFakeAPI(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, "<!DOCTYPE html><html><body>tunnel warning</body></html>")
		})
		store := session.NewMemoryStore()
		require.NoError(t, store.SetToken(ctx, "abc123"))
		c := newTestClient(t, api.URL, store)

		_, err := c.ListModels(ctx)
		assert.ErrorIs(t, err, ErrMalformedPayload)
		assert.NotErrorIs(t, err, ErrUnexpectedFormat)
		assert.True(t, session.Authenticated(ctx, store), "html payload must not end the session")
	})

	t.Run("html body labelled as json", func(t *testing.T) {
		api := newFakeAPI(t, respondJSON(http.StatusOK, "\n  <html><head></head></html>"))
		c := newTestClient(t, api.URL, session.NewMemoryStore())

		_, err := c.GetModelMetrics(ctx, "3")
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("json mentioning html is not malformed", func(t *testing.T) {
		api := newFakeAPI(t, respondJSON(http.StatusOK,
			`[{"id":1,"name":"report","description":"renders <html> reports","model_type":"onnx","version":"1","docker_image":"img"}]`))
		c := newTestClient(t, api.URL, session.NewMemoryStore())

		models, err := c.ListModels(ctx)
		require.NoError(t, err)
		require.Len(t, models, 1)
		assert.Equal(t, "renders <html> reports", models[0].Description)
	})

	t.Run("rejection detail quoting a tag", func(t *testing.T) {
		api := newFakeAPI(t, respondJSON(http.StatusUnprocessableEntity,
			`{"detail":"description must not contain <html tags"}`))
		c := newTestClient(t, api.URL, session.NewMemoryStore())

		_, err := c.ListModels(ctx)
		assert.ErrorIs(t, err, ErrRequestRejected)
		assert.NotErrorIs(t, err, ErrMalformedPayload)
		assert.Equal(t, KindRequestRejected, KindOf(err))
	})

	t.Run("not json", func(t *testing.T) {
		api := newFakeAPI(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "plain text")
		})
		c := newTestClient(t, api.URL, session.NewMemoryStore())

		_, err := c.GetModelMetrics(ctx, "3")
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})
}

func TestRequestRejected(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		status int
		body   string
		detail string
	}{
		{"detail string", http.StatusUnprocessableEntity, `{"detail":"name already taken"}`, "name already taken"},
		{"validation list", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","replicas"],"msg":"field required"}]}`, "body.replicas: field required"},
		{"message field", http.StatusBadRequest, `{"message":"bad replicas"}`, "bad replicas"},
		{"empty 422", http.StatusUnprocessableEntity, ``, "invalid request format"},
		{"empty 500", http.StatusInternalServerError, ``, "server error"},
		{"empty 502", http.StatusBadGateway, `oops`, "server error"},
		{"forbidden", http.StatusForbidden, `{}`, "access denied"},
		{"not found", http.StatusNotFound, `{}`, "resource not found"},
		{"conflict", http.StatusConflict, `{}`, "conflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, respondJSON(tt.status, tt.body))
			store := session.NewMemoryStore()
			require.NoError(t, store.SetToken(ctx, "abc123"))
			c := newTestClient(t, api.URL, store)

			_, err := c.ScaleModel(ctx, "1", ScaleRequest{Replicas: 2})
			assert.ErrorIs(t, err, ErrRequestRejected)

			var cerr *Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.status, cerr.Status)
			assert.Equal(t, tt.detail, cerr.Detail)
			assert.True(t, session.Authenticated(ctx, store))
		})
	}
}

func TestNetworkError(t *testing.T) {
	ctx := context.Background()

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		store := session.NewMemoryStore()
		require.NoError(t, store.SetToken(ctx, "abc123"))
		c := newTestClient(t, url, store)

		_, err := c.ListModels(ctx)
		assert.ErrorIs(t, err, ErrNetwork)
		assert.True(t, session.Authenticated(ctx, store))
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		api := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		defer close(release)

		c := newTestClient(t, api.URL, session.NewMemoryStore(), WithTimeout(50*time.Millisecond))

		start := time.Now()
		_, err := c.ListModels(ctx)
		assert.ErrorIs(t, err, ErrNetwork)
		assert.Less(t, time.Since(start), 5*time.Second)

		var cerr *Error
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "request timed out", cerr.Detail)
		assert.Zero(t, cerr.Status)
	})
}

func TestMetricsRecordOutcomes(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	ok := newFakeAPI(t, respondJSON(http.StatusOK, `[]`))
	c := newTestClient(t, ok.URL, session.NewMemoryStore(), WithMetrics(metrics))
	_, err := c.ListModels(ctx)
	require.NoError(t, err)

	denied := newFakeAPI(t, respondJSON(http.StatusUnauthorized, `{}`))
	c = newTestClient(t, denied.URL, session.NewMemoryStore(), WithMetrics(metrics))
	_, err = c.ListModels(ctx)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("list models", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("list models", "auth_failure")))
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Op: "list models", Kind: KindRequestRejected, Status: 500, Detail: "server error"}
	assert.Equal(t, "list models: request rejected (status 500): server error", err.Error())
	assert.Zero(t, KindOf(io.EOF))
}

func TestIDJSON(t *testing.T) {
	var ids []ID
	require.NoError(t, json.Unmarshal([]byte(`[1, "abc", null, 12345678901]`), &ids))
	assert.Equal(t, []ID{"1", "abc", "", "12345678901"}, ids)

	out, err := json.Marshal([]ID{"42", "abc", "007"})
	require.NoError(t, err)
	assert.JSONEq(t, `[42, "abc", "007"]`, string(out))
}
