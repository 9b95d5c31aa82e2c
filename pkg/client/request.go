package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"

	// RequestIDHeader carries the per-request sequence marker
	RequestIDHeader = "X-Request-ID"
)

// call describes one logical operation before it becomes an *http.Request.
type call struct {
	op          string
	method      string
	path        string // escaped, relative to the base URL, leading slash
	body        io.Reader
	contentType string
	// anonymous requests never carry the bearer token
	anonymous bool
}

func jsonCall(op, method, path string, payload any) (call, error) {
	c := call{op: op, method: method, path: path}
	if payload == nil {
		return c, nil
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return c, fmt.Errorf("%s: encode request: %w", op, err)
	}
	c.body = bytes.NewReader(buf)
	c.contentType = contentTypeJSON
	return c, nil
}

func formCall(op, path string, form url.Values) call {
	return call{
		op:          op,
		method:      http.MethodPost,
		path:        path,
		body:        bytes.NewBufferString(form.Encode()),
		contentType: contentTypeForm,
		anonymous:   true,
	}
}

// newRequest turns a call into an outgoing request and returns the request
// id attached to it.
func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, string, error) {
	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL.String()+cl.path, cl.body)
	if err != nil {
		return nil, "", fmt.Errorf("%s: build request: %w", cl.op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", contentTypeJSON)
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	} else if cl.body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	if !cl.anonymous {
		if token, ok := c.store.Token(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return req, requestID, nil
}

// escapeID makes an identifier safe to use as a single path segment.
func escapeID(id string) string {
	return url.PathEscape(id)
}
