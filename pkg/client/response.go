package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"
)

// maxBodyBytes caps how much of a response body is read into memory
const maxBodyBytes = 32 << 20

// do runs cl through the request and response pipelines. On success the body,
// when present, is decoded into out.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	start := time.Now()

	req, requestID, err := c.newRequest(ctx, cl)
	if err != nil {
		if closer, ok := cl.body.(io.Closer); ok {
			closer.Close()
		}
		return err
	}

	logger := c.logger.With("op", cl.op, "request_id", requestID)
	logger.Debug("sending request", "method", cl.method, "path", cl.path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cerr := networkError(cl.op, requestID, err)
		c.finish(logger, cl.op, cerr, start)
		return cerr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		cerr := networkError(cl.op, requestID, err)
		c.finish(logger, cl.op, cerr, start)
		return cerr
	}

	cerr := c.classify(ctx, cl.op, requestID, resp, body, out)
	c.finish(logger.With("status", resp.StatusCode), cl.op, cerr, start)
	if cerr != nil {
		return cerr
	}
	return nil
}

// classify maps a received response to exactly one outcome. A nil result is
// success. The order matters: 401 wins over everything, and an HTML page is
// a misconfigured endpoint whatever its status.
func (c *Client) classify(ctx context.Context, op, requestID string, resp *http.Response, body []byte, out any) *Error {
	if resp.StatusCode == http.StatusUnauthorized {
		c.authFailure.HandleAuthFailure(context.WithoutCancel(ctx))
		return &Error{
			Op:        op,
			Kind:      KindAuthFailure,
			Status:    resp.StatusCode,
			Detail:    detailOrDefault(body, "authentication required"),
			RequestID: requestID,
		}
	}

	if isHTML(resp.Header.Get("Content-Type"), body) {
		return &Error{
			Op:        op,
			Kind:      KindMalformedPayload,
			Status:    resp.StatusCode,
			Detail:    "received an HTML document where JSON was expected; check the api base url",
			RequestID: requestID,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Op:        op,
			Kind:      KindRequestRejected,
			Status:    resp.StatusCode,
			Detail:    detailOrDefault(body, genericMessage(resp.StatusCode)),
			RequestID: requestID,
		}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{
			Op:        op,
			Kind:      KindMalformedPayload,
			Status:    resp.StatusCode,
			Detail:    "response is not valid JSON",
			RequestID: requestID,
			Err:       err,
		}
	}
	return nil
}

func (c *Client) finish(logger *slog.Logger, op string, cerr *Error, start time.Time) {
	elapsed := time.Since(start)
	outcome := "success"
	if cerr != nil {
		outcome = cerr.Kind.String()
	}
	c.metrics.record(op, outcome, elapsed.Seconds())

	if cerr == nil {
		logger.Debug("request succeeded", "duration", elapsed)
		return
	}
	logger.Warn("request failed", "outcome", outcome, "detail", cerr.Detail, "duration", elapsed)
}

func networkError(op, requestID string, err error) *Error {
	detail := "no response from server"
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		detail = "request timed out"
	} else if errors.Is(err, context.Canceled) {
		detail = "request cancelled"
	}
	return &Error{Op: op, Kind: KindNetwork, Detail: detail, RequestID: requestID, Err: err}
}

func isHTML(contentType string, body []byte) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "text/html" {
		return true
	}
	if json.Valid(body) {
		return false
	}
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	lower := strings.ToLower(string(bytes.TrimSpace(head)))
	return strings.HasPrefix(lower, "<!doctype html") || strings.Contains(lower, "<html")
}

func genericMessage(status int) string {
	switch {
	case status == http.StatusForbidden:
		return "access denied"
	case status == http.StatusNotFound:
		return "resource not found"
	case status == http.StatusUnprocessableEntity:
		return "invalid request format"
	case status >= 500:
		return "server error"
	default:
		if text := http.StatusText(status); text != "" {
			return strings.ToLower(text)
		}
		return fmt.Sprintf("unexpected status %d", status)
	}
}

// detailOrDefault extracts the server's explanation from an error body:
// {"detail": "..."}, a validation list {"detail": [{"loc": [...], "msg": "..."}]},
// {"message": "..."} or {"error": "..."}.
func detailOrDefault(body []byte, fallback string) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}

	if len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil && text != "" {
			return text
		}

		var items []struct {
			Loc []any  `json:"loc"`
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg == "" {
					continue
				}
				if len(item.Loc) == 0 {
					msgs = append(msgs, item.Msg)
					continue
				}
				loc := make([]string, 0, len(item.Loc))
				for _, l := range item.Loc {
					loc = append(loc, fmt.Sprint(l))
				}
				msgs = append(msgs, strings.Join(loc, ".")+": "+item.Msg)
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}

	if payload.Message != "" {
		return payload.Message
	}
	if payload.Error != "" {
		return payload.Error
	}
	return fallback
}
