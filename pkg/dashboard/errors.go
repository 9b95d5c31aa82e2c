package dashboard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mhrivnak/modeldash/pkg/client"
	"github.com/mhrivnak/modeldash/pkg/guard"
)

// APIError represents a structured error response
type APIError struct {
	Code      int    `json:"code"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Redirect  string `json:"redirect,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// NewAPIError creates a new API error response
func NewAPIError(code int, error string, message string, details ...string) *APIError {
	apiErr := &APIError{
		Code:    code,
		Error:   error,
		Message: message,
	}
	if len(details) > 0 {
		apiErr.Details = details[0]
	}
	return apiErr
}

// SendError sends a structured error response
func SendError(c *gin.Context, apiErr *APIError) {
	c.JSON(apiErr.Code, apiErr)
}

// SendSuccess sends a structured success response
func SendSuccess(c *gin.Context, code int, data any) {
	c.JSON(code, gin.H{
		"success": true,
		"data":    data,
	})
}

// statusFor maps a client error kind to the status the dashboard answers with.
// Upstream 4xx rejections keep their status; upstream 5xx become 502.
func statusFor(cerr *client.Error) int {
	switch cerr.Kind {
	case client.KindAuthFailure:
		return http.StatusUnauthorized
	case client.KindLocalValidation:
		return http.StatusBadRequest
	case client.KindRequestRejected:
		if cerr.Status >= 400 && cerr.Status < 500 {
			return cerr.Status
		}
		return http.StatusBadGateway
	case client.KindMalformedPayload:
		return http.StatusBadGateway
	case client.KindNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondClientError reports err from a client call. An AuthFailure has already
// cleared the session, so the caller is sent to the login view the same way
// the guard would send it.
func (s *Server) respondClientError(c *gin.Context, err error) {
	var cerr *client.Error
	if !errors.As(err, &cerr) {
		s.logger.Error("dashboard view failed", "path", c.Request.URL.Path, "error", err)
		SendError(c, NewAPIError(http.StatusInternalServerError, "Internal Server Error", err.Error()))
		return
	}

	s.metrics.viewErrors.WithLabelValues(cerr.Kind.String()).Inc()
	s.logger.Warn("dashboard view failed",
		"path", c.Request.URL.Path, "kind", cerr.Kind.String(), "request_id", cerr.RequestID, "error", err)

	if cerr.Kind == client.KindAuthFailure && !guard.WantsJSON(c.Request) {
		c.Redirect(http.StatusSeeOther, s.guard.LoginPath())
		return
	}

	status := statusFor(cerr)
	apiErr := NewAPIError(status, http.StatusText(status), cerr.Detail)
	apiErr.RequestID = cerr.RequestID
	if cerr.Kind == client.KindAuthFailure {
		apiErr.Redirect = s.guard.LoginPath()
	}
	SendError(c, apiErr)
}

// badRequest reports a malformed dashboard request body.
func badRequest(c *gin.Context, err error) {
	SendError(c, NewAPIError(http.StatusBadRequest, "Bad Request", "Invalid request body", err.Error()))
}
