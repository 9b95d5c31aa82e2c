package dashboard

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// corsMiddleware lets a separately served frontend call the dashboard. Only
// origins listed in dashboard.allowed_origins are echoed back; "*" allows any.
// Writes carrying a foreign Origin are refused outright, since the server
// acts with the operator's stored token.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowed := s.config.Dashboard.AllowedOrigins
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		trusted := origin != "" && (slices.Contains(allowed, origin) || slices.Contains(allowed, "*"))
		if origin != "" && !trusted && !safeMethod(c.Request.Method) {
			s.logger.Warn("refusing cross-origin request", "origin", origin, "method", c.Request.Method, "path", c.Request.URL.Path)
			SendError(c, NewAPIError(http.StatusForbidden, "Forbidden", "origin not allowed"))
			c.Abort()
			return
		}
		if trusted {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// errorHandlerMiddleware turns handler panics into a structured 500
func (s *Server) errorHandlerMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("panic in dashboard handler", "path", c.Request.URL.Path, "panic", recovered)
		SendError(c, NewAPIError(http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred"))
		c.Abort()
	})
}
