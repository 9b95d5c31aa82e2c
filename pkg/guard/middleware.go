package guard

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Require aborts navigation to protected views while unauthenticated, before
// any handler runs. Browsers get a redirect; API callers (Accept: application/json)
// get 401 with the login path.
func (g *Guard) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := g.Evaluate(c.Request.Context(), c.Request.URL.Path)
		if decision.Allowed {
			c.Next()
			return
		}

		if WantsJSON(c.Request) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":    "Unauthorized",
				"message":  "Authentication required",
				"redirect": decision.RedirectTo,
			})
			return
		}
		c.Redirect(http.StatusFound, decision.RedirectTo)
		c.Abort()
	}
}

// WantsJSON reports whether the request prefers a JSON answer over an HTML page.
func WantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
