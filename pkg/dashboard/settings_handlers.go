package dashboard

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mhrivnak/modeldash/pkg/client"
	"github.com/mhrivnak/modeldash/pkg/session"
)

type organizationRequest struct {
	Name        string `json:"name" form:"name"`
	Description string `json:"description" form:"description"`
}

// settingsHandler describes the current session from the stored token alone.
func (s *Server) settingsHandler(c *gin.Context) {
	response := gin.H{
		"state":    s.guard.State(c.Request.Context()).String(),
		"base_url": s.config.API.BaseURL,
		"timeout":  s.config.API.Timeout.String(),
		"backend":  s.config.Session.Backend,
	}

	token, ok := s.store.Token(c.Request.Context())
	if ok {
		info, err := session.Inspect(token)
		switch {
		case errors.Is(err, session.ErrOpaqueToken):
			response["token"] = "opaque"
		case err == nil:
			response["token"] = "jwt"
			response["session"] = info
			response["expired"] = info.Expired(time.Now())
		}
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) createOrganizationHandler(c *gin.Context) {
	var req organizationRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	org, err := s.api.CreateOrganization(c.Request.Context(), client.OrganizationRequest{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.respondClientError(c, err)
		return
	}
	SendSuccess(c, http.StatusCreated, org)
}
