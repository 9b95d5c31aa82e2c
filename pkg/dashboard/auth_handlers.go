package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mhrivnak/modeldash/pkg/client"
	"github.com/mhrivnak/modeldash/pkg/guard"
)

// homePath is where a successful login or signup lands.
const homePath = "/dashboard"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Session   string    `json:"session"`
}

// healthHandler reports liveness. It never calls the remote API.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Session:   s.guard.State(c.Request.Context()).String(),
	})
}

// landingHandler is the public entry view; it points at the next view to open.
func (s *Server) landingHandler(c *gin.Context) {
	state := s.guard.State(c.Request.Context())
	next := s.guard.LoginPath()
	if state == guard.Authenticated {
		next = homePath
	}
	c.JSON(http.StatusOK, gin.H{
		"name":          "modeldash",
		"authenticated": state == guard.Authenticated,
		"next":          next,
	})
}

func (s *Server) authViewHandler(c *gin.Context) {
	login := s.guard.LoginPath()
	c.JSON(http.StatusOK, gin.H{
		"state":    s.guard.State(c.Request.Context()).String(),
		"login":    login + "/login",
		"register": login + "/register",
		"logout":   login + "/logout",
	})
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type registerRequest struct {
	Email          string `json:"email" form:"email"`
	Username       string `json:"username" form:"username"`
	Password       string `json:"password" form:"password"`
	OrganizationID int    `json:"organization_id" form:"organization_id"`
}

// loginHandler accepts JSON or a submitted form. Empty fields are rejected by
// the client before anything is sent.
func (s *Server) loginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	if _, err := s.api.Login(c.Request.Context(), client.Credentials{Username: req.Username, Password: req.Password}); err != nil {
		s.respondClientError(c, err)
		return
	}
	s.logger.Info("operator logged in", "username", req.Username)
	s.sendTo(c, homePath)
}

// registerHandler creates the account and logs straight in with it.
func (s *Server) registerHandler(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	_, err := s.api.SignUp(c.Request.Context(), client.RegistrationRequest{
		Email:          req.Email,
		Username:       req.Username,
		Password:       req.Password,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		s.respondClientError(c, err)
		return
	}
	s.logger.Info("operator registered", "username", req.Username)
	s.sendTo(c, homePath)
}

func (s *Server) logoutHandler(c *gin.Context) {
	if err := s.api.Logout(c.Request.Context()); err != nil {
		s.respondClientError(c, err)
		return
	}
	s.sendTo(c, s.guard.LoginPath())
}

// sendTo finishes a form submission: browsers follow a 303, API callers get
// the target in the body.
func (s *Server) sendTo(c *gin.Context, path string) {
	if !guard.WantsJSON(c.Request) {
		c.Redirect(http.StatusSeeOther, path)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": s.guard.State(c.Request.Context()) == guard.Authenticated,
		"redirect":      path,
	})
}
