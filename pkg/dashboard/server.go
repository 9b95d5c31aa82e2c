// Package dashboard serves the operator's views as JSON endpoints. Every view
// is composed from client calls; protected views sit behind the route guard.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mhrivnak/modeldash/pkg/client"
	"github.com/mhrivnak/modeldash/pkg/config"
	"github.com/mhrivnak/modeldash/pkg/guard"
	"github.com/mhrivnak/modeldash/pkg/session"
)

// ModelAPI is the subset of *client.Client the dashboard composes.
type ModelAPI interface {
	Login(ctx context.Context, creds client.Credentials) (*client.LoginResponse, error)
	SignUp(ctx context.Context, req client.RegistrationRequest) (*client.LoginResponse, error)
	Logout(ctx context.Context) error
	ListModels(ctx context.Context) ([]client.Model, error)
	UploadModel(ctx context.Context, desc client.ModelDescriptor) (*client.Model, error)
	DeployModel(ctx context.Context, req client.DeploymentRequest) (*client.Deployment, error)
	ScaleModel(ctx context.Context, modelID string, req client.ScaleRequest) (client.Object, error)
	DeleteModel(ctx context.Context, modelID string) error
	GetModelMetrics(ctx context.Context, modelID string) (client.ModelMetrics, error)
	CreateOrganization(ctx context.Context, req client.OrganizationRequest) (*client.Organization, error)
}

// Server represents the dashboard server
type Server struct {
	config     *config.Config
	api        ModelAPI
	guard      *guard.Guard
	store      session.Store
	logger     *slog.Logger
	gatherer   prometheus.Gatherer
	metrics    *serverMetrics
	router     *gin.Engine
	httpServer *http.Server
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithLogger sets the server logger. slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistry exposes reg on /metrics and registers the server's own
// collectors with it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.gatherer = reg
			s.metrics = newServerMetrics(reg)
		}
	}
}

// NewServer creates a new dashboard server instance
func NewServer(cfg *config.Config, api ModelAPI, g *guard.Guard, store session.Store, opts ...Option) *Server {
	server := &Server{
		config:   cfg,
		api:      api,
		guard:    g,
		store:    store,
		logger:   slog.Default(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.metrics == nil {
		server.metrics = newServerMetrics(nil)
	}

	g.OnRedirect(guard.NavigatorFunc(func(ctx context.Context, loginPath string) {
		server.metrics.forcedLogouts.Inc()
		server.logger.Info("session ended by server, login required", "redirect", loginPath)
	}))

	// Configure gin mode based on log level
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all dashboard routes
func (s *Server) setupRoutes() {
	s.router = gin.New()

	// Global middleware
	if gin.Mode() == gin.DebugMode {
		s.router.Use(gin.Logger())
	}
	s.router.Use(s.errorHandlerMiddleware())
	s.router.Use(s.corsMiddleware())

	s.router.GET("/health", s.healthHandler)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	// Public views
	s.router.GET("/", s.landingHandler)
	auth := s.router.Group(s.guard.LoginPath())
	{
		auth.GET("", s.authViewHandler)
		auth.POST("/login", s.loginHandler)
		auth.POST("/register", s.registerHandler)
		auth.POST("/logout", s.logoutHandler)
	}

	// Protected views
	protected := s.router.Group("/")
	protected.Use(s.guard.Require())
	{
		protected.GET("/dashboard", s.dashboardHandler)

		protected.GET("/models", s.listModelsHandler)
		protected.POST("/models", s.uploadModelHandler)
		protected.POST("/models/:id/deploy", s.deployModelHandler)
		protected.POST("/models/:id/scale", s.scaleModelHandler)
		protected.DELETE("/models/:id", s.deleteModelHandler)
		protected.GET("/models/:id/metrics", s.modelMetricsHandler)

		protected.GET("/cost", s.costHandler)
		protected.GET("/analytics", s.analyticsHandler)

		protected.GET("/settings", s.settingsHandler)
		protected.POST("/settings/organizations", s.createOrganizationHandler)
	}
}

// Address is the host:port the server listens on. An empty host means every
// interface.
func (s *Server) Address() string {
	return net.JoinHostPort(s.config.Dashboard.Host, strconv.Itoa(s.config.Dashboard.Port))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	address := s.Address()
	s.logger.Info("starting dashboard server", "address", address)

	s.httpServer = &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if s.config.Dashboard.TLSCert != "" && s.config.Dashboard.TLSKey != "" {
		if _, err := os.Stat(s.config.Dashboard.TLSCert); err != nil {
			return fmt.Errorf("TLS certificate file error: %w", err)
		}
		if _, err := os.Stat(s.config.Dashboard.TLSKey); err != nil {
			return fmt.Errorf("TLS key file error: %w", err)
		}

		s.logger.Info("serving HTTPS")
		return s.httpServer.ListenAndServeTLS(s.config.Dashboard.TLSCert, s.config.Dashboard.TLSKey)
	}

	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down dashboard server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the gin router (useful for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
