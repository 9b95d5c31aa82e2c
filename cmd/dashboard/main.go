package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mhrivnak/modeldash/pkg/client"
	"github.com/mhrivnak/modeldash/pkg/config"
	"github.com/mhrivnak/modeldash/pkg/dashboard"
	"github.com/mhrivnak/modeldash/pkg/guard"
	"github.com/mhrivnak/modeldash/pkg/session"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	// Open the session store
	store, closeStore, err := session.Open(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// The guard owns the AuthFailure transition for every client call
	g := guard.New(store, guard.WithLogger(logger))
	api, err := client.New(cfg.API.BaseURL, store,
		client.WithTimeout(cfg.API.Timeout),
		client.WithLogger(logger),
		client.WithAuthFailureHandler(g),
		client.WithMetrics(client.NewMetrics(registry)),
	)
	if err != nil {
		log.Fatalf("Failed to create API client: %v", err)
	}

	server := dashboard.NewServer(cfg, api, g, store,
		dashboard.WithLogger(logger),
		dashboard.WithRegistry(registry),
	)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	logger.Info("dashboard ready", "api", api.BaseURL(), "session", g.State(context.Background()).String())

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
