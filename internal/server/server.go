// Package server exposes the HTTP API: alert-rule CRUD, on-demand account
// sync, anomaly detection, and the dashboard summary.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/adpulse/adpulse/pkg/logger"
)

// ErrorResponse is the JSON error envelope used by every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Controller registers a route group on the API router.
type Controller interface {
	RegisterRoutes(router *gin.RouterGroup)
}

// Server represents the HTTP server
type Server struct {
	config     *Config
	logger     *logger.Logger
	httpServer *http.Server
	engine     *gin.Engine
}

// New creates the HTTP server and mounts the given controllers under the
// API prefix, behind the request id, tenant, and logging middleware.
func New(config *Config, log *logger.Logger, health gin.HandlerFunc, controllers ...Controller) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(RequestID(config.RequestIDHeader))
	engine.Use(Recovery(log))
	if config.LogRequests {
		engine.Use(RequestLogger(log))
	}

	engine.GET("/health", health)

	api := engine.Group(config.APIPrefix)
	api.Use(TenantResolver(config.TenantHeader))
	for _, c := range controllers {
		c.RegisterRoutes(api)
	}

	server := &Server{
		config: config,
		logger: log.WithField("component", "http_server"),
		engine: engine,
	}
	server.httpServer = &http.Server{
		Addr:         config.GetAddress(),
		Handler:      engine,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return server, nil
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start runs the server until the context is cancelled or an interrupt
// signal arrives, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server on %s", s.config.GetAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
		s.logger.Info("interrupt received, shutting down")
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
	}
	return s.Shutdown()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server shutdown complete")
	return nil
}
