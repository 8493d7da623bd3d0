// Package api serves the HTTP surface: health, metrics, the Slack Events
// webhook and an authenticated message endpoint.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gmsas95/ledgerbot/internal/channels"
	"github.com/gmsas95/ledgerbot/internal/config"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Server handles the HTTP API
type Server struct {
	app       *fiber.App
	config    *config.Config
	handler   channels.Handler
	slack     fiber.Handler
	metrics   http.Handler
	logger    *zap.Logger
	version   string
	startedAt time.Time
}

// Options carries the optional collaborators of the server
type Options struct {
	// Slack handles /slack/events; the route is absent when nil
	Slack fiber.Handler
	// Metrics serves /metrics; the route is absent when nil
	Metrics http.Handler
	Version string
}

// New creates a new API server
func New(cfg *config.Config, handler channels.Handler, opts Options, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
	})

	s := &Server{
		app:       app,
		config:    cfg,
		handler:   handler,
		slack:     opts.Slack,
		metrics:   opts.Metrics,
		logger:    logger,
		version:   opts.Version,
		startedAt: time.Now(),
	}

	s.setupRoutes()
	return s
}

// Start listens until Shutdown is called
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}
