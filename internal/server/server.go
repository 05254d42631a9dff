// Package server exposes paneld over a localhost HTTP API. Panel
// surfaces poll the REST routes and subscribe to /v1/events for pushed
// context changes; the browser bridge feeds navigation events in
// through /v1/navigation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go"

	"github.com/lioncrest/paneld/internal/board"
	"github.com/lioncrest/paneld/internal/config"
	"github.com/lioncrest/paneld/internal/extraction"
	"github.com/lioncrest/paneld/internal/logging"
	"github.com/lioncrest/paneld/internal/mailctx"
	"github.com/lioncrest/paneld/internal/router"
)

const serviceName = "paneld"

// Deps are the wired subsystems the server fronts. Extractor and
// Boards are optional: when their API keys are not configured the
// corresponding routes answer 503.
type Deps struct {
	Logger      *logging.Logger
	Router      *router.Router
	Broadcaster *mailctx.Broadcaster
	Bus         *nats.Conn
	Extractor   *extraction.Extractor
	Boards      *board.Client
}

// Server is the paneld HTTP server.
type Server struct {
	cfg  config.ServerConfig
	echo *echo.Echo
	deps Deps
}

// HealthResponse is the JSON response for the /health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// New creates the HTTP server and registers all routes.
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Router == nil {
		return nil, errors.New("router is required")
	}
	if deps.Broadcaster == nil {
		return nil, errors.New("broadcaster is required")
	}
	if deps.Bus == nil {
		return nil, errors.New("bus connection is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metricsMiddleware())

	s := &Server{
		cfg:  cfg,
		echo: e,
		deps: deps,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", metricsHandler())

	v1 := s.echo.Group("/v1")
	v1.POST("/message", s.handleMessage)
	v1.GET("/context", s.handleContext)
	v1.POST("/auth/start", s.handleAuthStart)
	v1.GET("/auth/status", s.handleAuthStatus)
	v1.GET("/token", s.handleToken)
	v1.POST("/signout", s.handleSignOut)
	v1.POST("/navigation", s.handleNavigation)
	v1.GET("/events", s.handleEvents)
	v1.GET("/schemas", s.handleSchemas)
	v1.GET("/schemas/:schema_type", s.handleSchema)
	v1.POST("/extract", s.handleExtract)
	v1.POST("/board/upsert", s.handleBoardUpsert)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: serviceName,
	})
}

// Start runs the server until the context is cancelled, then shuts
// down gracefully. Returns http.ErrServerClosed on clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			s.cfg.ShutdownTimeout.Duration(),
		)
		defer cancel()

		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}

// Echo returns the underlying Echo instance, used by tests to drive
// handlers without a listener.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
