// Paneld is the local daemon behind the Lioncrest browser side panel.
//
// It tracks which mail thread the panel is pointed at, manages the
// OAuth token lifecycle against the browser identity layer, and exposes
// extraction and board upsert operations over a localhost HTTP API.
//
// Configuration is loaded from ~/.config/paneld/config.yaml with
// environment variable overrides. See internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	paneld
//
//	# Point at an explicit config file
//	paneld -config /etc/paneld/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lioncrest/paneld/internal/auth"
	"github.com/lioncrest/paneld/internal/board"
	"github.com/lioncrest/paneld/internal/bridge"
	"github.com/lioncrest/paneld/internal/config"
	"github.com/lioncrest/paneld/internal/extraction"
	"github.com/lioncrest/paneld/internal/logging"
	"github.com/lioncrest/paneld/internal/mailctx"
	"github.com/lioncrest/paneld/internal/router"
	"github.com/lioncrest/paneld/internal/server"
	"github.com/lioncrest/paneld/internal/tokenstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/paneld/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  paneld           Start the paneld daemon\n")
			fmt.Fprintf(os.Stderr, "  paneld version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("paneld by Lioncrest\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the paneld server and blocks until the context is
// cancelled.
//
// This function initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes the structured logger
//  3. Starts or connects to the event bus
//  4. Wires the browser bridge, token store, and auth controller
//  5. Builds the thread-context pipeline and message router
//  6. Creates the extraction and board clients when configured
//  7. Starts the HTTP server
//
// Returns http.ErrServerClosed on graceful shutdown.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info(ctx, "Starting paneld",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("embedded_bus", cfg.Bus.Embedded),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	deps, err := initDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	logger.Info(ctx, "Dependencies initialized",
		zap.Bool("bus_connected", deps.busConn != nil),
		zap.Bool("extraction_enabled", deps.extractor != nil),
		zap.Bool("board_enabled", deps.boards != nil))

	srv, err := server.New(cfg.Server, server.Deps{
		Logger:      logger,
		Router:      deps.router,
		Broadcaster: deps.broadcaster,
		Bus:         deps.busConn,
		Extractor:   deps.extractor,
		Boards:      deps.boards,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info(ctx, "Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("events_endpoint", "/v1/events"),
		zap.String("metrics_endpoint", "/metrics"))

	// Start server (blocks until context cancellation)
	return srv.Start(ctx)
}

// dependencies holds all infrastructure dependencies.
type dependencies struct {
	busServer   *natsserver.Server
	busConn     *nats.Conn
	broadcaster *mailctx.Broadcaster
	router      *router.Router
	extractor   *extraction.Extractor
	boards      *board.Client
	logger      *logging.Logger
}

// Close releases all infrastructure resources.
func (d *dependencies) Close() {
	if d.busConn != nil {
		d.busConn.Close()
	}
	if d.busServer != nil {
		d.busServer.Shutdown()
		d.busServer.WaitForShutdown()
	}
	if d.logger != nil {
		_ = d.logger.Sync() // Best-effort sync
	}
}

// initLogger builds the structured logger from the daemon config.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	if cfg.Log.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
		}
		logCfg.Level = level
	}
	if cfg.Log.Format != "" {
		logCfg.Format = cfg.Log.Format
	}
	logCfg.Output.OTEL = cfg.Log.OTEL

	return logging.NewLogger(logCfg, nil)
}

// initDependencies wires the full dependency graph.
//
// The bus connection comes first since both the bridge and the
// broadcaster ride on it. Extraction and board clients are optional;
// they stay nil when their API keys are not configured and the server
// answers 503 on the corresponding routes.
func initDependencies(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*dependencies, error) {
	busServer, busConn, err := connectBus(cfg.Bus, logger)
	if err != nil {
		return nil, err
	}

	deps := &dependencies{
		busServer: busServer,
		busConn:   busConn,
		logger:    logger,
	}

	bridgeClient, err := bridge.New(busConn, logger)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create bridge client: %w", err)
	}

	store, err := tokenstore.NewFileStore(cfg.Auth.TokenPath)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	controller, err := auth.NewController(bridgeClient, store, cfg.Auth, logger)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create auth controller: %w", err)
	}

	resolver, err := mailctx.NewScriptResolver(bridgeClient)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create thread resolver: %w", err)
	}

	broadcaster, err := mailctx.NewBroadcaster(resolver, busConn, logger)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create context broadcaster: %w", err)
	}
	deps.broadcaster = broadcaster

	rt, err := router.New(broadcaster, controller, logger)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create message router: %w", err)
	}
	deps.router = rt

	if cfg.Extraction.APIKey != "" {
		extractor, err := extraction.New(cfg.Extraction, logger)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to create extractor: %w", err)
		}
		deps.extractor = extractor
	} else {
		logger.Warn(ctx, "Extraction API key not configured, /v1/extract disabled")
	}

	if cfg.Board.APIKey != "" {
		boards, err := board.NewClient(cfg.Board, logger)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to create board client: %w", err)
		}
		deps.boards = boards
	} else {
		logger.Warn(ctx, "Board API key not configured, /v1/board/upsert disabled")
	}

	return deps, nil
}

// connectBus starts an in-process NATS server when the embedded bus is
// enabled, otherwise connects to an external one.
func connectBus(cfg config.BusConfig, logger *logging.Logger) (*natsserver.Server, *nats.Conn, error) {
	if cfg.Embedded {
		opts := &natsserver.Options{
			Host:   "127.0.0.1",
			Port:   -1, // Random port
			NoLog:  true,
			NoSigs: true,
		}

		srv, err := natsserver.NewServer(opts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create embedded bus: %w", err)
		}

		go srv.Start()

		if !srv.ReadyForConnections(5 * time.Second) {
			srv.Shutdown()
			return nil, nil, fmt.Errorf("embedded bus not ready")
		}

		nc, err := nats.Connect(srv.ClientURL())
		if err != nil {
			srv.Shutdown()
			return nil, nil, fmt.Errorf("failed to connect to embedded bus: %w", err)
		}

		logger.Info(context.Background(), "Embedded bus started", zap.String("url", srv.ClientURL()))
		return srv, nc, nil
	}

	nc, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to bus at %s: %w", cfg.URL, err)
	}

	logger.Info(context.Background(), "Connected to bus", zap.String("url", cfg.URL))
	return nil, nc, nil
}
