// Command partyhub starts the room coordination server for real-time
// multiplayer party games.
//
// It supports three modes:
//  1. "serve" (default) – runs the HTTP server exposing the REST API and
//     the websocket endpoint, plus the background reconciliation monitor
//  2. "cleanup" – runs one reconciliation sweep against the store and exits
//  3. "mcp" – runs an MCP stdio server proxying admin tools to a REST API
//
// Configuration comes from PARTYHUB_-prefixed environment variables; a
// .env file is honored when present.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"partyhub/api"
	"partyhub/config"
	"partyhub/game"
	"partyhub/game/wordduel"
	"partyhub/room"
	"partyhub/store"
	"partyhub/transport/mcp"
	"partyhub/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "partyhub"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	cmd := &cli.Command{
		Name:    AppName,
		Usage:   "room coordination server for real-time multiplayer party games",
		Version: Version,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server with REST API and websocket endpoint (default)",
				Action: runServe,
			},
			{
				Name:   "cleanup",
				Usage:  "run one reconciliation sweep against the store and exit",
				Action: runCleanup,
			},
			{
				Name:  "version",
				Usage: "print the version and exit",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Printf("%s v%s\n", AppName, Version)
					return nil
				},
			},
			{
				Name:  "mcp",
				Usage: "run an MCP stdio server proxying admin tools to a REST API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "base URL of the partyhub REST API",
						Value: "http://localhost:8080",
					},
				},
				Action: runMCP,
			},
		},
		Action: runServe,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// setupLogger configures the root log15 logger and returns it.
func setupLogger(debug bool) log15.Logger {
	logger := log15.New("app", AppName)
	lvl := log15.LvlInfo
	if debug {
		lvl = log15.LvlDebug
	}
	logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(os.Stdout, log15.LogfmtFormat())))
	return logger
}

// openStore selects and opens the configured room store backend.
func openStore(ctx context.Context, cfg config.Config, logger log15.Logger) (store.RoomStore, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Info("using in-memory store")
		return store.NewMemory(), nil

	case config.BackendPostgres:
		pg, err := store.NewPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("using postgres store")
		return pg, nil

	case config.BackendBadger:
		bg, err := store.NewBadger(cfg.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		logger.Info("using badger store", "dir", cfg.BadgerDir)
		return bg, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// newRegistry builds the game adapter registry with all built-in games.
func newRegistry() *game.Registry {
	games := game.NewRegistry()
	games.Register("wordduel", wordduel.New())
	return games
}

// runServe wires the store, coordinator, hub, and monitor, then serves HTTP
// until SIGINT/SIGTERM.
func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := setupLogger(cfg.Debug)
	logger.Info("starting", "version", Version, "addr", cfg.HTTPAddr, "backend", cfg.StoreBackend)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	states := websocket.NewStateTable()
	coord := room.NewCoordinator(st, states, logger.New("module", "room"))
	hub := websocket.NewHub(coord, newRegistry(), states, logger.New("module", "websocket"))

	monitor := websocket.NewMonitor(hub, cfg.CleanupInterval, cfg.LobbyInterval, logger.New("module", "monitor"))
	go monitor.Run()
	defer monitor.Stop()

	apiServer := api.NewServer(coord, hub, monitor, logger.New("module", "api"))

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      apiServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	logger.Info("server stopped")
	return nil
}

// runCleanup performs a single store sweep without starting the server.
func runCleanup(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := setupLogger(cfg.Debug)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	coord := room.NewCoordinator(st, nil, logger.New("module", "room"))
	rooms, players, err := coord.Cleanup(ctx)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	fmt.Printf("cleaned %d rooms, %d players\n", rooms, players)
	return nil
}

// runMCP serves admin tools over MCP stdio, proxying to a running REST API.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	client := mcp.NewClient(cmd.String("url"))
	if err := client.ServeStdio(); err != nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}
