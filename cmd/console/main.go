// Console Core - Data Quality Ops Console
//
// This is the main entry point for the Console Core process: the local
// companion that owns session custody for the data-quality dashboard.
// It holds the tokens, talks to the remote auth backend, persists the
// session across restarts, and serves the role-gated shell the UI
// mounts its views through.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/driftwatch/console-core/migrations"

	"github.com/driftwatch/console-core/internal/backend"
	"github.com/driftwatch/console-core/internal/infrastructure/config"
	"github.com/driftwatch/console-core/internal/infrastructure/database"
	"github.com/driftwatch/console-core/internal/infrastructure/logging"
	"github.com/driftwatch/console-core/internal/session"
	"github.com/driftwatch/console-core/internal/shell"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Console Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the session store database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Session.Store.Path,
		WALMode:     cfg.Session.Store.WALMode,
		BusyTimeout: cfg.Session.Store.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Session.Store.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Backend API client
	apiClient := backend.NewClient(backend.Config{
		BaseURL:       cfg.Backend.BaseURL,
		Timeout:       cfg.GetBackendTimeout(),
		RetryAttempts: cfg.Backend.RetryAttempts,
	}, log)
	log.Info("backend client initialised", "base_url", cfg.Backend.BaseURL)

	// Session manager
	manager := session.NewManager(session.Config{
		Store:     session.NewSQLiteStore(db.DB),
		API:       apiClient,
		Logger:    log,
		ClockSkew: cfg.GetClockSkew(),
	})

	// Startup resolution: restore or refresh the persisted session before
	// the shell serves its first request. A dead session resolves to
	// unauthenticated; only a storage failure aborts startup.
	if err := manager.Resolve(ctx); err != nil {
		return fmt.Errorf("resolving session: %w", err)
	}
	log.Info("session resolved", "state", manager.State())

	// Shell server
	server, err := shell.New(shell.Deps{
		Config:           cfg.Shell,
		Logger:           log,
		Manager:          manager,
		DemoRoleOverride: cfg.Demo.RoleOverride,
		Version:          version,
	})
	if err != nil {
		return fmt.Errorf("creating shell server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting shell server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing shell server", "error", closeErr)
		}
	}()
	log.Info("shell server started", "host", cfg.Shell.Host, "port", cfg.Shell.Port)

	// Verify everything came up healthy
	if err := healthCheck(ctx, db, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Shell server
	// 2. Database

	log.Info("Console Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CONSOLE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CONSOLE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure components are healthy.
func healthCheck(ctx context.Context, db *database.DB, server *shell.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	return nil
}
