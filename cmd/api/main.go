// Command api is the Rosterdex API server.
//
// Usage:
//
//	rosterdex-api
//	ROSTERDEX_API_PORT=8080 rosterdex-api
//	ROSTERDEX_DB_DRIVER=sqlite ROSTERDEX_SQLITE_PATH=rosters.db rosterdex-api

// @title Rosterdex API
// @version 1.0.0
// @description Roster builder over the PokeAPI species catalog: per-session catalog filtering plus owner-scoped roster editing and persistence.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @license.name MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/albapepper/rosterdex/internal/api"
	"github.com/albapepper/rosterdex/internal/api/handler"
	"github.com/albapepper/rosterdex/internal/auth"
	"github.com/albapepper/rosterdex/internal/config"
	"github.com/albapepper/rosterdex/internal/db"
	"github.com/albapepper/rosterdex/internal/filter"
	"github.com/albapepper/rosterdex/internal/logging"
	"github.com/albapepper/rosterdex/internal/maintenance"
	"github.com/albapepper/rosterdex/internal/metrics"
	"github.com/albapepper/rosterdex/internal/provider/pokeapi"
	"github.com/albapepper/rosterdex/internal/repository/rosters"
	"github.com/albapepper/rosterdex/internal/session"

	_ "github.com/albapepper/rosterdex/docs" // swagger docs
)

const version = "1.0.0"

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("Connecting to database...", "driver", cfg.DatabaseDriver)
	database, err := db.Open(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
		logger.Info("Database migrated", "dialect", database.Dialect)
	}

	m := metrics.New()
	catalogClient := pokeapi.NewClient(pokeapi.Options{
		BaseURL:           cfg.CatalogBaseURL,
		RequestsPerMinute: cfg.CatalogRequestsPerMinute,
		Timeout:           cfg.CatalogTimeout,
		PageSize:          cfg.CatalogPageSize,
		Logger:            logger,
		Metrics:           m,
	})
	store := rosters.FromDB(database)

	sessions := session.NewRegistry(catalogClient, store, session.Options{
		IdleTimeout: cfg.SessionIdleTimeout,
		Filter: filter.Options{
			Concurrency:   cfg.CatalogConcurrency,
			MaxGeneration: cfg.CatalogMaxGeneration,
			Logger:        logger,
			Metrics:       m,
		},
		Logger:  logger,
		Metrics: m,
	})
	defer sessions.CloseAll()

	// Background tickers: idle session expiry and a database liveness probe.
	go maintenance.Start(ctx, []maintenance.Task{
		maintenance.SessionSweep(sessions, cfg.SessionSweepInterval, logger),
		maintenance.DatabaseProbe(database, cfg.DBProbeInterval, cfg.DBProbeTimeout),
	}, logger)

	router := api.NewRouter(cfg, api.Deps{
		Handler: handler.Deps{
			Catalog:  catalogClient,
			Store:    store,
			Sessions: sessions,
			DB:       database,
			Logger:   logger,
			Version:  version,
		},
		Auth:    auth.NewIssuer(cfg.SigningSecret(), cfg.JWTIssuer, cfg.TokenTTL),
		Metrics: m,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Rosterdex API",
			"addr", srv.Addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped", "open_sessions", sessions.Len())
}
