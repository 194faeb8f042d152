// Package main is the entry point for the Coffer ceiling layout optimization
// service. It exposes a quantum-inspired panel layout optimizer over HTTP,
// stores every completed run, and prunes old runs on a schedule.
//
// The application follows clean architecture principles:
// - Dependency injection via DI container
// - Repository pattern for data access
// - Service layer for business logic
// - HTTP handlers for API endpoints
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coffersys/coffer/internal/config"
	"github.com/coffersys/coffer/internal/di"
	"github.com/coffersys/coffer/internal/scheduler"
	"github.com/coffersys/coffer/internal/server"
	"github.com/coffersys/coffer/pkg/logger"
)

// main orchestrates the startup sequence:
// 1. Loads configuration from environment variables (.env supported)
// 2. Initializes structured logging
// 3. Wires all dependencies via the DI container (database, repositories,
//    services, jobs)
// 4. Registers the run retention job with the cron scheduler
// 5. Starts the HTTP server
// 6. Waits for a shutdown signal and shuts down gracefully
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use a fallback logger so the configuration error is still visible
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting Coffer")

	// Wire all dependencies using the DI container
	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// Background scheduler: prune stored runs daily. The job also runs once
	// at startup so a long-stopped instance catches up immediately.
	sched := scheduler.New(log)
	if cfg.RunRetentionDays > 0 {
		if err := sched.AddJob("@daily", container.RetentionJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register retention job")
		}
		if err := sched.RunNow(container.RetentionJob); err != nil {
			log.Warn().Err(err).Msg("Initial retention run failed")
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:           log,
		RunsDB:        container.RunsDB,
		LayoutService: container.LayoutService,
		Pool:          container.Pool,
		Port:          cfg.Port,
		DevMode:       cfg.DevMode,
	})

	// Start server in a goroutine so shutdown handling below can run
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// In-flight requests get up to 10 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
