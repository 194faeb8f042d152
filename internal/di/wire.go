// Package di provides dependency injection wiring and initialization.
package di

import (
	"github.com/rs/zerolog"

	"github.com/coffersys/coffer/internal/config"
	"github.com/coffersys/coffer/internal/modules/layout"
	"github.com/coffersys/coffer/internal/workers"
)

// Wire initializes all dependencies and returns a fully configured container.
// This is the main entry point for dependency injection.
// Order of operations:
// 1. Open and migrate the runs database
// 2. Create repositories
// 3. Create the worker pool and services
// 4. Create background jobs
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	runsDB, err := initializeDatabases(cfg, log)
	if err != nil {
		return nil, err
	}

	container := &Container{RunsDB: runsDB}

	// Repositories
	container.RunRepo = layout.NewRepository(runsDB, log)

	// Services. Optimizer seed zero means each run draws its own seed.
	container.Pool = workers.NewPool(cfg.OptimizerWorkers)
	container.LayoutOptimizer = layout.NewCeilingLayoutOptimizer(0, log)
	container.LayoutService = layout.NewService(container.LayoutOptimizer, container.RunRepo, container.Pool, log)

	// Background jobs
	container.RetentionJob = layout.NewRetentionJob(container.LayoutService, runsDB, cfg.RunRetentionDays, log)

	log.Info().
		Int("workers", container.Pool.Size()).
		Int("retention_days", cfg.RunRetentionDays).
		Msg("Dependency injection wiring completed")

	return container, nil
}
