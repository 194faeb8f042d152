// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/coffersys/coffer/internal/config"
	"github.com/coffersys/coffer/internal/database"
)

// initializeDatabases opens the runs database and applies its schema
func initializeDatabases(cfg *config.Config, log zerolog.Logger) (*database.DB, error) {
	runsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "runs.db"),
		Profile: database.ProfileStandard,
		Name:    "runs",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize runs database: %w", err)
	}

	if err := runsDB.Migrate(); err != nil {
		runsDB.Close()
		return nil, fmt.Errorf("failed to migrate runs database: %w", err)
	}

	log.Info().
		Str("path", runsDB.Path()).
		Str("profile", string(runsDB.Profile())).
		Msg("Runs database ready")

	return runsDB, nil
}
