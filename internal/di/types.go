/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server and scheduler.
 */
package di

import (
	"github.com/coffersys/coffer/internal/database"
	"github.com/coffersys/coffer/internal/modules/layout"
	"github.com/coffersys/coffer/internal/workers"
)

// Container holds all dependencies for the application.
type Container struct {
	// Databases
	RunsDB *database.DB

	// Repositories
	RunRepo *layout.Repository

	// Services
	Pool            *workers.Pool
	LayoutOptimizer *layout.CeilingLayoutOptimizer
	LayoutService   *layout.Service

	// Background jobs
	RetentionJob *layout.RetentionJob
}

// Close releases held resources. The pool stops accepting work, then the WAL
// is checkpointed so a restart begins from a compact database file.
func (c *Container) Close() error {
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.RunsDB == nil {
		return nil
	}
	// Best effort; Close flushes through the driver regardless
	_ = c.RunsDB.WALCheckpoint("")
	return c.RunsDB.Close()
}
