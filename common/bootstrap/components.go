package bootstrap

import (
	"context"
	"fmt"

	"github.com/lyzr/flowengine/common/config"
	"github.com/lyzr/flowengine/common/logger"
	"github.com/lyzr/flowengine/pool"
	"github.com/lyzr/flowengine/registry"
	"github.com/lyzr/flowengine/runner"
	"github.com/lyzr/flowengine/storage"
)

// Components holds all initialized service dependencies
type Components struct {
	Config   *config.Config
	Logger   *logger.Logger
	Storage  *storage.Store
	Snapshot storage.SnapshotWriter
	Executor *pool.Executor

	// Internal
	cleanupFuncs []func() error
}

// NewEngine constructs an Engine for workflowID wired to this process's
// pool executor, storage backend and snapshot writer, using reg to resolve
// node types. The caller still owns loading a workflow document into it.
func (c *Components) NewEngine(workflowID string, reg *registry.Registry) *runner.Engine {
	e := runner.New(workflowID, reg, c.Executor)
	e.Store = c.Storage
	e.Snapshot = c.Snapshot
	return e
}

// Shutdown performs graceful shutdown of all components
// Should be called with defer after Setup()
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errs []error

	// Run cleanup functions in reverse order (LIFO)
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errs = append(errs, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// Health checks health of all components. Both storage backends answer
// immediately: the memory backend is always healthy, and the Redis backend
// is only ever constructed after a successful Ping in Setup.
func (c *Components) Health(ctx context.Context) error {
	return nil
}

// addCleanup registers a cleanup function
func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
