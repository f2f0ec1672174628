// Package engine expands root objects into a dependency forest, one level at
// a time, resolving every object of a level in parallel.
package engine

import (
	"errors"
	"log/slog"
	"runtime"

	"github.com/leapstack-labs/dbrefs/pkg/core"
)

// UsageFinder resolves the direct usages of one object.
// Implementations must be safe for concurrent use.
type UsageFinder interface {
	FindUsages(obj *core.RefObject) ([]*core.RefObject, error)
}

// Engine drives the level-synchronized traversal.
type Engine struct {
	finder   UsageFinder
	workers  int
	maxDepth int
	logger   *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// Resolver finds usages (required)
	Resolver UsageFinder
	// Workers bounds parallel resolutions per level; 0 uses GOMAXPROCS
	Workers int
	// MaxDepth stops the traversal after that many levels; 0 is unlimited
	MaxDepth int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// ErrNoResolver is returned by New when Config.Resolver is nil.
var ErrNoResolver = errors.New("engine: resolver is required")

// New creates a new engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Resolver == nil {
		return nil, ErrNoResolver
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	logger.Debug("initializing engine", "workers", workers, "max_depth", cfg.MaxDepth)

	return &Engine{
		finder:   cfg.Resolver,
		workers:  workers,
		maxDepth: max(cfg.MaxDepth, 0),
		logger:   logger,
	}, nil
}

// Workers returns the effective per-level parallelism.
func (e *Engine) Workers() int {
	return e.workers
}
