// Package state records the history of reference searches in SQLite.
// The schema is managed by embedded goose migrations.
package state

import (
	"context"
	"time"
)

// Run is one recorded search.
type Run struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Roots       []string      `json:"roots"`
	Kinds       []string      `json:"kinds"`
	Exact       bool          `json:"exact"`
	Nesting     int           `json:"nesting"`
	MaxChildren int           `json:"max_children"`
	Expanded    int           `json:"expanded"`
	Revisited   int           `json:"revisited"`
	Truncated   bool          `json:"truncated"`
	Nodes       int           `json:"nodes"`
	Links       int           `json:"links"`
	DeadEnds    int           `json:"dead_ends"`
	TreeFile    string        `json:"tree_file,omitempty"`
	GraphFile   string        `json:"graph_file,omitempty"`
	Failures    []Failure     `json:"failures,omitempty"`
}

// Failure is a resolution failure recorded with its run.
type Failure struct {
	Object string `json:"object"`
	Error  string `json:"error"`
}

// Store persists runs.
type Store interface {
	// RecordRun stores run, assigning an ID and start time when unset.
	RecordRun(ctx context.Context, run *Run) error
	// GetRun returns a run with its failures.
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns the most recent runs first, at most limit (0 = all).
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	// Close releases the store.
	Close() error
}
