// Package checkpoint persists which pipeline steps have completed, so an
// interrupted run can resume, together with a journal of every commit made.
package checkpoint

import (
	"context"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/appstrap/internal/vcs"
)

// FileName is the database file created inside the repository's git dir.
const FileName = "appstrap.db"

// Checkpoint marks one completed step.
type Checkpoint struct {
	Step        string
	Hash        string
	RunID       string
	CompletedAt time.Time
}

// Store defines the interface for persisting and retrieving checkpoints.
type Store interface {
	// Record marks the step of rec as completed and appends rec to the journal.
	Record(ctx context.Context, runID string, rec vcs.CommitRecord) error

	// Completed reports whether step has a checkpoint.
	Completed(ctx context.Context, step string) (Checkpoint, bool, error)

	// List returns all checkpoints in completion order.
	List(ctx context.Context) ([]Checkpoint, error)

	// Journal returns the commits recorded by one run, oldest first.
	Journal(ctx context.Context, runID string) ([]vcs.CommitRecord, error)

	// Clear removes all checkpoints. The journal is kept.
	Clear(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// NewRunID returns a fresh identifier for one pipeline run.
func NewRunID() string {
	return uuid.NewString()
}
