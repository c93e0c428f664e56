package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/appstrap/internal/foundation/errors"
	"git.home.luguber.info/inful/appstrap/internal/vcs"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-based checkpoint store.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.CheckpointError("could not open checkpoint database").
			WithCause(err).
			WithContext("path", dbPath).
			Build()
	}
	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, errors.CheckpointError("failed to initialize checkpoint schema").
			WithCause(err).
			WithContext("path", dbPath).
			Build()
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		step TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		run_id TEXT NOT NULL,
		completed_at INTEGER NOT NULL,
		seq INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS commits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		step TEXT NOT NULL,
		message TEXT NOT NULL,
		hash TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		files TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_commits_run_id ON commits(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record marks rec.Step as completed and journals the commit in one transaction.
func (s *SQLiteStore) Record(ctx context.Context, runID string, rec vcs.CommitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := json.Marshal(rec.FilesChanged)
	if err != nil {
		return errors.CheckpointError("failed to marshal changed files").WithCause(err).Build()
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.CheckpointError("failed to begin checkpoint transaction").WithCause(err).Build()
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO checkpoints (step, hash, run_id, completed_at, seq)
		 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM checkpoints))
		 ON CONFLICT(step) DO UPDATE SET hash = excluded.hash, run_id = excluded.run_id,
		 completed_at = excluded.completed_at, seq = excluded.seq`,
		rec.Step, rec.Hash, runID, ts.UnixNano(),
	)
	if err != nil {
		return errors.CheckpointError("failed to record checkpoint").
			WithCause(err).
			WithContext("step", rec.Step).
			Build()
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO commits (run_id, step, message, hash, timestamp, files) VALUES (?, ?, ?, ?, ?, ?)",
		runID, rec.Step, rec.Message, rec.Hash, ts.UnixNano(), string(files),
	)
	if err != nil {
		return errors.CheckpointError("failed to journal commit").
			WithCause(err).
			WithContext("step", rec.Step).
			Build()
	}

	if err := tx.Commit(); err != nil {
		return errors.CheckpointError("failed to commit checkpoint transaction").WithCause(err).Build()
	}
	return nil
}

// Completed looks up the checkpoint for step.
func (s *SQLiteStore) Completed(ctx context.Context, step string) (Checkpoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cp Checkpoint
	var completed int64
	err := s.db.QueryRowContext(ctx,
		"SELECT step, hash, run_id, completed_at FROM checkpoints WHERE step = ?", step,
	).Scan(&cp.Step, &cp.Hash, &cp.RunID, &completed)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, errors.CheckpointError("failed to query checkpoint").
			WithCause(err).
			WithContext("step", step).
			Build()
	}
	cp.CompletedAt = time.Unix(0, completed)
	return cp, true, nil
}

// List returns every checkpoint ordered by completion.
func (s *SQLiteStore) List(ctx context.Context) ([]Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT step, hash, run_id, completed_at FROM checkpoints ORDER BY seq",
	)
	if err != nil {
		return nil, errors.CheckpointError("failed to query checkpoints").WithCause(err).Build()
	}
	defer rows.Close()

	var out []Checkpoint
	for rows.Next() {
		var cp Checkpoint
		var completed int64
		if err := rows.Scan(&cp.Step, &cp.Hash, &cp.RunID, &completed); err != nil {
			return nil, errors.CheckpointError("failed to scan checkpoint row").WithCause(err).Build()
		}
		cp.CompletedAt = time.Unix(0, completed)
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.CheckpointError("failed to iterate checkpoint rows").WithCause(err).Build()
	}
	return out, nil
}

// Journal returns the commits recorded under runID.
func (s *SQLiteStore) Journal(ctx context.Context, runID string) ([]vcs.CommitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT step, message, hash, timestamp, files FROM commits WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, errors.CheckpointError("failed to query commit journal").WithCause(err).Build()
	}
	defer rows.Close()

	var out []vcs.CommitRecord
	for rows.Next() {
		var rec vcs.CommitRecord
		var ts int64
		var files sql.NullString
		if err := rows.Scan(&rec.Step, &rec.Message, &rec.Hash, &ts, &files); err != nil {
			return nil, errors.CheckpointError("failed to scan commit row").WithCause(err).Build()
		}
		rec.Timestamp = time.Unix(0, ts)
		if files.Valid && files.String != "" {
			if err := json.Unmarshal([]byte(files.String), &rec.FilesChanged); err != nil {
				return nil, errors.CheckpointError("failed to unmarshal changed files").WithCause(err).Build()
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.CheckpointError("failed to iterate commit rows").WithCause(err).Build()
	}
	return out, nil
}

// Clear deletes all checkpoints.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM checkpoints"); err != nil {
		return errors.CheckpointError("failed to clear checkpoints").WithCause(err).Build()
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
