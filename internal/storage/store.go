// Package storage persists run summaries so successive rushes against the
// same target can be compared after the fact.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"apirush/internal/runner"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id     TEXT NOT NULL,
	target_url  TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	elapsed_ms  INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	cancelled   INTEGER NOT NULL,
	attempts    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS run_failures (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      INTEGER NOT NULL REFERENCES runs(id),
	request_num INTEGER NOT NULL,
	attempts    INTEGER NOT NULL,
	error       TEXT NOT NULL
);
`

// RunRecord is one persisted run summary.
type RunRecord struct {
	ID        int64
	TaskID    string
	TargetURL string
	StartedAt time.Time
	Elapsed   time.Duration
	Succeeded int
	Failed    int
	Cancelled int
	Attempts  int
}

// RunStore keeps run history in a local SQLite database.
type RunStore struct {
	db *sql.DB
}

// Open connects to the database at path, creating it and the schema as
// needed.
func Open(path string) (*RunStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &RunStore{db: db}, nil
}

// SaveRun persists the result of one run and its terminal failures,
// returning the new run id.
func (s *RunStore) SaveRun(taskID, targetURL string, startedAt time.Time, result *runner.RunResult) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (task_id, target_url, started_at, elapsed_ms, succeeded, failed, cancelled, attempts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		taskID, targetURL, startedAt, result.Elapsed.Milliseconds(),
		result.Succeeded, result.Failed, result.Cancelled, result.Attempts,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	for _, f := range result.Failures {
		if _, err := tx.Exec(
			`INSERT INTO run_failures (run_id, request_num, attempts, error) VALUES (?, ?, ?, ?)`,
			runID, f.Request, f.Attempts, f.Err.Error(),
		); err != nil {
			return 0, fmt.Errorf("failed to insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return runID, nil
}

// RecentRuns returns up to limit runs for the task, newest first. An empty
// taskID matches all tasks.
func (s *RunStore) RecentRuns(taskID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT id, task_id, target_url, started_at, elapsed_ms, succeeded, failed, cancelled, attempts
		  FROM runs`
	args := []any{}
	if taskID != "" {
		query += ` WHERE task_id = ?`
		args = append(args, taskID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var elapsedMS int64
		if err := rows.Scan(&rec.ID, &rec.TaskID, &rec.TargetURL, &rec.StartedAt,
			&elapsedMS, &rec.Succeeded, &rec.Failed, &rec.Cancelled, &rec.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FailuresForRun returns the persisted terminal failures of a run.
func (s *RunStore) FailuresForRun(runID int64) ([]runner.Failure, error) {
	rows, err := s.db.Query(
		`SELECT request_num, attempts, error FROM run_failures WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var out []runner.Failure
	for rows.Next() {
		var f runner.Failure
		var msg string
		if err := rows.Scan(&f.Request, &f.Attempts, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.Err = fmt.Errorf("%s", msg)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *RunStore) Close() error {
	return s.db.Close()
}
