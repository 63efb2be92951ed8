package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one batch execution
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Requested  int
	Processed  int
	Error      string
}

// Attempt is one recorded connection attempt
type Attempt struct {
	ID          int64
	RunID       string
	ProfileURL  string
	Outcome     string
	Status      string
	AttemptedAt time.Time
}

// Store is the audit journal of past runs. Nothing in a run reads it back.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite journal at dbPath
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single writer keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		requested INTEGER NOT NULL,
		processed INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS connection_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		profile_url TEXT NOT NULL,
		outcome TEXT NOT NULL,
		status TEXT NOT NULL,
		attempted_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_connection_results_run ON connection_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_connection_results_outcome ON connection_results(outcome);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records the beginning of a run
func (s *Store) StartRun(ctx context.Context, run Run) error {
	query := `
		INSERT INTO runs (id, started_at, requested)
		VALUES (?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query, run.ID, run.StartedAt, run.Requested); err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// RecordAttempt appends one connection attempt to a run
func (s *Store) RecordAttempt(ctx context.Context, a Attempt) error {
	query := `
		INSERT INTO connection_results (run_id, profile_url, outcome, status, attempted_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, a.RunID, a.ProfileURL, a.Outcome, a.Status, a.AttemptedAt)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// FinishRun stores the final counters and the fatal error text, if any
func (s *Store) FinishRun(ctx context.Context, id string, processed int, runErr string, finishedAt time.Time) error {
	query := `
		UPDATE runs
		SET finished_at = ?, processed = ?, error = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, finishedAt, processed, runErr, id)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no run found with id: %s", id)
	}

	return nil
}

// RecentRuns returns the latest runs, newest first
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, started_at, finished_at, requested, processed, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var finishedAt sql.NullTime

		if err := rows.Scan(&run.ID, &run.StartedAt, &finishedAt, &run.Requested, &run.Processed, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Attempts returns the attempts of one run in insertion order
func (s *Store) Attempts(ctx context.Context, runID string) ([]Attempt, error) {
	query := `
		SELECT id, run_id, profile_url, outcome, status, attempted_at
		FROM connection_results
		WHERE run_id = ?
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.RunID, &a.ProfileURL, &a.Outcome, &a.Status, &a.AttemptedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

// GetStats returns attempt counts per outcome plus the number of runs
func (s *Store) GetStats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)

	var totalRuns int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&totalRuns); err != nil {
		return nil, err
	}
	stats["total_runs"] = totalRuns

	rows, err := s.db.QueryContext(ctx, "SELECT outcome, COUNT(*) FROM connection_results GROUP BY outcome")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		stats[outcome] = count
		stats["total_attempts"] += count
	}

	return stats, rows.Err()
}
