// Package store persists sweep manifests to SQLite, so past sweeps can be
// listed and inspected after the process exits.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iot-trust/simsweep/internal/sweep"
)

// SweepRecord is one persisted sweep invocation.
type SweepRecord struct {
	ID          int64           `json:"id"`
	SweepID     string          `json:"sweep_id"`
	ResultsRoot string          `json:"results_root"`
	Dimensions  json.RawMessage `json:"dimensions"`
	FixedParams json.RawMessage `json:"fixed_params"`
	Status      string          `json:"status"`
	Cancelled   bool            `json:"cancelled"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// ResultRecord is one persisted grid cell outcome.
type ResultRecord struct {
	ID              int64   `json:"id"`
	SweepID         string  `json:"sweep_id"`
	ArtifactPrefix  string  `json:"artifact_prefix"`
	Behaviour       string  `json:"behaviour"`
	Eviction        string  `json:"eviction_strategy"`
	Status          string  `json:"status"`
	ExitCode        int     `json:"exit_code"`
	Message         string  `json:"message,omitempty"`
	LogPath         string  `json:"log_path"`
	MetricsPath     string  `json:"metrics_path"`
	StartedAt       time.Time
	DurationSeconds float64 `json:"duration_seconds"`
}

// Store wraps the sweep database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sweep database at path and applies
// the connection pragmas.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", p, err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for migrations.
func (s *Store) DB() *sql.DB { return s.db }

// CreateSweep inserts a sweep record when a sweep starts.
func (s *Store) CreateSweep(sweepID, resultsRoot string, grid *sweep.Grid, startedAt time.Time) error {
	dims, err := json.Marshal(grid.Registry.All())
	if err != nil {
		return fmt.Errorf("marshal dimensions: %w", err)
	}
	fixed, err := json.Marshal(grid.Fixed)
	if err != nil {
		return fmt.Errorf("marshal fixed params: %w", err)
	}

	query := `
		INSERT INTO sweeps (sweep_id, results_root, dimensions, fixed_params, status, started_at)
		VALUES (?, ?, ?, ?, 'running', ?)
	`
	err = retryOnBusy(func() error {
		_, err := s.db.Exec(query, sweepID, resultsRoot, string(dims), string(fixed),
			startedAt.UTC().Format(time.RFC3339))
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting sweep %s: %w", sweepID, err)
	}
	return nil
}

// RecordResult inserts one cell outcome under a sweep.
func (s *Store) RecordResult(sweepID string, res sweep.RunResult) error {
	query := `
		INSERT INTO run_results (
			sweep_id, artifact_prefix, behaviour, eviction_strategy, status,
			exit_code, message, log_path, metrics_path, started_at, duration_seconds
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			sweepID,
			res.Config.ArtifactPrefix(),
			res.Config.Value(sweep.DimBehaviour),
			res.Config.Value(sweep.DimEviction),
			string(res.Status),
			res.ExitCode,
			res.Message,
			res.LogPath,
			res.MetricsPath,
			res.StartedAt.UTC().Format(time.RFC3339),
			res.Duration.Seconds(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("inserting result for %s: %w", sweepID, err)
	}
	return nil
}

// FinishSweep marks a sweep complete or cancelled and records all of its
// cell outcomes.
func (s *Store) FinishSweep(m sweep.Manifest) error {
	for _, res := range m.Results {
		if err := s.RecordResult(m.SweepID, res); err != nil {
			return err
		}
	}

	status := "complete"
	if m.Cancelled {
		status = "cancelled"
	}
	query := `UPDATE sweeps SET status = ?, cancelled = ?, completed_at = ? WHERE sweep_id = ?`
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(query, status, m.Cancelled,
			m.CompletedAt.UTC().Format(time.RFC3339), m.SweepID)
		return err
	})
	if err != nil {
		return fmt.Errorf("finishing sweep %s: %w", m.SweepID, err)
	}
	return nil
}

// GetSweep returns a single sweep record.
func (s *Store) GetSweep(sweepID string) (*SweepRecord, error) {
	query := `
		SELECT id, sweep_id, results_root, dimensions, fixed_params, status, cancelled, started_at, completed_at
		FROM sweeps WHERE sweep_id = ?
	`
	rec, err := scanSweep(s.db.QueryRow(query, sweepID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading sweep %s: %w", sweepID, err)
	}
	return rec, nil
}

// ListSweeps returns all sweep records, newest first.
func (s *Store) ListSweeps(limit int) ([]SweepRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, sweep_id, results_root, dimensions, fixed_params, status, cancelled, started_at, completed_at
		FROM sweeps ORDER BY id DESC LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sweeps: %w", err)
	}
	defer rows.Close()

	var out []SweepRecord
	for rows.Next() {
		rec, err := scanSweep(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sweep: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Results returns the cell outcomes for a sweep in insertion order.
func (s *Store) Results(sweepID string) ([]ResultRecord, error) {
	query := `
		SELECT id, sweep_id, artifact_prefix, behaviour, eviction_strategy, status,
		       exit_code, message, log_path, metrics_path, started_at, duration_seconds
		FROM run_results WHERE sweep_id = ? ORDER BY id
	`
	rows, err := s.db.Query(query, sweepID)
	if err != nil {
		return nil, fmt.Errorf("listing results for %s: %w", sweepID, err)
	}
	defer rows.Close()

	var out []ResultRecord
	for rows.Next() {
		var r ResultRecord
		var startedAt string
		if err := rows.Scan(&r.ID, &r.SweepID, &r.ArtifactPrefix, &r.Behaviour, &r.Eviction,
			&r.Status, &r.ExitCode, &r.Message, &r.LogPath, &r.MetricsPath,
			&startedAt, &r.DurationSeconds); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
			r.StartedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSweep(row rowScanner) (*SweepRecord, error) {
	var rec SweepRecord
	var dims, fixed, startedAt string
	var completedAt sql.NullString

	if err := row.Scan(&rec.ID, &rec.SweepID, &rec.ResultsRoot, &dims, &fixed,
		&rec.Status, &rec.Cancelled, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	rec.Dimensions = json.RawMessage(dims)
	rec.FixedParams = json.RawMessage(fixed)
	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		rec.StartedAt = t
	}
	if completedAt.Valid {
		if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
			rec.CompletedAt = &t
		}
	}
	return &rec, nil
}

// retryOnBusy retries f when SQLite reports lock contention. Other errors
// fail immediately.
func retryOnBusy(f func() error) error {
	const maxAttempts = 5
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = f()
		if err == nil {
			return nil
		}
		msg := err.Error()
		if !strings.Contains(msg, "database is locked") && !strings.Contains(msg, "SQLITE_BUSY") {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return err
}
