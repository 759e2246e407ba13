// Package history persists a summary of every qasuite run in a local SQLite
// database so that trends can be listed with `qasuite history`.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/qasuite/internal/models"
)

// timeLayout is fixed width so that TEXT columns sort chronologically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunRecord is one row of the runs table
type RunRecord struct {
	RunID       string
	Project     string
	Timestamp   string // Run timestamp as used in file names
	StartedAt   time.Time
	Duration    time.Duration
	Passed      int
	Total       int
	SuccessRate float64
	Status      string
	FailedTools []string // Quality and security tools that failed
	ReportPath  string
}

// InvocationRecord is one row of the invocations table
type InvocationRecord struct {
	RunID       string
	Category    string
	Tool        string
	Description string
	Command     string
	Outcome     models.Outcome
	ExitCode    *int
	Duration    time.Duration
}

// Store manages the SQLite run history database
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the history database and applies migrations
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases consistent across queries
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return store, nil
}

// execWithRetry retries a statement with exponential backoff while the database is locked
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores a run and its invocations in a single transaction
func (s *Store) RecordRun(ctx context.Context, run *RunRecord, invocations []models.CategorizedInvocation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, project, timestamp, started_at, duration_ms, passed, total, success_rate, status, failed_tools, report_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.Project,
		run.Timestamp,
		run.StartedAt.UTC().Format(timeLayout),
		run.Duration.Milliseconds(),
		run.Passed,
		run.Total,
		run.SuccessRate,
		run.Status,
		strings.Join(run.FailedTools, ","),
		run.ReportPath,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, inv := range invocations {
		var exitCode sql.NullInt64
		if inv.Result.ExitCode != nil {
			exitCode = sql.NullInt64{Int64: int64(*inv.Result.ExitCode), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO invocations
			(run_id, category, tool, description, command, outcome, exit_code, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID,
			inv.Category,
			inv.Tool,
			inv.Result.Description,
			inv.Result.CommandLine(),
			string(inv.Result.Outcome),
			exitCode,
			inv.Result.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("insert invocation %s/%s: %w", inv.Category, inv.Tool, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first. An empty project matches all projects.
func (s *Store) RecentRuns(ctx context.Context, project string, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT id, project, timestamp, started_at, duration_ms, passed, total, success_rate, status, failed_tools, report_path
		FROM runs
		WHERE (? = '' OR project = ?)
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, project, project, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		var (
			r           RunRecord
			startedAt   string
			durationMs  int64
			failedTools string
		)
		if err := rows.Scan(&r.RunID, &r.Project, &r.Timestamp, &startedAt, &durationMs,
			&r.Passed, &r.Total, &r.SuccessRate, &r.Status, &failedTools, &r.ReportPath); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		if failedTools != "" {
			r.FailedTools = strings.Split(failedTools, ",")
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Invocations returns the recorded invocations of a run in execution order
func (s *Store) Invocations(ctx context.Context, runID string) ([]*InvocationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, category, tool, description, command, outcome, exit_code, duration_ms
		FROM invocations
		WHERE run_id = ?
		ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer rows.Close()

	var out []*InvocationRecord
	for rows.Next() {
		var (
			rec        InvocationRecord
			outcome    string
			exitCode   sql.NullInt64
			durationMs int64
		)
		if err := rows.Scan(&rec.RunID, &rec.Category, &rec.Tool, &rec.Description, &rec.Command, &outcome, &exitCode, &durationMs); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		rec.Outcome = models.Outcome(outcome)
		if exitCode.Valid {
			code := int(exitCode.Int64)
			rec.ExitCode = &code
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocations: %w", err)
	}
	return out, nil
}

// RunCount returns the number of recorded runs for project (all projects when empty)
func (s *Store) RunCount(ctx context.Context, project string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE (? = '' OR project = ?)`, project, project).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return count, nil
}
