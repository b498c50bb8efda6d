// Package storage persists the local run log in SQLite: the monotonic REC
// counter and one row per reconciliation run started from this console.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/ledger-recon/internal/common"
	"github.com/Veraticus/ledger-recon/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteRunLog implements the RunLog interface using SQLite.
type SQLiteRunLog struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteRunLog opens (or creates) the run log database.
func NewSQLiteRunLog(dbPath string) (*SQLiteRunLog, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteRunLog{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteRunLog) Close() error {
	return s.db.Close()
}

// NextRecID increments the run counter and returns the new display ID
// (REC-001, REC-002, ...). The counter never resets and never renumbers
// existing runs, unlike the positional IDs shown for server history.
func (s *SQLiteRunLog) NextRecID(ctx context.Context) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE rec_counter SET value = value + 1 WHERE id = 1`); err != nil {
		return "", fmt.Errorf("failed to increment run counter: %w", err)
	}

	var value int
	if err := tx.QueryRowContext(ctx, `SELECT value FROM rec_counter WHERE id = 1`).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to read run counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run counter: %w", err)
	}

	return fmt.Sprintf("REC-%03d", value), nil
}

// SaveRun records a newly started run.
func (s *SQLiteRunLog) SaveRun(ctx context.Context, run model.RunIdentity) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(run.RunToken, "runToken"); err != nil {
		return err
	}
	if err := validateString(run.RecID, "recID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_token, rec_id, period_start, period_end, simulation, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunToken, run.RecID, run.PeriodStart, run.PeriodEnd, run.Simulation, string(model.StatusStarting))
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// UpdateRunStatus records the latest observed status for a run.
func (s *SQLiteRunLog) UpdateRunStatus(ctx context.Context, runToken string, status model.Status) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runToken, "runToken"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE run_token = ?`,
		string(status), runToken)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run %s: %w", runToken, common.ErrNotFound)
	}
	return nil
}

// ListRuns returns up to limit locally started runs, newest first.
func (s *SQLiteRunLog) ListRuns(ctx context.Context, limit int) ([]model.LocalRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_token, rec_id, period_start, period_end, simulation, status, created_at
		FROM runs
		ORDER BY created_at DESC, rec_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.LocalRun
	for rows.Next() {
		var (
			run       model.LocalRun
			status    string
			createdAt time.Time
		)
		if err := rows.Scan(&run.RunToken, &run.RecID, &run.PeriodStart, &run.PeriodEnd,
			&run.Simulation, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Status = model.Status(status)
		run.CreatedAt = createdAt
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}
