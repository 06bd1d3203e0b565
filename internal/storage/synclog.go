// Package storage records sync run outcomes in a local SQLite database.
// The log is an operational aid for the history command; writing it never
// affects the outcome of a sync cycle.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SyncLog stores one row per completed or failed account sync cycle.
type SyncLog struct {
	db *sql.DB
}

// Run describes the outcome of one account sync cycle. Error is empty on
// success. Snapshot is the snapshot file path; it identifies the account
// even when the cycle failed before the credential was read.
type Run struct {
	StartedAt       time.Time
	FinishedAt      time.Time
	Snapshot        string
	Error           string
	ID              int64
	Account         int64
	FetchedCharges  int
	FetchedPayments int
	NewCharges      int
	NewPayments     int
}

// NewSyncLog opens (or creates) the sync log database at dbPath.
func NewSyncLog(dbPath string) (*SyncLog, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
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

	return &SyncLog{db: db}, nil
}

// Close closes the database connection.
func (l *SyncLog) Close() error {
	return l.db.Close()
}

// RecordRun appends one run to the log.
func (l *SyncLog) RecordRun(ctx context.Context, run Run) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (snapshot, account, started_at, finished_at,
			fetched_charges, fetched_payments, new_charges, new_payments, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Snapshot,
		run.Account,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.FetchedCharges,
		run.FetchedPayments,
		run.NewCharges,
		run.NewPayments,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (l *SyncLog) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, snapshot, account, started_at, finished_at,
			fetched_charges, fetched_payments, new_charges, new_payments, error
		FROM runs
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(&run.ID, &run.Snapshot, &run.Account, &started, &finished,
			&run.FetchedCharges, &run.FetchedPayments,
			&run.NewCharges, &run.NewPayments, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("failed to parse run timestamp: %w", err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
			return nil, fmt.Errorf("failed to parse run timestamp: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}
