package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T) *SyncLog {
	t.Helper()
	log, err := NewSyncLog(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	require.NoError(t, log.Migrate(context.Background()))
	return log
}

func TestRecordAndListRuns(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()

	started := time.Date(2025, time.March, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, log.RecordRun(ctx, Run{
		Snapshot:        "/home/jan/flat.json",
		Account:         42,
		StartedAt:       started,
		FinishedAt:      started.Add(3 * time.Second),
		FetchedCharges:  10,
		FetchedPayments: 8,
		NewCharges:      1,
		NewPayments:     2,
	}))
	// A failed login never learns the account number; the snapshot path
	// still identifies the run.
	require.NoError(t, log.RecordRun(ctx, Run{
		Snapshot:   "/home/jan/garage.json",
		StartedAt:  started.Add(time.Minute),
		FinishedAt: started.Add(time.Minute + time.Second),
		Error:      "login: authentication failed",
	}))

	runs, err := log.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, "/home/jan/garage.json", runs[0].Snapshot)
	assert.Zero(t, runs[0].Account)
	assert.Equal(t, "login: authentication failed", runs[0].Error)

	assert.Equal(t, "/home/jan/flat.json", runs[1].Snapshot)
	assert.Equal(t, int64(42), runs[1].Account)
	assert.Empty(t, runs[1].Error)
	assert.Equal(t, 10, runs[1].FetchedCharges)
	assert.Equal(t, 1, runs[1].NewCharges)
	assert.True(t, runs[1].StartedAt.Equal(started))
}

func TestRecentRunsLimit(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, log.RecordRun(ctx, Run{
			Account:    int64(i),
			StartedAt:  time.Now(),
			FinishedAt: time.Now(),
		}))
	}

	runs, err := log.RecentRuns(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
	assert.Equal(t, int64(4), runs[0].Account)
}

func TestRecentRunsEmpty(t *testing.T) {
	log := newTestLog(t)

	runs, err := log.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestMigrateIsIdempotent(t *testing.T) {
	log := newTestLog(t)
	require.NoError(t, log.Migrate(context.Background()))
}

func TestMigrateUpgradesVersionOneDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		fetched_charges INTEGER NOT NULL DEFAULT 0,
		fetched_payments INTEGER NOT NULL DEFAULT 0,
		new_charges INTEGER NOT NULL DEFAULT 0,
		new_payments INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO runs (account, started_at, finished_at)
		VALUES (42, '2025-03-01T06:00:00Z', '2025-03-01T06:00:03Z')`)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	log, err := NewSyncLog(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	require.NoError(t, log.Migrate(ctx))

	// Pre-existing rows survive with an empty snapshot path.
	runs, err := log.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(42), runs[0].Account)
	assert.Empty(t, runs[0].Snapshot)

	require.NoError(t, log.RecordRun(ctx, Run{
		Snapshot:   "/home/jan/flat.json",
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
	}))
}
