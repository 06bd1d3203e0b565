package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jkowalik/billwatch/internal/engine"
	"github.com/jkowalik/billwatch/internal/model"
	"github.com/jkowalik/billwatch/internal/storage"
	"github.com/jkowalik/billwatch/internal/store"
	"github.com/jkowalik/billwatch/internal/tomojdom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// portalStub is a scripted portal session for exercising the sync loop.
type portalStub struct {
	accountID int64
	charges   []model.Charge
	payments  []model.Payment
}

func (p *portalStub) Login(_ context.Context, _ model.Credential) error { return nil }

func (p *portalStub) AccountID(_ context.Context) (int64, error) { return p.accountID, nil }

func (p *portalStub) FetchRecords(_ context.Context, _ int64) ([]model.Charge, []model.Payment, error) {
	return p.charges, p.payments, nil
}

func (p *portalStub) DownloadDocument(_ context.Context, _ int64, charge model.Charge) (*tomojdom.Document, error) {
	return &tomojdom.Document{
		Filename:    charge.Title + ".pdf",
		ContentType: "application/pdf",
		Data:        []byte("pdf"),
	}, nil
}

func (p *portalStub) Close() {}

func TestSyncAllContinuesPastFailingAccount(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	// The first snapshot is missing its username, so loading it fails
	// before the portal is ever contacted.
	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{"password": "x"}`), 0600))

	charges := []model.Charge{{
		ID:      model.SomeInt(7),
		Year:    2025,
		Period:  model.SomeInt(1),
		Title:   "Rent",
		DueDate: model.Date{Year: 2025, Month: 1, Day: 10},
		Value:   812.50,
	}}
	goodPath := filepath.Join(dir, "good.json")
	require.NoError(t, store.NewFileStore().Save(goodPath, &model.Snapshot{
		Username: 1234,
		Password: "hunter2",
	}))

	syncLog, err := storage.NewSyncLog(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = syncLog.Close() })
	require.NoError(t, syncLog.Migrate(ctx))

	syncer := engine.New(store.NewFileStore(), func() engine.PortalClient {
		return &portalStub{accountID: 99, charges: charges}
	})
	syncer.SetConsole(os.Stderr)

	err = syncAll(ctx, syncer, []string{badPath, goodPath}, syncLog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 accounts failed")

	// The second account still synced.
	snap, err := store.NewFileStore().Load(goodPath)
	require.NoError(t, err)
	assert.Equal(t, charges, snap.Charges)

	// Both outcomes are on record, newest first, each tagged with its
	// snapshot path.
	runs, err := syncLog.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, goodPath, runs[0].Snapshot)
	assert.Equal(t, int64(1234), runs[0].Account)
	assert.Empty(t, runs[0].Error)
	assert.Equal(t, 1, runs[0].NewCharges)

	assert.Equal(t, badPath, runs[1].Snapshot)
	assert.Zero(t, runs[1].Account)
	assert.NotEmpty(t, runs[1].Error)
}

func TestSyncAllWithoutHistoryLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "account.json")
	require.NoError(t, store.NewFileStore().Save(path, &model.Snapshot{
		Username: 1234,
		Password: "hunter2",
	}))

	syncer := engine.New(store.NewFileStore(), func() engine.PortalClient {
		return &portalStub{accountID: 99}
	})

	require.NoError(t, syncAll(context.Background(), syncer, []string{path}, nil))
}
