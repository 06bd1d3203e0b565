package engine

import (
	"context"

	"github.com/jkowalik/billwatch/internal/model"
	"github.com/jkowalik/billwatch/internal/tomojdom"
)

// PortalClient is an authenticated billing-portal session, scoped to a
// single sync cycle.
type PortalClient interface {
	Login(ctx context.Context, cred model.Credential) error
	AccountID(ctx context.Context) (int64, error)
	FetchRecords(ctx context.Context, accountID int64) ([]model.Charge, []model.Payment, error)
	DownloadDocument(ctx context.Context, accountID int64, charge model.Charge) (*tomojdom.Document, error)
	Close()
}

// SnapshotStore loads and atomically persists account snapshots.
type SnapshotStore interface {
	Load(path string) (*model.Snapshot, error)
	Save(path string, snap *model.Snapshot) error
}
