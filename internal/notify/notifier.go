// Package notify dispatches alerts about newly observed charges and
// payments. Two sinks exist: a Discord webhook and a styled console
// fallback; the caller picks one per sync cycle based on whether a webhook
// URL is configured.
package notify

import (
	"context"

	"github.com/jkowalik/billwatch/internal/model"
	"github.com/jkowalik/billwatch/internal/tomojdom"
)

// Notifier delivers alerts for newly observed items. Implementations hold
// no state across cycles.
type Notifier interface {
	Notify(ctx context.Context, charges []model.Charge, payments []model.Payment) error
}

// DocumentFetcher retrieves the printable document behind a charge. The
// portal client satisfies this.
type DocumentFetcher interface {
	DownloadDocument(ctx context.Context, accountID int64, charge model.Charge) (*tomojdom.Document, error)
}
