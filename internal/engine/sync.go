// Package engine implements the per-account sync pipeline: authenticate,
// fetch the full charge/payment history, diff against the persisted
// snapshot, notify about new items, persist the new snapshot.
//
// The pipeline is fully synchronous and fails fast: the first error
// anywhere aborts the cycle before the snapshot is written, so a failed
// cycle leaves the on-disk state exactly as it was.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jkowalik/billwatch/internal/diff"
	"github.com/jkowalik/billwatch/internal/model"
	"github.com/jkowalik/billwatch/internal/notify"
)

// Syncer orchestrates sync cycles. A single Syncer serves any number of
// sequential cycles; each cycle gets its own portal client.
type Syncer struct {
	store     SnapshotStore
	newClient func() PortalClient
	console   io.Writer
}

// Stats summarizes one completed cycle for the caller's bookkeeping.
type Stats struct {
	Account         int64
	FetchedCharges  int
	FetchedPayments int
	NewCharges      int
	NewPayments     int
}

// New creates a syncer. newClient is called once per cycle so every cycle
// has a fresh, self-contained portal session.
func New(store SnapshotStore, newClient func() PortalClient) *Syncer {
	return &Syncer{
		store:     store,
		newClient: newClient,
		console:   os.Stdout,
	}
}

// SetConsole redirects console notifications, which otherwise go to
// standard output.
func (s *Syncer) SetConsole(w io.Writer) {
	s.console = w
}

// SyncAccount runs one full cycle for the snapshot file at path. On error
// the returned stats carry whatever was established before the failure.
func (s *Syncer) SyncAccount(ctx context.Context, path string) (Stats, error) {
	var stats Stats

	snap, err := s.store.Load(path)
	if err != nil {
		return stats, err
	}
	stats.Account = snap.Username

	client := s.newClient()
	defer client.Close()

	if err := client.Login(ctx, snap.Credential()); err != nil {
		return stats, fmt.Errorf("login: %w", err)
	}

	accountID, err := client.AccountID(ctx)
	if err != nil {
		return stats, err
	}

	charges, payments, err := client.FetchRecords(ctx, accountID)
	if err != nil {
		return stats, err
	}
	stats.FetchedCharges = len(charges)
	stats.FetchedPayments = len(payments)

	newCharges := diff.Unseen(snap.Charges, charges)
	newPayments := diff.Unseen(snap.Payments, payments)
	stats.NewCharges = len(newCharges)
	stats.NewPayments = len(newPayments)

	slog.Debug("Fetched account history",
		"account", snap.Username,
		"charges", len(charges),
		"payments", len(payments),
		"new_charges", len(newCharges),
		"new_payments", len(newPayments))

	if len(newCharges) > 0 || len(newPayments) > 0 {
		notifier, cleanup := s.notifierFor(snap, accountID, client)
		defer cleanup()
		if err := notifier.Notify(ctx, newCharges, newPayments); err != nil {
			return stats, err
		}
	}

	// Full replacement: the snapshot reflects the last successful fetch,
	// not a growing ledger.
	snap.Charges = charges
	snap.Payments = payments
	if err := s.store.Save(path, snap); err != nil {
		return stats, err
	}

	return stats, nil
}

// notifierFor selects the sink for this cycle: the Discord webhook when
// one is configured, the console otherwise.
func (s *Syncer) notifierFor(snap *model.Snapshot, accountID int64, docs notify.DocumentFetcher) (notify.Notifier, func()) {
	if snap.DiscordWebhookURL != "" {
		discord := notify.NewDiscordNotifier(snap.DiscordWebhookURL, accountID, docs)
		return discord, discord.Close
	}
	return notify.NewConsoleNotifier(s.console), func() {}
}
