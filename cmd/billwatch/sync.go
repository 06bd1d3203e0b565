package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/jkowalik/billwatch/internal/engine"
	"github.com/jkowalik/billwatch/internal/storage"
	"github.com/jkowalik/billwatch/internal/store"
	"github.com/jkowalik/billwatch/internal/tomojdom"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [snapshot...]",
		Short: "Synchronize billing accounts",
		Long: `Synchronize one or more billing accounts against the portal.

Each argument names a snapshot file. With no arguments every *.json file
under the configured snapshots directory is synced. Accounts are processed
sequentially; a failure in one account is logged and does not stop the
remaining accounts.`,
		RunE: runSync,
	}

	cmd.Flags().StringP("snapshots-dir", "d", "", "Directory holding account snapshot files")
	cmd.Flags().String("history-db", "", "SQLite database recording sync outcomes (optional)")

	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Bind here rather than in the constructor: the history command binds
	// the same keys to its own flags.
	_ = viper.BindPFlag("snapshots.dir", cmd.Flags().Lookup("snapshots-dir"))
	_ = viper.BindPFlag("history.database", cmd.Flags().Lookup("history-db"))

	files, err := snapshotFiles(args)
	if err != nil {
		return err
	}

	syncLog, err := openSyncLog(ctx)
	if err != nil {
		return err
	}
	if syncLog != nil {
		defer func() { _ = syncLog.Close() }()
	}

	syncer := engine.New(store.NewFileStore(), func() engine.PortalClient {
		return tomojdom.NewClient(tomojdom.Config{})
	})

	return syncAll(ctx, syncer, files, syncLog)
}

// syncAll runs one cycle per snapshot file, strictly sequentially. A
// failing account is logged and recorded but does not stop the remaining
// accounts; the returned error reports how many failed.
func syncAll(ctx context.Context, syncer *engine.Syncer, files []string, syncLog *storage.SyncLog) error {
	var bar *progressbar.ProgressBar
	if len(files) > 1 {
		bar = progressbar.Default(int64(len(files)), "Syncing accounts")
	}

	failed := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		started := time.Now()
		stats, syncErr := syncer.SyncAccount(ctx, path)
		if syncErr != nil {
			failed++
			slog.Error("Account sync failed", "snapshot", path, "error", syncErr)
		} else {
			slog.Info("Account synced",
				"snapshot", path,
				"account", stats.Account,
				"new_charges", stats.NewCharges,
				"new_payments", stats.NewPayments)
		}

		recordRun(ctx, syncLog, path, stats, started, syncErr)

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d accounts failed to sync", failed, len(files))
	}
	return nil
}

// snapshotFiles resolves the snapshot paths to sync: explicit arguments,
// or every *.json under the configured directory.
func snapshotFiles(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	dir := viper.GetString("snapshots.dir")
	if dir == "" {
		return nil, fmt.Errorf("no snapshot files given and snapshots.dir is not configured")
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots in %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no snapshot files found in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

func openSyncLog(ctx context.Context) (*storage.SyncLog, error) {
	dbPath := viper.GetString("history.database")
	if dbPath == "" {
		return nil, nil
	}

	syncLog, err := storage.NewSyncLog(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := syncLog.Migrate(ctx); err != nil {
		_ = syncLog.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return syncLog, nil
}

// recordRun logs the outcome of one cycle. The history log is advisory:
// a write failure is reported but never fails the sync itself.
func recordRun(ctx context.Context, syncLog *storage.SyncLog, path string, stats engine.Stats, started time.Time, syncErr error) {
	if syncLog == nil {
		return
	}

	run := storage.Run{
		Snapshot:        path,
		Account:         stats.Account,
		StartedAt:       started,
		FinishedAt:      time.Now(),
		FetchedCharges:  stats.FetchedCharges,
		FetchedPayments: stats.FetchedPayments,
		NewCharges:      stats.NewCharges,
		NewPayments:     stats.NewPayments,
	}
	if syncErr != nil {
		run.Error = syncErr.Error()
	}

	if err := syncLog.RecordRun(ctx, run); err != nil {
		slog.Warn("Failed to record sync outcome", "error", err)
	}
}
