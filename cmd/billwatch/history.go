package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jkowalik/billwatch/internal/cli"
	"github.com/jkowalik/billwatch/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs",
		Long:  `Show the most recent sync runs recorded in the history database.`,
		RunE:  runHistory,
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().String("history-db", "", "SQLite database recording sync outcomes")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	_ = viper.BindPFlag("history.limit", cmd.Flags().Lookup("limit"))
	_ = viper.BindPFlag("history.database", cmd.Flags().Lookup("history-db"))

	dbPath := viper.GetString("history.database")
	if dbPath == "" {
		return fmt.Errorf("history.database is not configured")
	}

	syncLog, err := storage.NewSyncLog(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer func() { _ = syncLog.Close() }()

	if err := syncLog.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate history database: %w", err)
	}

	runs, err := syncLog.RecentRuns(ctx, viper.GetInt("history.limit"))
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, cli.SubtleStyle.Render("No sync runs recorded yet."))
		return nil
	}

	fmt.Fprintln(os.Stdout, cli.TitleStyle.Render("Recent sync runs"))
	for _, run := range runs {
		status := cli.SuccessStyle.Render("ok")
		detail := fmt.Sprintf("%d new charges, %d new payments (of %d/%d fetched)",
			run.NewCharges, run.NewPayments, run.FetchedCharges, run.FetchedPayments)
		if run.Error != "" {
			status = cli.ErrorStyle.Render("failed")
			detail = run.Error
		}
		// The path identifies a run even when the cycle failed before the
		// account number was known.
		fmt.Fprintf(os.Stdout, "%s  %s  %s  account %d  %s  %s\n",
			cli.SubtleStyle.Render(run.StartedAt.Local().Format("2006-01-02 15:04")),
			status,
			filepath.Base(run.Snapshot),
			run.Account,
			detail,
			cli.SubtleStyle.Render(run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()))
	}

	return nil
}
