package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/hmarston/monzo-budget/pkg/scheduler"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync scheduler in the foreground",
	Long: `Run continuous scheduled syncs until interrupted.

The scheduler fires a sync immediately on startup, then on a fixed
interval (SYNC_INTERVAL, default 30m). Ticks that arrive while a run is
still executing are skipped. A daily spending digest is dispatched at
DIGEST_HOUR local time.

Example:
  budget-sync serve
  SYNC_INTERVAL=15m budget-sync serve`,
	Run: runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	exitOnError(cfg.Validate(
		"monzo.apiUrl",
		"monzo.clientId",
		"monzo.clientSecret",
		"data.dir",
	), "invalid configuration")

	resolver := newResolver(cfg)
	st := openStore(resolver)
	defer st.Close()

	seedDefinitions(st, resolver)

	client := newMonzoClient(cfg, st)
	orch := newOrchestrator(cfg, st, client)

	sched := scheduler.New(orch, slog.Default(), scheduler.Config{
		Interval:   cfg.Sync.Interval,
		DigestHour: cfg.Sync.DigestHour,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Scheduler starting",
		"interval", cfg.Sync.Interval,
		"digest_hour", cfg.Sync.DigestHour,
	)
	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		exitOnError(err, "scheduler stopped")
	}
	slog.Info("Scheduler stopped")
}
