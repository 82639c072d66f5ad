package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single sync now",
	Long: `Run one sync pass against the Monzo API and exit.

This command:
1. Refreshes the OAuth token if needed
2. Fetches new transactions for every open account
3. Categorizes them with the configured rules
4. Updates balances, pots, budget status and alerts

Example:
  budget-sync sync
  budget-sync sync --debug`,
	Run: runSyncOnce,
}

func runSyncOnce(cmd *cobra.Command, args []string) {
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

	slog.Info("Starting sync")
	res, err := orch.Run(context.Background())
	exitOnError(err, "sync failed")

	// The first successful sync discovers the account; seed budgets against
	// it so the next status/alert pass sees them.
	seedDefinitions(st, resolver)

	fmt.Println("\n=== Sync Result ===")
	fmt.Printf("Run ID:       %d\n", res.RunID)
	fmt.Printf("Status:       %s\n", res.Status)
	fmt.Printf("Ingested:     %d\n", res.Ingested)
	fmt.Printf("Skipped:      %d\n", res.Skipped)
	fmt.Printf("Alerts sent:  %d\n", res.Alerts)
	for _, acct := range res.Deferred {
		fmt.Printf("Deferred:     %s (rate limited, resumes next run)\n", acct)
	}
	for _, e := range res.Errors {
		fmt.Printf("Warning:      %s\n", e)
	}
	fmt.Println()

	count, err := st.CountTransactions()
	if err == nil {
		fmt.Printf("Transactions in database: %d\n\n", count)
	}

	slog.Info("Sync completed",
		"run_id", res.RunID,
		"status", res.Status,
		"ingested", res.Ingested,
		"skipped", res.Skipped,
	)
}
