package cmd

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hmarston/monzo-budget/pkg/budget"
	"github.com/hmarston/monzo-budget/pkg/notify"
	"github.com/hmarston/monzo-budget/pkg/recurring"
	"github.com/hmarston/monzo-budget/pkg/store"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display sync and budget status",
	Long: `Display the latest sync run and the current budget dashboard.

Shows:
- Outcome of the most recent sync run
- Total number of stored transactions
- Every budget group with spent/limit and under/warning/over status
- Sinking fund progress against linked pots
- Detected recurring payments, ranked by estimated monthly cost

Example:
  budget-sync status`,
	Run: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	exitOnError(cfg.Validate("data.dir"), "invalid configuration")

	resolver := newResolver(cfg)
	st := openStore(resolver)
	defer st.Close()

	printLastRun(st)
	printBudgets(st)
	printRecurring(st)

	slog.Debug("Status displayed")
}

func printLastRun(st *store.Store) {
	run, err := st.LatestRun()
	exitOnError(err, "failed to get latest sync run")

	count, err := st.CountTransactions()
	exitOnError(err, "failed to count transactions")

	fmt.Println("\n=== Last Sync ===")
	if run == nil {
		fmt.Println("No sync has run yet")
	} else {
		fmt.Printf("Run ID:       %d\n", run.ID)
		fmt.Printf("Started:      %s\n", run.StartedAt.Local().Format(time.RFC1123))
		fmt.Printf("Status:       %s\n", run.Status)
		fmt.Printf("Ingested:     %d\n", run.TransactionsIngested)
		fmt.Printf("Skipped:      %d\n", run.TransactionsSkipped)
		if run.ReasonCode != "" {
			fmt.Printf("Reason:       %s\n", run.ReasonCode)
		}
		if run.Error != "" {
			fmt.Printf("Error:        %s\n", run.Error)
		}
	}
	fmt.Printf("Transactions: %d\n", count)
}

func printBudgets(st *store.Store) {
	groups, err := st.ListGroups()
	exitOnError(err, "failed to list budget groups")

	budgets, err := st.ListBudgets()
	exitOnError(err, "failed to list budgets")

	if len(budgets) == 0 {
		fmt.Println("\nNo budgets configured")
		return
	}

	now := time.Now().UTC()

	// Spending budgets read per-account ledger slices; two months of
	// history covers any period anchor.
	ledger := map[string][]budget.Transaction{}
	for _, b := range budgets {
		if _, ok := ledger[b.AccountID]; ok {
			continue
		}
		txns, err := st.ListTransactionsInRange(b.AccountID, now.AddDate(0, -2, 0), now.AddDate(0, 0, 1))
		exitOnError(err, "failed to load transactions")
		ledger[b.AccountID] = store.LedgerView(txns)
	}

	fmt.Println("\n=== Budgets ===")
	for _, g := range groups {
		view := ledger[g.AccountID]
		gs := budget.StatusForGroup(g, budgets, view, now)
		if len(gs.Budgets) == 0 {
			continue
		}

		fmt.Printf("\n%s  [%s]  %s / %s (%.1f%%)\n",
			g.Name, gs.Status,
			notify.FormatPence(gs.TotalSpent), notify.FormatPence(gs.TotalLimit),
			gs.Percentage,
		)
		for _, bs := range gs.Budgets {
			fmt.Printf("  %-20s %-8s %10s / %-10s %6.1f%%\n",
				bs.Name, bs.Status,
				notify.FormatPence(bs.Spent), notify.FormatPence(bs.Limit),
				bs.Percentage,
			)
		}
	}

	var funds []budget.SinkingFundStatus
	for _, b := range budgets {
		if !b.PeriodType.IsSinkingFund() {
			continue
		}
		var potBalance int64
		if b.LinkedPotID != "" {
			balance, ok, err := st.GetPotBalance(b.LinkedPotID)
			exitOnError(err, "failed to get pot balance")
			if ok {
				potBalance = balance
			}
		}
		funds = append(funds, budget.FundStatus(b, potBalance, now))
	}

	if len(funds) > 0 {
		fmt.Println("\n=== Sinking Funds ===")
		for _, fs := range funds {
			track := "on track"
			if !fs.OnTrack {
				track = "behind"
			}
			fmt.Printf("  %-20s %s: %s of %s saved, %s/mo, %d mo to %s (%s)\n",
				fs.Name, track,
				notify.FormatPence(fs.PotBalance), notify.FormatPence(fs.AnnualTarget),
				notify.FormatPence(fs.MonthlyContribution),
				fs.MonthsRemaining, fs.TargetMonth,
				notify.FormatPence(fs.Variance),
			)
		}
	}
	fmt.Println()
}

func printRecurring(st *store.Store) {
	accounts, err := st.ListAccounts()
	exitOnError(err, "failed to list accounts")

	now := time.Now().UTC()
	var patterns []recurring.Pattern
	for _, acct := range accounts {
		// Two years of history so annual payments have two data points.
		txns, err := st.ListTransactionsInRange(acct.ID, now.AddDate(-2, 0, 0), now.AddDate(0, 0, 1))
		exitOnError(err, "failed to load transactions")
		patterns = append(patterns, recurring.Detect(store.RecurringView(txns), now, recurring.Config{})...)
	}
	if len(patterns) == 0 {
		return
	}
	sort.Slice(patterns, func(i, j int) bool { return patterns[i].MonthlyCost > patterns[j].MonthlyCost })

	fmt.Println("=== Recurring Payments ===")
	for _, p := range patterns {
		next := "lapsed?"
		if !p.NextExpected.IsZero() {
			next = "next ~" + p.NextExpected.Format("2006-01-02")
		}
		fmt.Printf("  %-24s %-12s %10s/mo  (%s, %d seen, %s, %.0f%% confidence)\n",
			p.MerchantName, p.Category,
			notify.FormatPence(p.MonthlyCost),
			p.FrequencyLabel, p.TransactionCount, next,
			p.Confidence*100,
		)
	}
	fmt.Println()
}
