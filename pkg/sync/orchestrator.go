// Package sync orchestrates a sync run: pull from the Monzo API, categorise,
// persist idempotently, recompute budget status and emit notifications.
// Exactly one run executes at a time.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	gosync "sync"
	"time"

	"github.com/hmarston/monzo-budget/pkg/budget"
	"github.com/hmarston/monzo-budget/pkg/monzo"
	"github.com/hmarston/monzo-budget/pkg/notify"
	"github.com/hmarston/monzo-budget/pkg/rules"
	"github.com/hmarston/monzo-budget/pkg/store"
)

// ErrSyncInProgress is returned when a trigger arrives while a run is
// already executing. Runs are never queued: overlapping runs risk
// duplicate-upsert races.
var ErrSyncInProgress = errors.New("sync: a run is already in progress")

// Machine-readable reason codes recorded on failed runs and handed to the
// notification dispatcher.
const (
	ReasonReauthRequired = "reauth_required"
	ReasonTimeout        = "timeout"
	ReasonStorage        = "storage"
	ReasonNetwork        = "network"
	ReasonStale          = "stale"
)

// LedgerClient is the slice of the Monzo client the orchestrator needs.
type LedgerClient interface {
	EnsureToken(ctx context.Context) (monzo.Token, error)
	FetchAccounts(ctx context.Context) ([]monzo.Account, error)
	FetchTransactions(ctx context.Context, accountID, since string) ([]monzo.Transaction, string, bool, error)
	FetchBalance(ctx context.Context, accountID string) (monzo.Balance, error)
	FetchPots(ctx context.Context, accountID string) ([]monzo.Pot, error)
}

// Config tunes retry and wall-clock bounds for a run.
type Config struct {
	RunTimeout     time.Duration // overall wall-clock budget, default 10m
	RetryAttempts  int           // bounded retries for transient errors, default 3
	RetryBaseDelay time.Duration // first backoff delay, default 500ms
}

func (c Config) withDefaults() Config {
	if c.RunTimeout == 0 {
		c.RunTimeout = 10 * time.Minute
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = 500 * time.Millisecond
	}
	return c
}

// Result summarises a completed run.
type Result struct {
	RunID    int64
	Status   string
	Ingested int64
	Skipped  int64
	Alerts   int
	// Deferred lists accounts whose remaining pages were pushed to the next
	// run (rate limiting). Deferral is not a failure: what was ingested is
	// kept and the account resumes from its previous high-water mark.
	Deferred []string
	Errors   []string
}

// Orchestrator coordinates client, store, categorisation, aggregation and
// notification dispatch for sync runs.
type Orchestrator struct {
	store      *store.Store
	client     LedgerClient
	dispatcher notify.Dispatcher
	logger     *slog.Logger
	cfg        Config

	// mu is the in-process single-flight gate; the running SyncRun row makes
	// the gate observable and doubles as the audit trail.
	mu gosync.Mutex
}

// New creates an orchestrator.
func New(st *store.Store, client LedgerClient, dispatcher notify.Dispatcher, logger *slog.Logger, cfg Config) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:      st,
		client:     client,
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg.withDefaults(),
	}
}

// Run executes one sync run. A second concurrent call returns
// ErrSyncInProgress instead of queuing.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	if !o.mu.TryLock() {
		return Result{}, ErrSyncInProgress
	}
	defer o.mu.Unlock()

	// A crash mid-run leaves its row marked running forever; fail out rows
	// older than the run timeout so the gate cannot wedge across restarts.
	stale, err := o.store.FailStaleRuns(time.Now().UTC().Add(-o.cfg.RunTimeout), ReasonStale)
	if err != nil {
		return Result{}, fmt.Errorf("failed to expire stale runs: %w", err)
	}
	if stale > 0 {
		o.logger.Warn("marked abandoned sync runs as failed", "count", stale)
	}

	running, err := o.store.HasRunningRun()
	if err != nil {
		return Result{}, fmt.Errorf("failed to check run gate: %w", err)
	}
	if running {
		return Result{}, ErrSyncInProgress
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RunTimeout)
	defer cancel()

	started := time.Now().UTC()
	runID, err := o.store.StartRun(started)
	if err != nil {
		return Result{}, fmt.Errorf("failed to record sync run: %w", err)
	}

	res := Result{RunID: runID}
	finalize := func(status, reason string, runErr error) (Result, error) {
		res.Status = status
		errText := strings.Join(res.Errors, "; ")
		if runErr != nil {
			errText = runErr.Error()
			if len(res.Errors) > 0 {
				errText = errText + "; " + strings.Join(res.Errors, "; ")
			}
		}
		if err := o.store.FinalizeRun(runID, status, res.Ingested, res.Skipped, reason, errText); err != nil {
			o.logger.Error("failed to finalize sync run", "run_id", runID, "error", err)
		}
		o.dispatch(notify.SyncSummary(notify.SyncSummaryPayload{
			Status:     status,
			Ingested:   res.Ingested,
			Skipped:    res.Skipped,
			Duration:   time.Since(started),
			ReasonCode: reason,
		}))
		return res, runErr
	}

	// Step 1: resolve/refresh the auth token. A dead refresh token is
	// terminal for the run and must reach the user.
	token, err := o.client.EnsureToken(ctx)
	if err != nil {
		if errors.Is(err, monzo.ErrReauthRequired) {
			o.dispatch(notify.AuthExpired(err.Error()))
			return finalize(store.RunStatusFailed, ReasonReauthRequired, err)
		}
		return finalize(store.RunStatusFailed, ReasonNetwork, err)
	}
	if err := o.store.SaveToken(token); err != nil {
		return finalize(store.RunStatusFailed, ReasonStorage, err)
	}

	ruleset, err := o.store.ListEnabledRules()
	if err != nil {
		return finalize(store.RunStatusFailed, ReasonStorage, err)
	}

	// Step 2: discover accounts.
	var apiAccounts []monzo.Account
	err = o.retry(ctx, "fetch accounts", func() error {
		var fetchErr error
		apiAccounts, fetchErr = o.client.FetchAccounts(ctx)
		return fetchErr
	})
	if err != nil {
		if errors.Is(err, monzo.ErrReauthRequired) {
			o.dispatch(notify.AuthExpired(err.Error()))
			return finalize(store.RunStatusFailed, ReasonReauthRequired, err)
		}
		return finalize(store.RunStatusFailed, ReasonNetwork, err)
	}

	var accounts []store.Account
	for _, apiAcct := range apiAccounts {
		if apiAcct.Closed {
			continue
		}
		acct, err := o.store.UpsertAccount(store.Account{
			MonzoID: apiAcct.ID,
			Type:    apiAcct.Type,
			Name:    apiAcct.Description,
		})
		if err != nil {
			return finalize(store.RunStatusFailed, ReasonStorage, err)
		}
		accounts = append(accounts, acct)
	}

	// Steps 3-5 per account. A failure on one account is isolated: the
	// others still sync, and the failed account resumes from its previous
	// high-water mark next run. Auth death aborts the run outright; data
	// already upserted for earlier accounts stays valid.
	for _, acct := range accounts {
		if err := ctx.Err(); err != nil {
			return finalize(store.RunStatusFailed, ReasonTimeout, err)
		}

		if err := o.syncAccount(ctx, acct, ruleset, &res); err != nil {
			if errors.Is(err, monzo.ErrReauthRequired) {
				o.dispatch(notify.AuthExpired(err.Error()))
				return finalize(store.RunStatusFailed, ReasonReauthRequired, err)
			}
			o.logger.Error("account sync failed", "account", acct.MonzoID, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("account %s: %v", acct.MonzoID, err))
			continue
		}

		o.refreshBalances(ctx, acct, &res)
	}

	if err := ctx.Err(); err != nil {
		return finalize(store.RunStatusFailed, ReasonTimeout, err)
	}

	// Steps 6-7: recompute budget status and emit threshold alerts.
	if err := o.emitThresholdAlerts(ctx, &res); err != nil {
		o.logger.Error("budget alert pass failed", "error", err)
		res.Errors = append(res.Errors, fmt.Sprintf("alerts: %v", err))
	}

	status := store.RunStatusSuccess
	if len(res.Errors) > 0 {
		status = store.RunStatusFailed
	}
	return finalize(status, "", nil)
}

// syncAccount pages through an account's transactions from its high-water
// mark, categorising and upserting each page as it arrives.
func (o *Orchestrator) syncAccount(ctx context.Context, acct store.Account, ruleset []rules.Rule, res *Result) error {
	cursor, err := o.store.HighWaterMark(acct.MonzoID)
	if err != nil {
		return err
	}

	skipsBefore := res.Skipped
	for {
		var page []monzo.Transaction
		var next string
		var done bool

		err := o.retry(ctx, "fetch transactions", func() error {
			var fetchErr error
			page, next, done, fetchErr = o.client.FetchTransactions(ctx, acct.MonzoID, cursor)
			return fetchErr
		})
		if err != nil {
			if monzo.IsRateLimited(err) {
				// Back off and shrink the remaining work: keep what was
				// already ingested and pick this account up next run. A
				// deferral alone never fails the run.
				o.logger.Warn("rate limited, deferring rest of account", "account", acct.MonzoID)
				res.Deferred = append(res.Deferred, acct.MonzoID)
				return nil
			}
			return err
		}

		for _, tx := range page {
			if err := o.ingestTransaction(acct, tx, ruleset, res); err != nil {
				// DataIntegrityError: skip and continue, the transaction is
				// retried next run because the mark does not advance past it.
				o.logger.Error("failed to upsert transaction", "transaction", tx.ID, "error", err)
				res.Skipped++
				res.Errors = append(res.Errors, fmt.Sprintf("transaction %s: %v", tx.ID, err))
			}
		}

		cursor = next
		if done {
			break
		}
	}

	// Advance the cursor only when every transaction made it to the store,
	// otherwise a skipped transaction would never be retried.
	if res.Skipped == skipsBefore {
		return o.store.SetHighWaterMark(acct.MonzoID, cursor)
	}
	return nil
}

func (o *Orchestrator) ingestTransaction(acct store.Account, tx monzo.Transaction, ruleset []rules.Rule, res *Result) error {
	existing, err := o.store.GetTransactionByMonzoID(tx.ID)
	if err != nil {
		return err
	}

	view := rules.Transaction{
		Amount:         tx.Amount,
		MerchantName:   tx.MerchantName(),
		LedgerCategory: tx.Category,
		Created:        tx.Created,
	}
	if existing != nil {
		view.UserCategory = existing.CustomCategory
	}

	category := rules.Categorize(view, ruleset)
	custom := ""
	if category != tx.Category || view.UserCategory != "" {
		custom = category
	}

	row := store.Transaction{
		MonzoID:        tx.ID,
		AccountID:      acct.ID,
		Amount:         tx.Amount,
		MerchantName:   tx.MerchantName(),
		MonzoCategory:  tx.Category,
		CustomCategory: custom,
		IsPotTransfer:  tx.IsPotTransfer(),
		CreatedAt:      tx.Created,
		RawPayload:     tx.Raw,
	}
	if settled := tx.SettledAt(); !settled.IsZero() {
		row.SettledAt.Time = settled
		row.SettledAt.Valid = true
	}

	inserted, err := o.store.UpsertTransaction(row)
	if err != nil {
		return err
	}
	if inserted {
		res.Ingested++
	}
	return nil
}

// refreshBalances fetches the account balance and pots. Failures here are
// logged and isolated; stale balances are tolerable until the next run.
func (o *Orchestrator) refreshBalances(ctx context.Context, acct store.Account, res *Result) {
	err := o.retry(ctx, "fetch balance", func() error {
		balance, fetchErr := o.client.FetchBalance(ctx, acct.MonzoID)
		if fetchErr != nil {
			return fetchErr
		}
		return o.store.UpdateAccountBalance(acct.ID, balance.Balance)
	})
	if err != nil {
		o.logger.Error("failed to refresh balance", "account", acct.MonzoID, "error", err)
		res.Errors = append(res.Errors, fmt.Sprintf("balance %s: %v", acct.MonzoID, err))
	}

	var pots []monzo.Pot
	err = o.retry(ctx, "fetch pots", func() error {
		var fetchErr error
		pots, fetchErr = o.client.FetchPots(ctx, acct.MonzoID)
		return fetchErr
	})
	if err != nil {
		o.logger.Error("failed to refresh pots", "account", acct.MonzoID, "error", err)
		res.Errors = append(res.Errors, fmt.Sprintf("pots %s: %v", acct.MonzoID, err))
		return
	}

	for _, pot := range pots {
		err := o.store.UpsertPot(store.Pot{
			MonzoID:   pot.ID,
			AccountID: acct.ID,
			Name:      pot.Name,
			Balance:   pot.Balance,
			Deleted:   pot.Deleted,
		})
		if err != nil {
			o.logger.Error("failed to upsert pot", "pot", pot.ID, "error", err)
			res.Errors = append(res.Errors, fmt.Sprintf("pot %s: %v", pot.ID, err))
		}
	}
}

// emitThresholdAlerts recomputes spending budget status and dispatches an
// alert for every budget in warning or over.
func (o *Orchestrator) emitThresholdAlerts(ctx context.Context, res *Result) error {
	budgets, err := o.store.ListBudgets()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	ledger := map[string][]budget.Transaction{}

	for _, b := range budgets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if b.PeriodType.IsSinkingFund() {
			continue
		}

		view, ok := ledger[b.AccountID]
		if !ok {
			// Two months of history covers any monthly window anchor.
			txns, err := o.store.ListTransactionsInRange(b.AccountID, now.AddDate(0, -2, 0), now.AddDate(0, 0, 1))
			if err != nil {
				return err
			}
			view = store.LedgerView(txns)
			ledger[b.AccountID] = view
		}

		bs := budget.Status(b, view, now)
		if bs.Status == budget.StatusUnder {
			continue
		}
		res.Alerts++
		o.dispatch(notify.ThresholdAlert(notify.ThresholdAlertPayload{
			Budget:     bs.Name,
			Category:   bs.Category,
			Limit:      bs.Limit,
			Spent:      bs.Spent,
			Remaining:  bs.Remaining,
			Percentage: bs.Percentage,
			Status:     string(bs.Status),
		}))
	}
	return nil
}

// DailyDigest summarises today's spending per account and dispatches one
// daily_digest event for each account that spent anything.
func (o *Orchestrator) DailyDigest(ctx context.Context, asOf time.Time) error {
	accounts, err := o.store.ListAccounts()
	if err != nil {
		return err
	}

	dayStart := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())
	for _, acct := range accounts {
		txns, err := o.store.ListTransactionsInRange(acct.ID, dayStart, dayStart.AddDate(0, 0, 1))
		if err != nil {
			return err
		}

		var totalSpend int64
		var count int
		byCategory := map[string]int64{}
		for _, tx := range txns {
			if tx.Amount >= 0 || tx.IsPotTransfer {
				continue
			}
			totalSpend += -tx.Amount
			count++
			byCategory[tx.EffectiveCategory()] += -tx.Amount
		}
		if count == 0 {
			continue
		}

		topCategory := ""
		var topSpend int64
		for category, spend := range byCategory {
			if spend > topSpend || (spend == topSpend && category < topCategory) {
				topCategory, topSpend = category, spend
			}
		}

		label := acct.Name
		if label == "" {
			label = acct.Type
		}
		o.dispatch(notify.DailyDigest(notify.DailyDigestPayload{
			Date:             dayStart.Format("2006-01-02"),
			Account:          label,
			TotalSpend:       totalSpend,
			TransactionCount: count,
			TopCategory:      topCategory,
			TopCategorySpend: topSpend,
		}))
	}
	return nil
}

// dispatch delivers a notification fire-and-forget: a dispatch failure is
// logged and never fails the run. A fresh context keeps delivery working
// even when the run itself timed out.
func (o *Orchestrator) dispatch(event notify.Event) {
	if o.dispatcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.dispatcher.Dispatch(ctx, event); err != nil {
		o.logger.Error("notification dispatch failed", "type", string(event.Type), "error", err)
	}
}

// retry runs fn with bounded exponential backoff, retrying only transient
// failures. ReauthRequired and rate limiting pass straight through.
func (o *Orchestrator) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	delay := o.cfg.RetryBaseDelay
	for attempt := 1; attempt <= o.cfg.RetryAttempts; attempt++ {
		err = fn()
		if err == nil || !monzo.IsRetryable(err) {
			return err
		}
		if attempt == o.cfg.RetryAttempts {
			break
		}
		o.logger.Warn("transient failure, backing off", "op", op, "attempt", attempt, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return err
}
