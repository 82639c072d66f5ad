package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hmarston/monzo-budget/pkg/budget"
	"github.com/hmarston/monzo-budget/pkg/monzo"
	"github.com/hmarston/monzo-budget/pkg/rules"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "budget.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testTransaction(monzoID, accountID string, amount int64) Transaction {
	return Transaction{
		MonzoID:       monzoID,
		AccountID:     accountID,
		Amount:        amount,
		MerchantName:  "Tesco",
		MonzoCategory: "groceries",
		CreatedAt:     time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestUpsertAccount(t *testing.T) {
	st := openTestStore(t)

	first, err := st.UpsertAccount(Account{MonzoID: "acc_1", Type: "uk_retail", Name: "Current"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	// Re-discovery refreshes the name but keeps the local id.
	second, err := st.UpsertAccount(Account{MonzoID: "acc_1", Type: "uk_retail", Name: "Renamed"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Renamed", second.Name)

	accounts, err := st.ListAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	require.NoError(t, st.UpdateAccountBalance(first.ID, 123456))
	stored, err := st.GetAccountByMonzoID("acc_1")
	require.NoError(t, err)
	require.EqualValues(t, 123456, stored.Balance)
}

func TestUpsertTransactionIdempotent(t *testing.T) {
	st := openTestStore(t)
	acct, err := st.UpsertAccount(Account{MonzoID: "acc_1", Type: "uk_retail"})
	require.NoError(t, err)

	tx := testTransaction("tx_1", acct.ID, -450)

	inserted, err := st.UpsertTransaction(tx)
	require.NoError(t, err)
	require.True(t, inserted)

	// Same Monzo id again: updated, not duplicated.
	tx.SettledAt.Time = tx.CreatedAt.Add(time.Hour)
	tx.SettledAt.Valid = true
	inserted, err = st.UpsertTransaction(tx)
	require.NoError(t, err)
	require.False(t, inserted)

	count, err := st.CountTransactions()
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	stored, err := st.GetTransactionByMonzoID("tx_1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.True(t, stored.SettledAt.Valid)
}

func TestUpsertTransactionPreservesOverride(t *testing.T) {
	st := openTestStore(t)
	acct, err := st.UpsertAccount(Account{MonzoID: "acc_1", Type: "uk_retail"})
	require.NoError(t, err)

	tx := testTransaction("tx_1", acct.ID, -450)
	tx.CustomCategory = "lunch" // rule-assigned at ingest
	_, err = st.UpsertTransaction(tx)
	require.NoError(t, err)

	require.NoError(t, st.SetUserCategory("tx_1", "work_expenses"))

	// A re-synced page must not clobber the manual override.
	tx.CustomCategory = "lunch"
	_, err = st.UpsertTransaction(tx)
	require.NoError(t, err)

	stored, err := st.GetTransactionByMonzoID("tx_1")
	require.NoError(t, err)
	require.Equal(t, "work_expenses", stored.CustomCategory)
	require.Equal(t, "work_expenses", stored.EffectiveCategory())
}

func TestSetUserCategoryUnknownTransaction(t *testing.T) {
	st := openTestStore(t)
	require.Error(t, st.SetUserCategory("tx_missing", "anything"))
}

func TestEffectiveCategoryFallsBackToMonzo(t *testing.T) {
	tx := Transaction{MonzoCategory: "groceries"}
	require.Equal(t, "groceries", tx.EffectiveCategory())
}

func TestListTransactionsInRangeHalfOpen(t *testing.T) {
	st := openTestStore(t)
	acct, err := st.UpsertAccount(Account{MonzoID: "acc_1", Type: "uk_retail"})
	require.NoError(t, err)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	for _, tc := range []struct {
		id      string
		created time.Time
	}{
		{"tx_before", from.Add(-time.Second)},
		{"tx_start", from},
		{"tx_mid", from.AddDate(0, 0, 15)},
		{"tx_end", to},
	} {
		tx := testTransaction(tc.id, acct.ID, -100)
		tx.CreatedAt = tc.created
		_, err := st.UpsertTransaction(tx)
		require.NoError(t, err)
	}

	txns, err := st.ListTransactionsInRange(acct.ID, from, to)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	require.Equal(t, "tx_start", txns[0].MonzoID)
	require.Equal(t, "tx_mid", txns[1].MonzoID)
}

func TestRuleCRUDAndOrdering(t *testing.T) {
	st := openTestStore(t)

	mkRule := func(name string, priority int) rules.Rule {
		return rules.Rule{
			Name:           name,
			TargetCategory: "coffee",
			Priority:       priority,
			Enabled:        true,
			Conditions:     []rules.Condition{{Kind: rules.KindMerchantContains, Merchant: "pret"}},
		}
	}

	_, err := st.CreateRule(mkRule("second", 10))
	require.NoError(t, err)
	created, err := st.CreateRule(mkRule("first", 5))
	require.NoError(t, err)
	_, err = st.CreateRule(mkRule("tied", 10))
	require.NoError(t, err)

	listed, err := st.ListRules()
	require.NoError(t, err)
	require.Len(t, listed, 3)
	require.Equal(t, "first", listed[0].Name)
	require.Equal(t, "second", listed[1].Name)
	require.Equal(t, "tied", listed[2].Name)

	// Malformed rules are rejected at save time.
	_, err = st.CreateRule(rules.Rule{Name: "empty", TargetCategory: "x"})
	require.Error(t, err)

	// Updating priority must not disturb the creation-order tie-break.
	updated := created
	updated.Priority = 10
	require.NoError(t, st.UpdateRule(updated))
	listed, err = st.ListRules()
	require.NoError(t, err)
	require.Equal(t, []string{"second", "first", "tied"},
		[]string{listed[0].Name, listed[1].Name, listed[2].Name})

	enabled := listed[0]
	enabled.Enabled = false
	require.NoError(t, st.UpdateRule(enabled))
	active, err := st.ListEnabledRules()
	require.NoError(t, err)
	require.Len(t, active, 2)

	deleted, err := st.DeleteRule(created.ID)
	require.NoError(t, err)
	require.True(t, deleted)
	deleted, err = st.DeleteRule(created.ID)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestSeedRulesKeepsCreationOrder(t *testing.T) {
	st := openTestStore(t)

	seed := []rules.Rule{
		{
			Name: "coffee", TargetCategory: "coffee", Priority: 10, Enabled: true,
			Conditions: []rules.Condition{{Kind: rules.KindMerchantContains, Merchant: "pret"}},
		},
		{
			Name: "groceries", TargetCategory: "groceries", Priority: 10, Enabled: true,
			Conditions: []rules.Condition{{Kind: rules.KindMerchantContains, Merchant: "tesco"}},
		},
	}
	require.NoError(t, st.SeedRules(seed))

	before, err := st.ListRules()
	require.NoError(t, err)
	require.Len(t, before, 2)

	// Reloading an edited file updates in place without reordering.
	seed[0].TargetCategory = "eating_out"
	require.NoError(t, st.SeedRules(seed))

	after, err := st.ListRules()
	require.NoError(t, err)
	require.Len(t, after, 2)
	require.Equal(t, before[0].ID, after[0].ID)
	require.Equal(t, "eating_out", after[0].TargetCategory)
	require.Equal(t, before[0].CreatedAt.Unix(), after[0].CreatedAt.Unix())
}

func TestSeedBudgetsPreservesContribution(t *testing.T) {
	st := openTestStore(t)

	defs := []budget.GroupDefinition{
		{
			Name: "Annual Bills",
			Budgets: []budget.BudgetDefinition{
				{
					Name: "car insurance", Category: "insurance", Period: budget.PeriodAnnual,
					AnnualTarget: 120000, TargetMonth: 11, Pot: "pot_1",
				},
			},
		},
	}

	// Created in March: 8 months to November, 15000/month.
	created := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.SeedBudgets(defs, "acc_1", created))

	budgets, err := st.ListBudgets()
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	require.EqualValues(t, 15000, budgets[0].MonthlyContribution)

	// Re-seeding months later must not recompute the contribution rate.
	require.NoError(t, st.SeedBudgets(defs, "acc_1", created.AddDate(0, 5, 0)))

	budgets, err = st.ListBudgets()
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	require.EqualValues(t, 15000, budgets[0].MonthlyContribution)
	require.Equal(t, created.Unix(), budgets[0].FundStart.Unix())

	groups, err := st.ListGroups()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, groups[0].ID, budgets[0].GroupID)
}

func TestCreateBudgetRejectsUngrouped(t *testing.T) {
	st := openTestStore(t)
	_, err := st.CreateBudget(budget.Budget{
		Name: "loose", Category: "general", PeriodType: budget.PeriodMonthly,
		Amount: 1000, StartDay: 1,
	})
	require.Error(t, err)
}

func TestPots(t *testing.T) {
	st := openTestStore(t)
	acct, err := st.UpsertAccount(Account{MonzoID: "acc_1", Type: "uk_retail"})
	require.NoError(t, err)

	pot := Pot{MonzoID: "pot_1", AccountID: acct.ID, Name: "Car Insurance", Balance: 25000}
	require.NoError(t, st.UpsertPot(pot))

	pot.Balance = 35000
	require.NoError(t, st.UpsertPot(pot))

	balance, ok, err := st.GetPotBalance("pot_1")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 35000, balance)

	_, ok, err = st.GetPotBalance("pot_missing")
	require.NoError(t, err)
	require.False(t, ok)

	pots, err := st.ListPots(acct.ID)
	require.NoError(t, err)
	require.Len(t, pots, 1)
}

func TestTokenRoundTrip(t *testing.T) {
	st := openTestStore(t)

	_, ok, err := st.GetToken()
	require.NoError(t, err)
	require.False(t, ok)

	token := monzo.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).UTC(),
	}
	require.NoError(t, st.SaveToken(token))

	stored, ok, err := st.GetToken()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, token.AccessToken, stored.AccessToken)

	// Refresh replaces the pair in place.
	token.AccessToken = "access2"
	require.NoError(t, st.SaveToken(token))
	stored, _, err = st.GetToken()
	require.NoError(t, err)
	require.Equal(t, "access2", stored.AccessToken)
}

func TestSyncRunLifecycle(t *testing.T) {
	st := openTestStore(t)

	running, err := st.HasRunningRun()
	require.NoError(t, err)
	require.False(t, running)

	id, err := st.StartRun(time.Now().UTC())
	require.NoError(t, err)

	running, err = st.HasRunningRun()
	require.NoError(t, err)
	require.True(t, running)

	require.NoError(t, st.FinalizeRun(id, RunStatusFailed, 10, 2, "reauth_required", "token refresh rejected"))

	running, err = st.HasRunningRun()
	require.NoError(t, err)
	require.False(t, running)

	run, err := st.LatestRun()
	require.NoError(t, err)
	require.NotNil(t, run)
	require.Equal(t, RunStatusFailed, run.Status)
	require.EqualValues(t, 10, run.TransactionsIngested)
	require.EqualValues(t, 2, run.TransactionsSkipped)
	require.Equal(t, "reauth_required", run.ReasonCode)
	require.True(t, run.CompletedAt.Valid)
}

func TestFailStaleRuns(t *testing.T) {
	st := openTestStore(t)

	staleID, err := st.StartRun(time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	freshID, err := st.StartRun(time.Now().UTC())
	require.NoError(t, err)

	// Only rows older than the cutoff are failed out; a live run is left alone.
	n, err := st.FailStaleRuns(time.Now().UTC().Add(-30*time.Minute), "stale")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	var status, reason string
	require.NoError(t, st.QueryRow(
		`SELECT status, COALESCE(reason_code, '') FROM sync_runs WHERE id = ?`, staleID,
	).Scan(&status, &reason))
	require.Equal(t, RunStatusFailed, status)
	require.Equal(t, "stale", reason)

	running, err := st.HasRunningRun()
	require.NoError(t, err)
	require.True(t, running)

	require.NoError(t, st.FinalizeRun(freshID, RunStatusSuccess, 0, 0, "", ""))

	// Nothing left to expire.
	n, err = st.FailStaleRuns(time.Now().UTC(), "stale")
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}

func TestHighWaterMark(t *testing.T) {
	st := openTestStore(t)

	mark, err := st.HighWaterMark("acc_1")
	require.NoError(t, err)
	require.Empty(t, mark)

	require.NoError(t, st.SetHighWaterMark("acc_1", "tx_100"))
	require.NoError(t, st.SetHighWaterMark("acc_2", "tx_200"))

	mark, err = st.HighWaterMark("acc_1")
	require.NoError(t, err)
	require.Equal(t, "tx_100", mark)

	require.NoError(t, st.SetHighWaterMark("acc_1", "tx_150"))
	mark, err = st.HighWaterMark("acc_1")
	require.NoError(t, err)
	require.Equal(t, "tx_150", mark)
}

func TestLedgerView(t *testing.T) {
	txns := []Transaction{
		{Amount: -450, MonzoCategory: "eating_out", CustomCategory: "lunch"},
		{Amount: -1000, MonzoCategory: "groceries", IsPotTransfer: true},
	}

	view := LedgerView(txns)
	require.Len(t, view, 2)
	require.Equal(t, "lunch", view[0].Category)
	require.True(t, view[1].IsPotTransfer)
}
