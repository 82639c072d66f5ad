package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hmarston/monzo-budget/pkg/budget"
	"github.com/hmarston/monzo-budget/pkg/recurring"
)

// Transaction is a stored ledger row. CustomCategory holds the rule-assigned
// category or a manual user override; empty means neither has been set and
// the Monzo category stands.
type Transaction struct {
	ID             int64
	MonzoID        string
	AccountID      string
	Amount         int64
	MerchantName   string
	MonzoCategory  string
	CustomCategory string
	IsPotTransfer  bool
	CreatedAt      time.Time
	SettledAt      sql.NullTime
	RawPayload     []byte
	Notes          string
}

// UpsertTransaction inserts a transaction or, when the Monzo id is already
// known, updates its mutable fields (settlement time, raw payload, notes).
// An existing custom category is never overwritten, so retried pages can
// never clobber a manual override. Returns true when a new row was inserted.
func (s *Store) UpsertTransaction(tx Transaction) (bool, error) {
	existing, err := s.GetTransactionByMonzoID(tx.MonzoID)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO transactions (
			monzo_id, account_id, amount, merchant_name, monzo_category,
			custom_category, is_pot_transfer, created_at, settled_at,
			raw_payload, notes
		)
		VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?)
		ON CONFLICT(monzo_id) DO UPDATE SET
			settled_at = excluded.settled_at,
			raw_payload = excluded.raw_payload,
			notes = excluded.notes,
			custom_category = COALESCE(transactions.custom_category, excluded.custom_category),
			updated_at = CURRENT_TIMESTAMP
	`
	_, err = s.Exec(query,
		tx.MonzoID,
		tx.AccountID,
		tx.Amount,
		tx.MerchantName,
		tx.MonzoCategory,
		tx.CustomCategory,
		tx.IsPotTransfer,
		tx.CreatedAt,
		tx.SettledAt,
		tx.RawPayload,
		tx.Notes,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert transaction %s: %w", tx.MonzoID, err)
	}

	return existing == nil, nil
}

// SetUserCategory records a manual category override on a transaction.
func (s *Store) SetUserCategory(monzoID, category string) error {
	result, err := s.Exec(
		`UPDATE transactions SET custom_category = ?, updated_at = CURRENT_TIMESTAMP WHERE monzo_id = ?`,
		category, monzoID,
	)
	if err != nil {
		return fmt.Errorf("failed to set user category: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transaction %s not found", monzoID)
	}
	return nil
}

const transactionColumns = `
	id, monzo_id, account_id, amount, COALESCE(merchant_name, ''),
	COALESCE(monzo_category, ''), COALESCE(custom_category, ''),
	is_pot_transfer, created_at, settled_at, raw_payload, COALESCE(notes, '')
`

func scanTransaction(row interface{ Scan(...interface{}) error }) (Transaction, error) {
	var tx Transaction
	err := row.Scan(
		&tx.ID, &tx.MonzoID, &tx.AccountID, &tx.Amount, &tx.MerchantName,
		&tx.MonzoCategory, &tx.CustomCategory, &tx.IsPotTransfer,
		&tx.CreatedAt, &tx.SettledAt, &tx.RawPayload, &tx.Notes,
	)
	return tx, err
}

// GetTransactionByMonzoID retrieves a transaction by its Monzo id, or nil
// when not yet ingested.
func (s *Store) GetTransactionByMonzoID(monzoID string) (*Transaction, error) {
	row := s.QueryRow(
		`SELECT `+transactionColumns+` FROM transactions WHERE monzo_id = ?`, monzoID,
	)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

// ListTransactionsInRange retrieves an account's transactions created within
// [from, to).
func (s *Store) ListTransactionsInRange(accountID string, from, to time.Time) ([]Transaction, error) {
	rows, err := s.Query(
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE account_id = ? AND created_at >= ? AND created_at < ?
		 ORDER BY created_at`,
		accountID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, tx)
	}
	return txns, rows.Err()
}

// CountTransactions returns the total number of stored transactions.
func (s *Store) CountTransactions() (int64, error) {
	var count int64
	if err := s.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// EffectiveCategory returns the category the aggregator should bucket the
// transaction under: the custom category when set, the bank's otherwise.
func (t Transaction) EffectiveCategory() string {
	if t.CustomCategory != "" {
		return t.CustomCategory
	}
	return t.MonzoCategory
}

// LedgerView converts stored transactions into the aggregator's read-only
// view.
func LedgerView(txns []Transaction) []budget.Transaction {
	view := make([]budget.Transaction, 0, len(txns))
	for _, tx := range txns {
		view = append(view, budget.Transaction{
			Amount:        tx.Amount,
			Category:      tx.EffectiveCategory(),
			Created:       tx.CreatedAt,
			IsPotTransfer: tx.IsPotTransfer,
		})
	}
	return view
}

// RecurringView converts stored transactions into the recurring-payment
// detector's read-only view.
func RecurringView(txns []Transaction) []recurring.Transaction {
	view := make([]recurring.Transaction, 0, len(txns))
	for _, tx := range txns {
		view = append(view, recurring.Transaction{
			MerchantName:  tx.MerchantName,
			Category:      tx.EffectiveCategory(),
			Amount:        tx.Amount,
			Created:       tx.CreatedAt,
			IsPotTransfer: tx.IsPotTransfer,
		})
	}
	return view
}
