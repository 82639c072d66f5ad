package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Account is a locally known Monzo account.
type Account struct {
	ID        string
	MonzoID   string
	Type      string
	Name      string
	Balance   int64
	CreatedAt time.Time
}

// UpsertAccount inserts an account on first discovery or refreshes its
// display name, keyed on the Monzo id. It returns the stored row so the
// caller has the stable local id.
func (s *Store) UpsertAccount(acct Account) (Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}

	query := `
		INSERT INTO accounts (id, monzo_id, type, name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(monzo_id) DO UPDATE SET
			name = excluded.name
	`
	if _, err := s.Exec(query, acct.ID, acct.MonzoID, acct.Type, acct.Name); err != nil {
		return Account{}, fmt.Errorf("failed to upsert account: %w", err)
	}

	stored, err := s.GetAccountByMonzoID(acct.MonzoID)
	if err != nil {
		return Account{}, err
	}
	return *stored, nil
}

// UpdateAccountBalance stores a refreshed balance.
func (s *Store) UpdateAccountBalance(id string, balance int64) error {
	if _, err := s.Exec(`UPDATE accounts SET balance = ? WHERE id = ?`, balance, id); err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}
	return nil
}

// GetAccountByMonzoID retrieves an account by its Monzo id, or nil when
// unknown.
func (s *Store) GetAccountByMonzoID(monzoID string) (*Account, error) {
	query := `
		SELECT id, monzo_id, type, COALESCE(name, ''), balance, created_at
		FROM accounts
		WHERE monzo_id = ?
	`
	var acct Account
	err := s.QueryRow(query, monzoID).Scan(
		&acct.ID, &acct.MonzoID, &acct.Type, &acct.Name, &acct.Balance, &acct.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acct, nil
}

// ListAccounts retrieves all known accounts.
func (s *Store) ListAccounts() ([]Account, error) {
	query := `
		SELECT id, monzo_id, type, COALESCE(name, ''), balance, created_at
		FROM accounts
		ORDER BY created_at
	`
	rows, err := s.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var acct Account
		if err := rows.Scan(
			&acct.ID, &acct.MonzoID, &acct.Type, &acct.Name, &acct.Balance, &acct.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}
