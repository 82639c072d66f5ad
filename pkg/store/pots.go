package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Pot is a stored savings pot. Balance is refreshed from the API on every
// sync; deleted pots are soft-flagged, never removed.
type Pot struct {
	ID        string
	MonzoID   string
	AccountID string
	Name      string
	Balance   int64
	Deleted   bool
	UpdatedAt time.Time
}

// UpsertPot inserts or refreshes a pot keyed on the Monzo id.
func (s *Store) UpsertPot(pot Pot) error {
	if pot.ID == "" {
		pot.ID = uuid.NewString()
	}

	query := `
		INSERT INTO pots (id, monzo_id, account_id, name, balance, deleted)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(monzo_id) DO UPDATE SET
			name = excluded.name,
			balance = excluded.balance,
			deleted = excluded.deleted,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.Exec(query, pot.ID, pot.MonzoID, pot.AccountID, pot.Name, pot.Balance, pot.Deleted)
	if err != nil {
		return fmt.Errorf("failed to upsert pot %s: %w", pot.MonzoID, err)
	}
	return nil
}

// GetPotBalance returns the stored balance for a pot by Monzo id. The second
// return value is false when the pot is unknown.
func (s *Store) GetPotBalance(monzoID string) (int64, bool, error) {
	var balance int64
	err := s.QueryRow(`SELECT balance FROM pots WHERE monzo_id = ?`, monzoID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get pot balance: %w", err)
	}
	return balance, true, nil
}

// ListPots retrieves all pots for an account, including soft-deleted ones.
func (s *Store) ListPots(accountID string) ([]Pot, error) {
	rows, err := s.Query(
		`SELECT id, monzo_id, account_id, name, balance, deleted, updated_at
		 FROM pots WHERE account_id = ? ORDER BY name`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pots: %w", err)
	}
	defer rows.Close()

	var pots []Pot
	for rows.Next() {
		var pot Pot
		if err := rows.Scan(
			&pot.ID, &pot.MonzoID, &pot.AccountID, &pot.Name, &pot.Balance, &pot.Deleted, &pot.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pot: %w", err)
		}
		pots = append(pots, pot)
	}
	return pots, rows.Err()
}
