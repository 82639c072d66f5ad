package store

import (
	"database/sql"
	"fmt"

	"github.com/hmarston/monzo-budget/pkg/monzo"
)

// SaveToken upserts the single stored token pair, mutated in place by the
// refresh flow.
func (s *Store) SaveToken(token monzo.Token) error {
	query := `
		INSERT INTO auth_token (id, access_token, refresh_token, expires_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.Exec(query, token.AccessToken, token.RefreshToken, token.ExpiresAt); err != nil {
		return fmt.Errorf("failed to save auth token: %w", err)
	}
	return nil
}

// GetToken loads the stored token pair. The second return value is false
// when no token has been stored yet.
func (s *Store) GetToken() (monzo.Token, bool, error) {
	var token monzo.Token
	err := s.QueryRow(
		`SELECT access_token, refresh_token, expires_at FROM auth_token WHERE id = 1`,
	).Scan(&token.AccessToken, &token.RefreshToken, &token.ExpiresAt)
	if err == sql.ErrNoRows {
		return monzo.Token{}, false, nil
	}
	if err != nil {
		return monzo.Token{}, false, fmt.Errorf("failed to get auth token: %w", err)
	}
	return token, true, nil
}
