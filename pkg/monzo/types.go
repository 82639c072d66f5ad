// Package monzo provides a Monzo API client: paginated transaction fetch,
// balance and pot lookup, and OAuth2 token refresh.
package monzo

import (
	"encoding/json"
	"time"
)

// Account represents a Monzo current account.
type Account struct {
	ID          string `json:"id"`
	Type        string `json:"type"` // uk_retail or uk_retail_joint
	Description string `json:"description"`
	Closed      bool   `json:"closed"`
}

// Merchant represents the expanded merchant object on a transaction.
type Merchant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Transaction represents a transaction as returned by the Monzo API.
// Amounts are signed minor units (pence); spending is negative.
type Transaction struct {
	ID          string            `json:"id"`
	AccountID   string            `json:"account_id"`
	Created     time.Time         `json:"created"`
	Amount      int64             `json:"amount"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Settled     string            `json:"settled"` // RFC3339, empty until settlement
	Scheme      string            `json:"scheme"`  // uk_retail_pot marks pot transfers
	Merchant    *Merchant         `json:"merchant"`
	Metadata    map[string]string `json:"metadata"`

	// Raw is the unmodified API payload, preserved for reclassification
	// and audit. Never populated from local storage.
	Raw json.RawMessage `json:"-"`
}

// MerchantName returns the merchant display name, or empty if the
// transaction has no expanded merchant (e.g. pot transfers).
func (t Transaction) MerchantName() string {
	if t.Merchant != nil {
		return t.Merchant.Name
	}
	return ""
}

// IsPotTransfer reports whether the transaction is a pot-to-pot or
// account-to-pot movement. Transfers are savings, not spend.
func (t Transaction) IsPotTransfer() bool {
	return t.Scheme == "uk_retail_pot"
}

// SettledAt parses the settlement timestamp, returning the zero time for
// unsettled transactions.
func (t Transaction) SettledAt() time.Time {
	if t.Settled == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, t.Settled)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// Pot represents a Monzo savings pot.
type Pot struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
	Deleted bool   `json:"deleted"`
}

// Balance represents the balance response for an account.
type Balance struct {
	Balance    int64  `json:"balance"`
	SpendToday int64  `json:"spend_today"`
	Currency   string `json:"currency"`
}

// Token holds the current OAuth2 access/refresh token pair.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsZero reports whether the token has never been populated.
func (t Token) IsZero() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

type accountsResponse struct {
	Accounts []Account `json:"accounts"`
}

type potsResponse struct {
	Pots []Pot `json:"pots"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}
