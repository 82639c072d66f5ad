package monzo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultPageSize is the transaction page size requested from the API.
	DefaultPageSize = 100

	// tokenExpiryBuffer refreshes the token slightly before it expires so a
	// long pagination loop does not hit a mid-run 401.
	tokenExpiryBuffer = 5 * time.Minute
)

// ClientConfig represents the configuration for the Monzo API client.
type ClientConfig struct {
	APIURL       string
	AuthURL      string // token endpoint host; defaults to APIURL
	ClientID     string
	ClientSecret string
	Timeout      time.Duration // Default: 30 seconds
	PageSize     int           // Default: 100
}

// Client is a Monzo API client. It is safe for use from a single sync run;
// token state is guarded so a refresh triggered by one request is visible
// to the next.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	authURL      string
	clientID     string
	clientSecret string
	pageSize     int

	mu        sync.Mutex
	token     Token
	onRefresh func(Token)
}

// NewClient creates a new Monzo API client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	pageSize := config.PageSize
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	authURL := config.AuthURL
	if authURL == "" {
		authURL = config.APIURL
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:      strings.TrimRight(config.APIURL, "/"),
		authURL:      strings.TrimRight(authURL, "/"),
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		pageSize:     pageSize,
	}
}

// SetToken installs the stored token pair.
func (c *Client) SetToken(token Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// CurrentToken returns the token pair currently in use.
func (c *Client) CurrentToken() Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// OnRefresh registers a callback invoked with every refreshed token pair so
// the caller can persist it.
func (c *Client) OnRefresh(fn func(Token)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRefresh = fn
}

// EnsureToken returns a usable token, refreshing first when the stored one
// is expired or close to expiry. A missing token or a failed refresh yields
// ErrReauthRequired.
func (c *Client) EnsureToken(ctx context.Context) (Token, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token.IsZero() {
		return Token{}, fmt.Errorf("no stored token: %w", ErrReauthRequired)
	}
	if time.Now().Add(tokenExpiryBuffer).Before(token.ExpiresAt) {
		return token, nil
	}
	return c.refreshToken(ctx)
}

// refreshToken exchanges the refresh token for a new pair. A rejection from
// the token endpoint means the refresh token is dead and the user must
// re-authorise, so it maps to ErrReauthRequired rather than a retryable error.
func (c *Client) refreshToken(ctx context.Context) (Token, error) {
	c.mu.Lock()
	refresh := c.token.RefreshToken
	c.mu.Unlock()

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("refresh_token", refresh)

	req, err := http.NewRequestWithContext(ctx, "POST", c.authURL+"/oauth2/token", strings.NewReader(data.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("token refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 500 {
			return Token{}, c.parseError(resp)
		}
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return Token{}, fmt.Errorf("token refresh rejected (%s): %w", errResp.Code, ErrReauthRequired)
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return Token{}, fmt.Errorf("failed to decode token response: %w", err)
	}

	newToken := Token{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}

	c.mu.Lock()
	c.token = newToken
	onRefresh := c.onRefresh
	c.mu.Unlock()

	if onRefresh != nil {
		onRefresh(newToken)
	}

	return newToken, nil
}

// get performs an authenticated GET and decodes the response into out.
// On a 401 it attempts exactly one refresh-and-retry.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	resp, err := c.doGet(ctx, path, query)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if _, err := c.refreshToken(ctx); err != nil {
			return err
		}
		resp, err = c.doGet(ctx, path, query)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint = fmt.Sprintf("%s?%s", endpoint, query.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.mu.Lock()
	accessToken := c.token.AccessToken
	c.mu.Unlock()

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	return resp, nil
}

// FetchAccounts lists the user's accounts.
func (c *Client) FetchAccounts(ctx context.Context) ([]Account, error) {
	var resp accountsResponse
	if err := c.get(ctx, "/accounts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

// FetchBalance fetches the current balance for an account.
func (c *Client) FetchBalance(ctx context.Context, accountID string) (Balance, error) {
	query := url.Values{}
	query.Set("account_id", accountID)

	var balance Balance
	if err := c.get(ctx, "/balance", query, &balance); err != nil {
		return Balance{}, err
	}
	return balance, nil
}

// FetchPots lists the pots attached to an account, including soft-deleted ones.
func (c *Client) FetchPots(ctx context.Context, accountID string) ([]Pot, error) {
	query := url.Values{}
	query.Set("current_account_id", accountID)

	var resp potsResponse
	if err := c.get(ctx, "/pots", query, &resp); err != nil {
		return nil, err
	}
	return resp.Pots, nil
}

// FetchTransactions fetches one page of transactions for an account.
// since is the high-water mark cursor (a transaction id, or empty for the
// full history). It returns the page, the cursor to pass for the next page,
// and done=true when a short page signals the stream is exhausted.
func (c *Client) FetchTransactions(ctx context.Context, accountID, since string) ([]Transaction, string, bool, error) {
	query := url.Values{}
	query.Set("account_id", accountID)
	query.Set("limit", fmt.Sprintf("%d", c.pageSize))
	query.Set("expand[]", "merchant")
	if since != "" {
		query.Set("since", since)
	}

	// Decode each element twice: once into the typed struct, once kept raw
	// for the audit payload.
	var resp struct {
		Transactions []json.RawMessage `json:"transactions"`
	}
	if err := c.get(ctx, "/transactions", query, &resp); err != nil {
		return nil, "", false, err
	}

	txns := make([]Transaction, 0, len(resp.Transactions))
	for _, raw := range resp.Transactions {
		var tx Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			return nil, "", false, fmt.Errorf("failed to decode transaction: %w", err)
		}
		tx.Raw = raw
		txns = append(txns, tx)
	}

	next := since
	if len(txns) > 0 {
		next = txns[len(txns)-1].ID
	}

	// A full page may be followed by more data. Only a short page proves the
	// stream is exhausted; stopping early would silently drop transactions.
	done := len(txns) < c.pageSize
	return txns, next, done, nil
}

// FetchAllTransactions pages through every transaction for an account since
// the given cursor.
func (c *Client) FetchAllTransactions(ctx context.Context, accountID, since string) ([]Transaction, error) {
	var all []Transaction
	cursor := since

	for {
		page, next, done, err := c.FetchTransactions(ctx, accountID, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch transactions (since=%q): %w", cursor, err)
		}
		all = append(all, page...)
		if done {
			break
		}
		cursor = next
	}

	return all, nil
}

// parseError parses an error response from the Monzo API.
func (c *Client) parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "failed to read error response"}
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	code := errResp.Code
	if code == "" {
		code = errResp.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Code: code, Message: errResp.Message}
}
