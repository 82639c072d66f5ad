package monzo

import (
	"errors"
	"fmt"
)

// ErrReauthRequired is returned when the refresh token itself has expired.
// The caller must treat this as terminal: no retry will succeed until the
// user re-authorises the app.
var ErrReauthRequired = errors.New("monzo: re-authentication required")

// APIError represents an error response from the Monzo API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("monzo API error (status %d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("monzo API error (status %d): %s", e.StatusCode, e.Code)
}

// IsRetryable returns true if the request might succeed on retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// IsRateLimited returns true if the API asked us to back off.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsRetryable reports whether err is a transient failure (network error,
// request timeout, or a 5xx response) worth retrying within the same run.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	if errors.Is(err, ErrReauthRequired) {
		return false
	}
	// Transport-level failures (connection refused, client timeout) arrive
	// as *url.Error; treat anything that is not an API response as transient.
	return err != nil && !errors.As(err, &apiErr)
}

// IsRateLimited reports whether err is a 429 response.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsRateLimited()
}
