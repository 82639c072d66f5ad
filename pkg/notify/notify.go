// Package notify builds structured notification events and dispatches them
// to an external webhook. The core guarantees payload correctness only;
// delivery and final message formatting belong to the dispatcher side.
package notify

import (
	"context"
	"fmt"
	"time"
)

// EventType identifies a notification event.
type EventType string

const (
	EventDailyDigest    EventType = "daily_digest"
	EventThresholdAlert EventType = "threshold_alert"
	EventAuthExpired    EventType = "auth_expired"
	EventSyncSummary    EventType = "sync_summary"
)

// Event is one structured notification. Payload carries the machine-readable
// detail; Text is the human-readable fallback.
type Event struct {
	Type    EventType   `json:"type"`
	Text    string      `json:"text"`
	Payload interface{} `json:"payload"`
}

// Dispatcher delivers events to an external system. Dispatch failures must
// never fail a sync run; callers log and continue.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// ThresholdAlertPayload reports a budget crossing into warning or over.
type ThresholdAlertPayload struct {
	Budget     string  `json:"budget"`
	Category   string  `json:"category"`
	Limit      int64   `json:"limit"`
	Spent      int64   `json:"spent"`
	Remaining  int64   `json:"remaining"`
	Percentage float64 `json:"percentage"`
	Status     string  `json:"status"`
}

// AuthExpiredPayload reports a dead refresh token requiring user action.
type AuthExpiredPayload struct {
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

// SyncSummaryPayload reports the outcome of a sync run.
type SyncSummaryPayload struct {
	Status     string        `json:"status"`
	Ingested   int64         `json:"ingested"`
	Skipped    int64         `json:"skipped"`
	Duration   time.Duration `json:"duration"`
	ReasonCode string        `json:"reason_code,omitempty"`
}

// DailyDigestPayload summarises one day's spending for an account.
type DailyDigestPayload struct {
	Date             string `json:"date"`
	Account          string `json:"account"`
	TotalSpend       int64  `json:"total_spend"`
	TransactionCount int    `json:"transaction_count"`
	TopCategory      string `json:"top_category"`
	TopCategorySpend int64  `json:"top_category_spend"`
}

// FormatPence formats minor units as a GBP amount, e.g. 5234 -> "£52.34".
// The sign is dropped; callers say "over by" or "remaining" themselves.
func FormatPence(amount int64) string {
	if amount < 0 {
		amount = -amount
	}
	return fmt.Sprintf("£%d.%02d", amount/100, amount%100)
}

// ThresholdAlert builds a threshold_alert event.
func ThresholdAlert(p ThresholdAlertPayload) Event {
	var text string
	if p.Status == "over" {
		text = fmt.Sprintf("Budget exceeded: %s at %.0f%% (over by %s)",
			p.Category, p.Percentage, FormatPence(-p.Remaining))
	} else {
		text = fmt.Sprintf("Budget warning: %s at %.0f%% (%s remaining)",
			p.Category, p.Percentage, FormatPence(p.Remaining))
	}
	return Event{Type: EventThresholdAlert, Text: text, Payload: p}
}

// AuthExpired builds an auth_expired event.
func AuthExpired(detail string) Event {
	return Event{
		Type: EventAuthExpired,
		Text: "Monzo authentication expired - please re-authorise the app",
		Payload: AuthExpiredPayload{
			Reason: "reauth_required",
			Detail: detail,
		},
	}
}

// SyncSummary builds a sync_summary event.
func SyncSummary(p SyncSummaryPayload) Event {
	text := fmt.Sprintf("Sync %s: %d transactions ingested, %d skipped (%s)",
		p.Status, p.Ingested, p.Skipped, p.Duration.Round(time.Millisecond))
	return Event{Type: EventSyncSummary, Text: text, Payload: p}
}

// DailyDigest builds a daily_digest event.
func DailyDigest(p DailyDigestPayload) Event {
	text := fmt.Sprintf("Daily summary for %s (%s): %s across %d transactions, top category %s (%s)",
		p.Date, p.Account, FormatPence(p.TotalSpend), p.TransactionCount,
		p.TopCategory, FormatPence(p.TopCategorySpend))
	return Event{Type: EventDailyDigest, Text: text, Payload: p}
}
