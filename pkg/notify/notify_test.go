package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFormatPence(t *testing.T) {
	tests := []struct {
		amount   int64
		expected string
	}{
		{0, "£0.00"},
		{5, "£0.05"},
		{5234, "£52.34"},
		{-5234, "£52.34"},
		{100000, "£1000.00"},
	}

	for _, tt := range tests {
		if got := FormatPence(tt.amount); got != tt.expected {
			t.Errorf("FormatPence(%d) = %q, expected %q", tt.amount, got, tt.expected)
		}
	}
}

func TestThresholdAlertText(t *testing.T) {
	over := ThresholdAlert(ThresholdAlertPayload{
		Category: "groceries", Limit: 10000, Spent: 11000,
		Remaining: -1000, Percentage: 110, Status: "over",
	})
	if over.Type != EventThresholdAlert {
		t.Errorf("event type = %s", over.Type)
	}
	if !strings.Contains(over.Text, "exceeded") || !strings.Contains(over.Text, "£10.00") {
		t.Errorf("over text = %q", over.Text)
	}

	warning := ThresholdAlert(ThresholdAlertPayload{
		Category: "groceries", Limit: 10000, Spent: 8500,
		Remaining: 1500, Percentage: 85, Status: "warning",
	})
	if !strings.Contains(warning.Text, "warning") || !strings.Contains(warning.Text, "£15.00 remaining") {
		t.Errorf("warning text = %q", warning.Text)
	}
}

func TestAuthExpiredEvent(t *testing.T) {
	ev := AuthExpired("token refresh rejected")
	if ev.Type != EventAuthExpired {
		t.Errorf("event type = %s", ev.Type)
	}
	payload, ok := ev.Payload.(AuthExpiredPayload)
	if !ok || payload.Reason != "reauth_required" {
		t.Errorf("payload = %+v", ev.Payload)
	}
}

func TestSyncSummaryEvent(t *testing.T) {
	ev := SyncSummary(SyncSummaryPayload{
		Status: "success", Ingested: 42, Skipped: 1, Duration: 1500 * time.Millisecond,
	})
	if !strings.Contains(ev.Text, "42 transactions ingested") {
		t.Errorf("summary text = %q", ev.Text)
	}
}

func TestSlackDispatcherPostsText(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode webhook body: %v", err)
		}
	}))
	defer server.Close()

	d := NewSlackDispatcher(server.URL)
	ev := SyncSummary(SyncSummaryPayload{Status: "success", Ingested: 5})

	if err := d.Dispatch(context.Background(), ev); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if received["text"] != ev.Text {
		t.Errorf("webhook received %q, expected %q", received["text"], ev.Text)
	}
}

func TestSlackDispatcherEmptyURLIsNoOp(t *testing.T) {
	d := NewSlackDispatcher("")
	if err := d.Dispatch(context.Background(), AuthExpired("x")); err != nil {
		t.Errorf("Dispatch() with empty URL should be a silent no-op, got %v", err)
	}
}

func TestSlackDispatcherSurfacesWebhookError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	d := NewSlackDispatcher(server.URL)
	if err := d.Dispatch(context.Background(), AuthExpired("x")); err == nil {
		t.Error("Dispatch() should report a non-200 webhook response")
	}
}
