package recurring

import (
	"testing"
	"time"
)

// monthlyCharges builds count charges of the same amount, 30 days apart.
func monthlyCharges(merchant string, amount int64, count int, start time.Time) []Transaction {
	txns := make([]Transaction, 0, count)
	for i := 0; i < count; i++ {
		txns = append(txns, Transaction{
			MerchantName: merchant,
			Category:     "entertainment",
			Amount:       -amount,
			Created:      start.AddDate(0, 0, 30*i),
		})
	}
	return txns
}

func TestFrequencyLabel(t *testing.T) {
	tests := []struct {
		avgDays  float64
		label    string
		normDays int
	}{
		{7, "weekly", 7},
		{9.9, "weekly", 7},
		{10, "fortnightly", 14},
		{14, "fortnightly", 14},
		{30, "monthly", 30},
		{44.9, "monthly", 30},
		{90, "quarterly", 90},
		{100, "yearly", 365},
		{365, "yearly", 365},
	}
	for _, tc := range tests {
		label, days := frequencyLabel(tc.avgDays)
		if label != tc.label || days != tc.normDays {
			t.Errorf("frequencyLabel(%v) = %q/%d, want %q/%d", tc.avgDays, label, days, tc.label, tc.normDays)
		}
	}
}

func TestDetectMonthlyPattern(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	asOf := start.AddDate(0, 0, 30*5+10)

	patterns := Detect(monthlyCharges("Netflix", 1599, 6, start), asOf, Config{})
	if len(patterns) != 1 {
		t.Fatalf("Detect() found %d patterns, want 1", len(patterns))
	}

	p := patterns[0]
	if p.MerchantName != "Netflix" {
		t.Errorf("MerchantName = %q, want Netflix", p.MerchantName)
	}
	if p.FrequencyLabel != "monthly" {
		t.Errorf("FrequencyLabel = %q, want monthly", p.FrequencyLabel)
	}
	if p.TransactionCount != 6 {
		t.Errorf("TransactionCount = %d, want 6", p.TransactionCount)
	}
	if p.AverageAmount != 1599 {
		t.Errorf("AverageAmount = %d, want 1599", p.AverageAmount)
	}
	// A 30-day cadence scales 1:1 into a monthly cost.
	if p.MonthlyCost != 1599 {
		t.Errorf("MonthlyCost = %d, want 1599", p.MonthlyCost)
	}
	if p.Category != "entertainment" {
		t.Errorf("Category = %q, want entertainment", p.Category)
	}
	want := start.AddDate(0, 0, 30*5+30)
	if !p.NextExpected.Equal(want) {
		t.Errorf("NextExpected = %v, want %v", p.NextExpected, want)
	}
}

func TestDetectTooFewOccurrences(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	patterns := Detect(monthlyCharges("Netflix", 1599, 2, start), start.AddDate(0, 3, 0), Config{})
	if len(patterns) != 0 {
		t.Fatalf("Detect() found %d patterns, want 0 for two charges", len(patterns))
	}
}

func TestDetectTooFrequentIsNotASubscription(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var txns []Transaction
	for i := 0; i < 5; i++ {
		txns = append(txns, Transaction{
			MerchantName: "TfL", Category: "transport", Amount: -500,
			Created: start.AddDate(0, 0, 2*i),
		})
	}
	patterns := Detect(txns, start.AddDate(0, 1, 0), Config{})
	if len(patterns) != 0 {
		t.Fatalf("Detect() found %d patterns, want 0 for a 2-day cadence", len(patterns))
	}
}

func TestDetectRejectsIrregularIntervals(t *testing.T) {
	// Gaps of 7, 45, 10 and 60 days: spending, not a subscription.
	days := []int{0, 7, 52, 62, 122}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var txns []Transaction
	for _, d := range days {
		txns = append(txns, Transaction{
			MerchantName: "Random Shop", Category: "general", Amount: -1000,
			Created: start.AddDate(0, 0, d),
		})
	}
	patterns := Detect(txns, start.AddDate(0, 5, 0), Config{})
	if len(patterns) != 0 {
		t.Fatalf("Detect() found %d patterns, want 0 for irregular intervals", len(patterns))
	}
}

func TestDetectConfidenceGrowsWithHistory(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	few := Detect(monthlyCharges("Netflix", 1599, 3, start), asOf, Config{})
	many := Detect(monthlyCharges("Netflix", 1599, 8, start), asOf, Config{})
	if len(few) != 1 || len(many) != 1 {
		t.Fatalf("Detect() = %d and %d patterns, want 1 each", len(few), len(many))
	}
	if many[0].Confidence < few[0].Confidence {
		t.Errorf("confidence fell with more history: %v < %v", many[0].Confidence, few[0].Confidence)
	}
	if many[0].Confidence > 1 {
		t.Errorf("Confidence = %v, want <= 1", many[0].Confidence)
	}
}

func TestDetectLapsedSubscriptionHasNoNextExpected(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	patterns := Detect(monthlyCharges("Old Sub", 1000, 4, start), asOf, Config{})
	if len(patterns) != 1 {
		t.Fatalf("Detect() found %d patterns, want 1", len(patterns))
	}
	if !patterns[0].NextExpected.IsZero() {
		t.Errorf("NextExpected = %v, want zero for a prediction already past", patterns[0].NextExpected)
	}
}

func TestDetectUsesDominantCategory(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	txns := monthlyCharges("Spotify", 999, 4, start)
	txns[1].Category = "bills"
	txns[2].Category = "bills"
	txns[3].Category = "bills"

	patterns := Detect(txns, start.AddDate(0, 4, 0), Config{})
	if len(patterns) != 1 {
		t.Fatalf("Detect() found %d patterns, want 1", len(patterns))
	}
	if patterns[0].Category != "bills" {
		t.Errorf("Category = %q, want bills", patterns[0].Category)
	}
}

func TestDetectGroupsByMerchantAndRanksByMonthlyCost(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	asOf := start.AddDate(0, 5, 0)

	var txns []Transaction
	txns = append(txns, monthlyCharges("Cheap Sub", 500, 4, start)...)
	txns = append(txns, monthlyCharges("Expensive Sub", 5000, 4, start)...)
	// Below the occurrence threshold: never reported.
	txns = append(txns, monthlyCharges("Random Shop", 2000, 2, start)...)

	patterns := Detect(txns, asOf, Config{})
	if len(patterns) != 2 {
		t.Fatalf("Detect() found %d patterns, want 2", len(patterns))
	}
	if patterns[0].MerchantName != "Expensive Sub" || patterns[1].MerchantName != "Cheap Sub" {
		t.Errorf("order = %q, %q; want Expensive Sub first", patterns[0].MerchantName, patterns[1].MerchantName)
	}
}

func TestDetectIgnoresIncomePotTransfersAndBareMerchants(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var txns []Transaction
	for i := 0; i < 4; i++ {
		created := start.AddDate(0, 0, 30*i)
		txns = append(txns,
			Transaction{MerchantName: "Employer", Amount: 250000, Created: created},
			Transaction{MerchantName: "Savings Pot", Amount: -10000, Created: created, IsPotTransfer: true},
			Transaction{MerchantName: "", Amount: -999, Created: created},
		)
	}
	patterns := Detect(txns, start.AddDate(0, 4, 0), Config{})
	if len(patterns) != 0 {
		t.Fatalf("Detect() found %d patterns, want 0", len(patterns))
	}
}

func TestDetectSameDayChargesCarryNoSignal(t *testing.T) {
	// Three charges on one day plus one a month later: only one usable
	// interval, below the threshold.
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	txns := []Transaction{
		{MerchantName: "Shop", Amount: -100, Created: start},
		{MerchantName: "Shop", Amount: -100, Created: start.Add(2 * time.Hour)},
		{MerchantName: "Shop", Amount: -100, Created: start.Add(5 * time.Hour)},
		{MerchantName: "Shop", Amount: -100, Created: start.AddDate(0, 0, 30)},
	}
	patterns := Detect(txns, start.AddDate(0, 2, 0), Config{})
	if len(patterns) != 0 {
		t.Fatalf("Detect() found %d patterns, want 0", len(patterns))
	}
}
