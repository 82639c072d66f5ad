package budget

import (
	"testing"
	"time"
)

var asOf = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

func spendTx(amount int64, category string) Transaction {
	return Transaction{Amount: amount, Category: category, Created: asOf.AddDate(0, 0, -1)}
}

func monthlyBudget(name, category string, limit int64) Budget {
	return Budget{
		ID:         name,
		GroupID:    "g1",
		Name:       name,
		Category:   category,
		PeriodType: PeriodMonthly,
		Amount:     limit,
		StartDay:   1,
	}
}

func TestSpendExclusions(t *testing.T) {
	period := CurrentPeriod(asOf, 1, PeriodMonthly)
	txns := []Transaction{
		spendTx(-3000, "groceries"),
		spendTx(-2000, "groceries"),
		spendTx(-1500, "eating_out"), // other category
		spendTx(4000, "groceries"),   // refund, not netted
		{Amount: -5000, Category: "groceries", Created: asOf.AddDate(0, 0, -1), IsPotTransfer: true},
		{Amount: -1000, Category: "groceries", Created: asOf.AddDate(0, -3, 0)}, // outside period
	}

	if got := Spend(txns, "groceries", period); got != 5000 {
		t.Errorf("Spend() = %d, expected 5000", got)
	}
}

func TestStatusThresholds(t *testing.T) {
	tests := []struct {
		name       string
		spent      int64
		limit      int64
		wantStatus RAGStatus
		wantPct    float64
	}{
		{"zero spend", 0, 10000, StatusUnder, 0},
		{"just under warning", 7999, 10000, StatusUnder, 79.99},
		{"exactly 80 percent warns", 8000, 10000, StatusWarning, 80},
		{"exactly 100 percent still warning", 10000, 10000, StatusWarning, 100},
		{"a penny over goes over", 10001, 10000, StatusOver, 100.01},
		{"zero limit reports under", 500, 0, StatusUnder, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct, status := statusFor(tt.spent, tt.limit)
			if status != tt.wantStatus {
				t.Errorf("statusFor(%d, %d) status = %s, expected %s", tt.spent, tt.limit, status, tt.wantStatus)
			}
			if pct != tt.wantPct {
				t.Errorf("statusFor(%d, %d) pct = %v, expected %v", tt.spent, tt.limit, pct, tt.wantPct)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	b := monthlyBudget("groceries", "groceries", 10000)
	txns := []Transaction{
		spendTx(-8000, "groceries"),
		spendTx(-500, "eating_out"),
	}

	bs := Status(b, txns, asOf)

	if bs.Spent != 8000 {
		t.Errorf("Spent = %d, expected 8000", bs.Spent)
	}
	if bs.Remaining != 2000 {
		t.Errorf("Remaining = %d, expected 2000", bs.Remaining)
	}
	if bs.Status != StatusWarning {
		t.Errorf("Status = %s, expected warning", bs.Status)
	}
	if !bs.PeriodStart.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PeriodStart = %v", bs.PeriodStart)
	}
}
