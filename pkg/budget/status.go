package budget

import (
	"time"

	"github.com/shopspring/decimal"
)

// RAGStatus classifies budget consumption.
type RAGStatus string

const (
	StatusUnder   RAGStatus = "under"   // below 80% of limit
	StatusWarning RAGStatus = "warning" // 80-100% inclusive
	StatusOver    RAGStatus = "over"    // strictly above 100%
)

// rank orders statuses from best to worst for group roll-ups.
func (s RAGStatus) rank() int {
	switch s {
	case StatusWarning:
		return 1
	case StatusOver:
		return 2
	}
	return 0
}

// BudgetStatus is the computed state of one spending budget for a period.
type BudgetStatus struct {
	BudgetID    string
	Name        string
	Category    string
	Limit       int64
	Spent       int64
	Remaining   int64
	Percentage  float64
	Status      RAGStatus
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// Spend sums the absolute value of negative-amount transactions in the given
// category and window. Refunds and income (positive amounts) are excluded,
// and pot transfers are excluded on either side: a transfer is savings, not
// spend.
func Spend(txns []Transaction, category string, period Period) int64 {
	var total int64
	for _, tx := range txns {
		if tx.Amount >= 0 || tx.IsPotTransfer {
			continue
		}
		if tx.Category != category || !period.Contains(tx.Created) {
			continue
		}
		total += -tx.Amount
	}
	return total
}

// statusFor maps a spent/limit pair onto the threshold bands. Exactly 80%
// is already a warning; over requires strictly more than 100%.
func statusFor(spent, limit int64) (float64, RAGStatus) {
	if limit <= 0 {
		return 0, StatusUnder
	}
	pct := decimal.NewFromInt(spent).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(limit))

	status := StatusUnder
	switch {
	case pct.GreaterThan(decimal.NewFromInt(100)):
		status = StatusOver
	case pct.GreaterThanOrEqual(decimal.NewFromInt(80)):
		status = StatusWarning
	}

	rounded, _ := pct.Round(2).Float64()
	return rounded, status
}

// Status computes a spending budget's state for the period containing asOf.
// txns is the candidate ledger slice; filtering by category and window
// happens here, so callers may pass a superset.
func Status(b Budget, txns []Transaction, asOf time.Time) BudgetStatus {
	period := CurrentPeriod(asOf, b.StartDay, b.PeriodType)
	spent := Spend(txns, b.Category, period)
	pct, status := statusFor(spent, b.Amount)

	return BudgetStatus{
		BudgetID:    b.ID,
		Name:        b.Name,
		Category:    b.Category,
		Limit:       b.Amount,
		Spent:       spent,
		Remaining:   b.Amount - spent,
		Percentage:  pct,
		Status:      status,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
	}
}
