// Package budget computes budget and sinking-fund progress from the
// transaction ledger: period windows, per-category spend, group roll-ups and
// contribution projections. Every function is pure over its inputs plus an
// explicit asOf time, so results are deterministic under test.
package budget

import (
	"fmt"
	"time"
)

// PeriodType distinguishes spending budgets from sinking funds.
type PeriodType string

const (
	PeriodWeekly    PeriodType = "weekly"
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodAnnual    PeriodType = "annual"
	PeriodBiAnnual  PeriodType = "bi-annual"
)

// IsSinkingFund reports whether the period type accumulates toward a target
// rather than capping period spend.
func (p PeriodType) IsSinkingFund() bool {
	switch p {
	case PeriodQuarterly, PeriodAnnual, PeriodBiAnnual:
		return true
	}
	return false
}

// Budget is either a spending budget (weekly/monthly limit) or a sinking
// fund (contributions toward an annual target, optionally tracked through a
// linked pot). All amounts are minor units.
type Budget struct {
	ID        string
	AccountID string
	GroupID   string
	Name      string
	Category  string

	PeriodType PeriodType
	Amount     int64 // period spend limit for spending budgets
	StartDay   int   // monthly reset anchor, 1-28

	// Sinking fund fields.
	AnnualTarget int64
	TargetMonth  time.Month
	// MonthlyContribution is fixed at fund creation (AnnualTarget divided by
	// the months until TargetMonth) so the rate never jumps as the target
	// date approaches.
	MonthlyContribution int64
	FundStart           time.Time
	LinkedPotID         string

	CreatedAt time.Time
}

// Validate rejects malformed budgets at creation time.
func (b Budget) Validate() error {
	if b.GroupID == "" {
		return fmt.Errorf("budget %q: group is required, ungrouped budgets are rejected", b.Name)
	}
	if b.Category == "" {
		return fmt.Errorf("budget %q: category is required", b.Name)
	}
	if b.PeriodType.IsSinkingFund() {
		if b.AnnualTarget <= 0 {
			return fmt.Errorf("sinking fund %q: annual target must be positive", b.Name)
		}
		if b.TargetMonth < time.January || b.TargetMonth > time.December {
			return fmt.Errorf("sinking fund %q: target month %d out of range", b.Name, b.TargetMonth)
		}
		return nil
	}
	switch b.PeriodType {
	case PeriodWeekly, PeriodMonthly:
	default:
		return fmt.Errorf("budget %q: unknown period type %q", b.Name, b.PeriodType)
	}
	if b.Amount <= 0 {
		return fmt.Errorf("budget %q: limit must be positive", b.Name)
	}
	if b.StartDay < 1 || b.StartDay > 28 {
		return fmt.Errorf("budget %q: start day %d out of range 1-28", b.Name, b.StartDay)
	}
	return nil
}

// Group is a named roll-up container for budgets.
type Group struct {
	ID           string
	AccountID    string
	Name         string
	Icon         string
	DisplayOrder int
}

// Transaction is the read-only ledger view the aggregator consumes.
type Transaction struct {
	Amount        int64 // signed minor units, spending negative
	Category      string
	Created       time.Time
	IsPotTransfer bool
}
