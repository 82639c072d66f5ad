package budget

import (
	"time"

	"github.com/shopspring/decimal"
)

// SinkingFundStatus is the computed progress of a sinking fund against the
// balance of its linked pot.
type SinkingFundStatus struct {
	BudgetID            string
	Name                string
	Category            string
	AnnualTarget        int64
	MonthlyContribution int64
	TargetMonth         time.Month
	MonthsElapsed       int
	MonthsRemaining     int
	PotBalance          int64
	ExpectedBalance     int64
	Variance            int64 // pot balance minus expected, negative = behind
	ProjectedBalance    int64
	OnTrack             bool
}

// MonthsUntilTarget counts whole months from the given date to the next
// occurrence of targetMonth, in 1-12. A fund created in its own target month
// saves toward next year's bill.
func MonthsUntilTarget(from time.Time, targetMonth time.Month) int {
	months := int(targetMonth) - int(from.Month())
	if months <= 0 {
		months += 12
	}
	return months
}

// MonthlyContribution fixes the per-month saving rate at fund creation:
// the annual target spread over the months until the target date. It is
// deliberately never recomputed from elapsed time, so the rate does not
// jump as the target approaches.
func MonthlyContribution(annualTarget int64, monthsUntilTarget int) int64 {
	if monthsUntilTarget <= 0 {
		return annualTarget
	}
	return decimal.NewFromInt(annualTarget).
		DivRound(decimal.NewFromInt(int64(monthsUntilTarget)), 0).
		IntPart()
}

// monthsBetween counts whole calendar months from a to b, ignoring the day
// component. Negative spans clamp to zero.
func monthsBetween(a, b time.Time) int {
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if months < 0 {
		return 0
	}
	return months
}

// FundStatus computes sinking-fund progress as of a given time. potBalance
// is the linked pot's refreshed balance; funds without a linked pot report
// against a zero balance.
func FundStatus(b Budget, potBalance int64, asOf time.Time) SinkingFundStatus {
	monthsTotal := MonthsUntilTarget(b.FundStart, b.TargetMonth)

	elapsed := monthsBetween(b.FundStart, asOf)
	if elapsed > monthsTotal {
		elapsed = monthsTotal
	}
	remaining := monthsTotal - elapsed

	expected := b.MonthlyContribution * int64(elapsed)
	variance := potBalance - expected

	return SinkingFundStatus{
		BudgetID:            b.ID,
		Name:                b.Name,
		Category:            b.Category,
		AnnualTarget:        b.AnnualTarget,
		MonthlyContribution: b.MonthlyContribution,
		TargetMonth:         b.TargetMonth,
		MonthsElapsed:       elapsed,
		MonthsRemaining:     remaining,
		PotBalance:          potBalance,
		ExpectedBalance:     expected,
		Variance:            variance,
		ProjectedBalance:    potBalance + b.MonthlyContribution*int64(remaining),
		OnTrack:             variance >= 0,
	}
}
