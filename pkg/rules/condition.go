// Package rules implements the deterministic transaction categorisation
// engine: an ordered set of rules, each a conjunction of typed conditions.
package rules

import (
	"fmt"
	"strings"
	"time"
)

// ConditionKind identifies a condition variant. Representing conditions as a
// tagged union keeps the evaluator exhaustive and makes a malformed
// condition a construction-time error, not an evaluation-time surprise.
type ConditionKind string

const (
	KindMerchantContains  ConditionKind = "merchant_contains"
	KindMerchantExact     ConditionKind = "merchant_exact"
	KindAmountGreaterThan ConditionKind = "amount_greater_than"
	KindAmountLessThan    ConditionKind = "amount_less_than"
	KindAmountBetween     ConditionKind = "amount_between"
	KindDayOfWeekIn       ConditionKind = "day_of_week_in"
	KindCategoryEquals    ConditionKind = "category_equals"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Condition is one typed matcher. Exactly the fields for its Kind are set;
// Validate enforces this at save time so Matches never has to error.
// Amounts are signed minor units: spending is negative, so a rule targeting
// purchases over £50 uses amount_less_than with -5000.
type Condition struct {
	Kind ConditionKind `json:"kind" yaml:"kind"`

	Merchant string   `json:"merchant,omitempty" yaml:"merchant,omitempty"`
	Amount   *int64   `json:"amount,omitempty" yaml:"amount,omitempty"`
	Min      *int64   `json:"min,omitempty" yaml:"min,omitempty"`
	Max      *int64   `json:"max,omitempty" yaml:"max,omitempty"`
	Days     []string `json:"days,omitempty" yaml:"days,omitempty"`
	Category string   `json:"category,omitempty" yaml:"category,omitempty"`
}

// Validate checks that the condition carries the fields its kind requires.
func (c Condition) Validate() error {
	switch c.Kind {
	case KindMerchantContains, KindMerchantExact:
		if c.Merchant == "" {
			return fmt.Errorf("condition %s: merchant is required", c.Kind)
		}
	case KindAmountGreaterThan, KindAmountLessThan:
		if c.Amount == nil {
			return fmt.Errorf("condition %s: amount is required", c.Kind)
		}
	case KindAmountBetween:
		if c.Min == nil || c.Max == nil {
			return fmt.Errorf("condition %s: min and max are required", c.Kind)
		}
		if *c.Min > *c.Max {
			return fmt.Errorf("condition %s: min %d exceeds max %d", c.Kind, *c.Min, *c.Max)
		}
	case KindDayOfWeekIn:
		if len(c.Days) == 0 {
			return fmt.Errorf("condition %s: at least one day is required", c.Kind)
		}
		for _, day := range c.Days {
			if _, ok := weekdayNames[strings.ToLower(day)]; !ok {
				return fmt.Errorf("condition %s: unknown day %q", c.Kind, day)
			}
		}
	case KindCategoryEquals:
		if c.Category == "" {
			return fmt.Errorf("condition %s: category is required", c.Kind)
		}
	default:
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}
	return nil
}

// matches evaluates the condition against a transaction. It assumes the
// condition has been validated and is therefore total.
func (c Condition) matches(tx Transaction) bool {
	switch c.Kind {
	case KindMerchantContains:
		if tx.MerchantName == "" {
			return false
		}
		return strings.Contains(strings.ToLower(tx.MerchantName), strings.ToLower(c.Merchant))
	case KindMerchantExact:
		if tx.MerchantName == "" {
			return false
		}
		return strings.EqualFold(tx.MerchantName, c.Merchant)
	case KindAmountGreaterThan:
		return c.Amount != nil && tx.Amount > *c.Amount
	case KindAmountLessThan:
		return c.Amount != nil && tx.Amount < *c.Amount
	case KindAmountBetween:
		// Inclusive on both bounds.
		return c.Min != nil && c.Max != nil && tx.Amount >= *c.Min && tx.Amount <= *c.Max
	case KindDayOfWeekIn:
		weekday := tx.Created.Weekday()
		for _, day := range c.Days {
			if weekdayNames[strings.ToLower(day)] == weekday {
				return true
			}
		}
		return false
	case KindCategoryEquals:
		return tx.LedgerCategory == c.Category
	default:
		return false
	}
}
