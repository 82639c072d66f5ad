package rules

import (
	"fmt"
	"sort"
	"time"
)

// Transaction is the read-only view of a transaction the engine evaluates.
type Transaction struct {
	Amount         int64 // signed minor units, spending negative
	MerchantName   string
	LedgerCategory string // category assigned by the bank
	UserCategory   string // manual or rule-assigned override, empty if unset
	Created        time.Time
}

// Rule maps a conjunction of conditions to a target category. Lower Priority
// values are evaluated first; ties are broken by creation order (CreatedAt,
// then Seq, the insertion sequence).
type Rule struct {
	ID             string
	Name           string
	Conditions     []Condition
	TargetCategory string
	Priority       int
	Enabled        bool
	CreatedAt      time.Time
	Seq            int64
}

// Validate rejects malformed rules at save time so evaluation is total.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule: name is required")
	}
	if r.TargetCategory == "" {
		return fmt.Errorf("rule %q: target category is required", r.Name)
	}
	if len(r.Conditions) == 0 {
		return fmt.Errorf("rule %q: at least one condition is required", r.Name)
	}
	for i, cond := range r.Conditions {
		if err := cond.Validate(); err != nil {
			return fmt.Errorf("rule %q condition %d: %w", r.Name, i, err)
		}
	}
	return nil
}

// Matches reports whether every condition of the rule matches. A rule with
// zero conditions is misconfigured and never matches.
func (r Rule) Matches(tx Transaction) bool {
	if !r.Enabled || len(r.Conditions) == 0 {
		return false
	}
	for _, cond := range r.Conditions {
		if !cond.matches(tx) {
			return false
		}
	}
	return true
}

// Sort orders rules for evaluation: ascending priority, then creation time,
// then insertion sequence. The sort is stable so equal-priority rules keep a
// deterministic order across repeated evaluations.
func Sort(ruleset []Rule) {
	sort.SliceStable(ruleset, func(i, j int) bool {
		if ruleset[i].Priority != ruleset[j].Priority {
			return ruleset[i].Priority < ruleset[j].Priority
		}
		if !ruleset[i].CreatedAt.Equal(ruleset[j].CreatedAt) {
			return ruleset[i].CreatedAt.Before(ruleset[j].CreatedAt)
		}
		return ruleset[i].Seq < ruleset[j].Seq
	})
}

// Categorize resolves the category for a transaction:
//
//  1. an existing user override is never recategorised,
//  2. otherwise the first matching enabled rule in evaluation order wins,
//  3. otherwise the bank's own category stands.
func Categorize(tx Transaction, ruleset []Rule) string {
	if tx.UserCategory != "" {
		return tx.UserCategory
	}

	ordered := make([]Rule, len(ruleset))
	copy(ordered, ruleset)
	Sort(ordered)

	for _, rule := range ordered {
		if rule.Matches(tx) {
			return rule.TargetCategory
		}
	}

	return tx.LedgerCategory
}
