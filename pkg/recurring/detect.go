// Package recurring detects subscription-like payment patterns in the
// transaction ledger: spending grouped by merchant, regular intervals,
// estimated monthly cost. Detection is pure over its inputs plus an explicit
// asOf time.
package recurring

import (
	"math"
	"sort"
	"time"
)

// Transaction is the read-only ledger view detection consumes.
type Transaction struct {
	MerchantName  string
	Category      string
	Amount        int64 // signed minor units, spending negative
	Created       time.Time
	IsPotTransfer bool
}

// Pattern is one detected recurring payment.
type Pattern struct {
	MerchantName     string
	Category         string
	AverageAmount    int64 // minor units, absolute
	FrequencyDays    int   // observed mean interval
	FrequencyLabel   string
	TransactionCount int
	MonthlyCost      int64 // AverageAmount scaled to a 30-day month
	LastSeen         time.Time
	NextExpected     time.Time // zero when the prediction is already past
	Confidence       float64   // 0-1, interval regularity x sample size
}

// Config tunes detection sensitivity.
type Config struct {
	// MinOccurrences is the smallest merchant history considered, default 3.
	MinOccurrences int
	// MaxIntervalVariance is the largest allowed coefficient of variation
	// for the intervals between payments, default 0.3.
	MaxIntervalVariance float64
}

func (c Config) withDefaults() Config {
	if c.MinOccurrences == 0 {
		c.MinOccurrences = 3
	}
	if c.MaxIntervalVariance == 0 {
		c.MaxIntervalVariance = 0.3
	}
	return c
}

// Detect groups spending by merchant and reports the merchants whose payment
// intervals are regular enough to be subscriptions, ordered by estimated
// monthly cost, highest first. Income, pot transfers and transactions with
// no merchant never participate.
func Detect(txns []Transaction, asOf time.Time, cfg Config) []Pattern {
	cfg = cfg.withDefaults()

	byMerchant := map[string][]Transaction{}
	for _, tx := range txns {
		if tx.MerchantName == "" || tx.Amount >= 0 || tx.IsPotTransfer {
			continue
		}
		byMerchant[tx.MerchantName] = append(byMerchant[tx.MerchantName], tx)
	}

	var patterns []Pattern
	for merchant, group := range byMerchant {
		if p, ok := analyze(merchant, group, asOf, cfg); ok {
			patterns = append(patterns, p)
		}
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].MonthlyCost != patterns[j].MonthlyCost {
			return patterns[i].MonthlyCost > patterns[j].MonthlyCost
		}
		return patterns[i].MerchantName < patterns[j].MerchantName
	})
	return patterns
}

// analyze decides whether one merchant's payment history is recurring.
func analyze(merchant string, txns []Transaction, asOf time.Time, cfg Config) (Pattern, bool) {
	if len(txns) < cfg.MinOccurrences {
		return Pattern{}, false
	}

	sorted := make([]Transaction, len(txns))
	copy(sorted, txns)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Created.Before(sorted[j].Created) })

	// Intervals in whole days between consecutive payments; same-day pairs
	// (a retried charge) carry no timing signal and are dropped.
	var intervals []float64
	for i := 1; i < len(sorted); i++ {
		days := daysBetween(sorted[i-1].Created, sorted[i].Created)
		if days > 0 {
			intervals = append(intervals, float64(days))
		}
	}
	if len(intervals) < cfg.MinOccurrences-1 {
		return Pattern{}, false
	}

	avgInterval := mean(intervals)
	if avgInterval < 5 {
		// Too frequent to be a subscription: a coffee habit, not a bill.
		return Pattern{}, false
	}

	cv := 0.0
	if len(intervals) > 1 {
		cv = sampleStddev(intervals, avgInterval) / avgInterval
	}
	if cv > cfg.MaxIntervalVariance {
		return Pattern{}, false
	}

	label, normalDays := frequencyLabel(avgInterval)

	var amountSum float64
	for _, tx := range sorted {
		amountSum += float64(-tx.Amount)
	}
	avgAmount := int64(amountSum / float64(len(sorted)))

	lastSeen := sorted[len(sorted)-1].Created
	nextExpected := lastSeen.AddDate(0, 0, int(avgInterval))
	if !nextExpected.After(asOf) {
		nextExpected = time.Time{}
	}

	confidence := (1 - cv) * math.Min(float64(len(sorted))/6, 1)
	if confidence > 1 {
		confidence = 1
	}

	return Pattern{
		MerchantName:     merchant,
		Category:         dominantCategory(sorted),
		AverageAmount:    avgAmount,
		FrequencyDays:    int(avgInterval),
		FrequencyLabel:   label,
		TransactionCount: len(sorted),
		MonthlyCost:      int64(float64(avgAmount) * 30 / float64(normalDays)),
		LastSeen:         lastSeen,
		NextExpected:     nextExpected,
		Confidence:       confidence,
	}, true
}

// frequencyLabel buckets a mean interval into a human cadence and its
// normalized day count for monthly-cost scaling.
func frequencyLabel(avgDays float64) (string, int) {
	switch {
	case avgDays < 10:
		return "weekly", 7
	case avgDays < 20:
		return "fortnightly", 14
	case avgDays < 45:
		return "monthly", 30
	case avgDays < 100:
		return "quarterly", 90
	}
	return "yearly", 365
}

// dominantCategory returns the most frequent category across the payments,
// breaking ties alphabetically so results are deterministic. Uncategorized
// payments count as general.
func dominantCategory(txns []Transaction) string {
	counts := map[string]int{}
	for _, tx := range txns {
		category := tx.Category
		if category == "" {
			category = "general"
		}
		counts[category]++
	}

	best := ""
	for category, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && category < best) {
			best = category
		}
	}
	return best
}

// daysBetween counts calendar days between two instants, ignoring the time
// of day: two charges on the same date are zero days apart.
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStddev is the n-1 standard deviation of the intervals.
func sampleStddev(values []float64, avg float64) float64 {
	var sum float64
	for _, v := range values {
		d := v - avg
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
