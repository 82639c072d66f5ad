package budget

import "time"

// Period is a half-open [Start, End) window.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// CurrentPeriod computes the active budget window for asOf.
//
// Monthly budgets anchor on startDay: the window runs from the most recent
// occurrence of that day of the month to the next, half-open. startDay is
// clamped to 1-28 so the anchor exists in every month. Weekly budgets are
// Monday-anchored 7-day windows.
func CurrentPeriod(asOf time.Time, startDay int, periodType PeriodType) Period {
	if periodType == PeriodWeekly {
		daysSinceMonday := (int(asOf.Weekday()) + 6) % 7
		start := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location()).
			AddDate(0, 0, -daysSinceMonday)
		return Period{Start: start, End: start.AddDate(0, 0, 7)}
	}

	if startDay < 1 {
		startDay = 1
	}
	if startDay > 28 {
		startDay = 28
	}

	year, month := asOf.Year(), asOf.Month()
	var start time.Time
	if asOf.Day() >= startDay {
		start = time.Date(year, month, startDay, 0, 0, 0, 0, asOf.Location())
	} else {
		start = time.Date(year, month, startDay, 0, 0, 0, 0, asOf.Location()).AddDate(0, -1, 0)
	}
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}
