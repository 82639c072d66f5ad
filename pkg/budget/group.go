package budget

import "time"

// GroupStatus is the roll-up of a group's child budget statuses. Totals are
// arithmetic sums and the group status is the worst child status: one
// over-budget child makes the whole group over.
type GroupStatus struct {
	GroupID    string
	Name       string
	TotalLimit int64
	TotalSpent int64
	Remaining  int64
	Percentage float64
	Status     RAGStatus
	Budgets    []BudgetStatus
}

// StatusForGroup computes the roll-up for every spending budget in the
// group. Sinking funds are reported separately and do not participate in
// spend roll-ups. An empty group reports under with zero totals.
func StatusForGroup(g Group, budgets []Budget, txns []Transaction, asOf time.Time) GroupStatus {
	gs := GroupStatus{
		GroupID: g.ID,
		Name:    g.Name,
		Status:  StatusUnder,
	}

	for _, b := range budgets {
		if b.GroupID != g.ID || b.PeriodType.IsSinkingFund() {
			continue
		}
		bs := Status(b, txns, asOf)
		gs.Budgets = append(gs.Budgets, bs)
		gs.TotalLimit += bs.Limit
		gs.TotalSpent += bs.Spent
		if bs.Status.rank() > gs.Status.rank() {
			gs.Status = bs.Status
		}
	}

	gs.Remaining = gs.TotalLimit - gs.TotalSpent
	gs.Percentage, _ = statusForPercentage(gs.TotalSpent, gs.TotalLimit)
	return gs
}

// statusForPercentage exposes the percentage half of statusFor for roll-up
// totals, where the status itself comes from the worst child instead.
func statusForPercentage(spent, limit int64) (float64, RAGStatus) {
	return statusFor(spent, limit)
}

// Summary is the dashboard roll-up across all groups.
type Summary struct {
	Groups     []GroupStatus
	TotalLimit int64
	TotalSpent int64
	Remaining  int64
	Percentage float64
	Status     RAGStatus
}

// Summarize rolls every group up into a single dashboard view. The overall
// status follows the same worst-child policy as group statuses.
func Summarize(groups []Group, budgets []Budget, txns []Transaction, asOf time.Time) Summary {
	summary := Summary{Status: StatusUnder}
	for _, g := range groups {
		gs := StatusForGroup(g, budgets, txns, asOf)
		summary.Groups = append(summary.Groups, gs)
		summary.TotalLimit += gs.TotalLimit
		summary.TotalSpent += gs.TotalSpent
		if gs.Status.rank() > summary.Status.rank() {
			summary.Status = gs.Status
		}
	}
	summary.Remaining = summary.TotalLimit - summary.TotalSpent
	summary.Percentage, _ = statusForPercentage(summary.TotalSpent, summary.TotalLimit)
	return summary
}
