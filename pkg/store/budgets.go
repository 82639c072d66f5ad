package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hmarston/monzo-budget/pkg/budget"
)

// CreateGroup persists a budget group.
func (s *Store) CreateGroup(group budget.Group) (budget.Group, error) {
	if group.Name == "" {
		return budget.Group{}, fmt.Errorf("budget group: name is required")
	}
	if group.ID == "" {
		group.ID = uuid.NewString()
	}

	query := `
		INSERT INTO budget_groups (id, account_id, name, icon, display_order)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.Exec(query, group.ID, group.AccountID, group.Name, group.Icon, group.DisplayOrder); err != nil {
		return budget.Group{}, fmt.Errorf("failed to create budget group: %w", err)
	}
	return group, nil
}

// ListGroups retrieves all budget groups in display order.
func (s *Store) ListGroups() ([]budget.Group, error) {
	rows, err := s.Query(`
		SELECT id, account_id, name, COALESCE(icon, ''), display_order
		FROM budget_groups
		ORDER BY display_order, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list budget groups: %w", err)
	}
	defer rows.Close()

	var groups []budget.Group
	for rows.Next() {
		var g budget.Group
		if err := rows.Scan(&g.ID, &g.AccountID, &g.Name, &g.Icon, &g.DisplayOrder); err != nil {
			return nil, fmt.Errorf("failed to scan budget group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// CreateBudget validates and persists a budget. Ungrouped budgets are
// rejected here by Validate.
func (s *Store) CreateBudget(b budget.Budget) (budget.Budget, error) {
	if err := b.Validate(); err != nil {
		return budget.Budget{}, err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO budgets (
			id, account_id, group_id, name, category, period_type, amount,
			start_day, annual_target, target_month, monthly_contribution,
			fund_start, linked_pot_id, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.Exec(query,
		b.ID, b.AccountID, b.GroupID, b.Name, b.Category, string(b.PeriodType),
		b.Amount, b.StartDay, b.AnnualTarget, int(b.TargetMonth),
		b.MonthlyContribution, nullableTime(b.FundStart), b.LinkedPotID, b.CreatedAt,
	); err != nil {
		return budget.Budget{}, fmt.Errorf("failed to create budget: %w", err)
	}
	return b, nil
}

// SeedBudgets upserts group and budget definitions from a budgets file.
// Groups are keyed on name, budgets on (group, name). Sinking-fund
// contribution rate and start are fixed at first creation and preserved on
// reloads.
func (s *Store) SeedBudgets(defs []budget.GroupDefinition, accountID string, now time.Time) error {
	for _, groupDef := range defs {
		groupQuery := `
			INSERT INTO budget_groups (id, account_id, name, icon, display_order)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				account_id = excluded.account_id,
				icon = excluded.icon,
				display_order = excluded.display_order
		`
		if _, err := s.Exec(groupQuery,
			uuid.NewString(), accountID, groupDef.Name, groupDef.Icon, groupDef.Order,
		); err != nil {
			return fmt.Errorf("failed to seed budget group %q: %w", groupDef.Name, err)
		}

		var groupID string
		if err := s.QueryRow(
			`SELECT id FROM budget_groups WHERE name = ?`, groupDef.Name,
		).Scan(&groupID); err != nil {
			return fmt.Errorf("failed to resolve budget group %q: %w", groupDef.Name, err)
		}

		for _, def := range groupDef.Budgets {
			b := def.Materialize(accountID, groupID, now)
			if err := b.Validate(); err != nil {
				return err
			}

			query := `
				INSERT INTO budgets (
					id, account_id, group_id, name, category, period_type, amount,
					start_day, annual_target, target_month, monthly_contribution,
					fund_start, linked_pot_id, created_at
				)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(group_id, name) DO UPDATE SET
					account_id = excluded.account_id,
					category = excluded.category,
					period_type = excluded.period_type,
					amount = excluded.amount,
					start_day = excluded.start_day,
					annual_target = excluded.annual_target,
					target_month = excluded.target_month,
					linked_pot_id = excluded.linked_pot_id
			`
			if _, err := s.Exec(query,
				uuid.NewString(), accountID, groupID, b.Name, b.Category,
				string(b.PeriodType), b.Amount, b.StartDay, b.AnnualTarget,
				int(b.TargetMonth), b.MonthlyContribution, nullableTime(b.FundStart),
				b.LinkedPotID, b.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to seed budget %q: %w", b.Name, err)
			}
		}
	}
	return nil
}

// ListBudgets retrieves all budgets.
func (s *Store) ListBudgets() ([]budget.Budget, error) {
	rows, err := s.Query(`
		SELECT id, account_id, group_id, name, category, period_type, amount,
		       start_day, annual_target, target_month, monthly_contribution,
		       fund_start, COALESCE(linked_pot_id, ''), created_at
		FROM budgets
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []budget.Budget
	for rows.Next() {
		var b budget.Budget
		var periodType string
		var targetMonth int
		var fundStart sql.NullTime
		if err := rows.Scan(
			&b.ID, &b.AccountID, &b.GroupID, &b.Name, &b.Category, &periodType,
			&b.Amount, &b.StartDay, &b.AnnualTarget, &targetMonth,
			&b.MonthlyContribution, &fundStart, &b.LinkedPotID, &b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		b.PeriodType = budget.PeriodType(periodType)
		b.TargetMonth = time.Month(targetMonth)
		if fundStart.Valid {
			b.FundStart = fundStart.Time
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
