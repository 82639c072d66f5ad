package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hmarston/monzo-budget/pkg/rules"
)

// CreateRule validates and persists a new categorisation rule. Malformed
// rules are rejected here, at save time; the evaluator never sees them.
func (s *Store) CreateRule(rule rules.Rule) (rules.Rule, error) {
	if err := rule.Validate(); err != nil {
		return rules.Rule{}, err
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return rules.Rule{}, fmt.Errorf("failed to encode rule conditions: %w", err)
	}

	query := `
		INSERT INTO category_rules (id, name, conditions, target_category, priority, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.Exec(query,
		rule.ID, rule.Name, string(conditions), rule.TargetCategory,
		rule.Priority, rule.Enabled, rule.CreatedAt,
	); err != nil {
		return rules.Rule{}, fmt.Errorf("failed to create rule: %w", err)
	}
	return rule, nil
}

// UpdateRule validates and rewrites an existing rule. The creation timestamp
// and rowid are untouched, so updates never change tie-break order.
func (s *Store) UpdateRule(rule rules.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode rule conditions: %w", err)
	}

	result, err := s.Exec(
		`UPDATE category_rules
		 SET name = ?, conditions = ?, target_category = ?, priority = ?, enabled = ?
		 WHERE id = ?`,
		rule.Name, string(conditions), rule.TargetCategory, rule.Priority, rule.Enabled, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("rule %s not found", rule.ID)
	}
	return nil
}

// DeleteRule removes a rule.
func (s *Store) DeleteRule(id string) (bool, error) {
	result, err := s.Exec(`DELETE FROM category_rules WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete rule: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// SeedRules upserts rule definitions keyed on name, so a rules file can be
// reloaded without disturbing creation order for existing rules.
func (s *Store) SeedRules(ruleset []rules.Rule) error {
	for _, rule := range ruleset {
		if err := rule.Validate(); err != nil {
			return err
		}
		conditions, err := json.Marshal(rule.Conditions)
		if err != nil {
			return fmt.Errorf("failed to encode rule conditions: %w", err)
		}

		query := `
			INSERT INTO category_rules (id, name, conditions, target_category, priority, enabled, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				conditions = excluded.conditions,
				target_category = excluded.target_category,
				priority = excluded.priority,
				enabled = excluded.enabled
		`
		if _, err := s.Exec(query,
			uuid.NewString(), rule.Name, string(conditions), rule.TargetCategory,
			rule.Priority, rule.Enabled, time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("failed to seed rule %q: %w", rule.Name, err)
		}
	}
	return nil
}

// ListRules retrieves all rules in evaluation order: ascending priority,
// then creation time, then insertion order.
func (s *Store) ListRules() ([]rules.Rule, error) {
	return s.listRules(`
		SELECT id, name, conditions, target_category, priority, enabled, created_at, rowid
		FROM category_rules
		ORDER BY priority, created_at, rowid
	`)
}

// ListEnabledRules retrieves the enabled rules in evaluation order.
func (s *Store) ListEnabledRules() ([]rules.Rule, error) {
	return s.listRules(`
		SELECT id, name, conditions, target_category, priority, enabled, created_at, rowid
		FROM category_rules
		WHERE enabled = 1
		ORDER BY priority, created_at, rowid
	`)
}

func (s *Store) listRules(query string) ([]rules.Rule, error) {
	rows, err := s.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var ruleset []rules.Rule
	for rows.Next() {
		var rule rules.Rule
		var conditions string
		if err := rows.Scan(
			&rule.ID, &rule.Name, &conditions, &rule.TargetCategory,
			&rule.Priority, &rule.Enabled, &rule.CreatedAt, &rule.Seq,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
			return nil, fmt.Errorf("failed to decode conditions for rule %s: %w", rule.ID, err)
		}
		ruleset = append(ruleset, rule)
	}
	return ruleset, rows.Err()
}
