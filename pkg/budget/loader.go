package budget

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BudgetDefinition is the YAML shape of one budget inside a group.
type BudgetDefinition struct {
	Name     string     `yaml:"name"`
	Category string     `yaml:"category"`
	Period   PeriodType `yaml:"period"`

	// Spending budgets.
	Limit    int64 `yaml:"limit"`
	StartDay int   `yaml:"start_day"`

	// Sinking funds.
	AnnualTarget int64  `yaml:"annual_target"`
	TargetMonth  int    `yaml:"target_month"`
	Pot          string `yaml:"pot"`
}

// GroupDefinition is the YAML shape of one budget group.
type GroupDefinition struct {
	Name    string             `yaml:"name"`
	Icon    string             `yaml:"icon"`
	Order   int                `yaml:"order"`
	Budgets []BudgetDefinition `yaml:"budgets"`
}

type budgetsFile struct {
	Groups []GroupDefinition `yaml:"groups"`
}

// Materialize converts a definition into a Budget belonging to groupID.
// now anchors sinking-fund creation: the contribution rate is fixed from the
// months remaining until the target month at this moment.
func (d BudgetDefinition) Materialize(accountID, groupID string, now time.Time) Budget {
	b := Budget{
		AccountID:  accountID,
		GroupID:    groupID,
		Name:       d.Name,
		Category:   d.Category,
		PeriodType: d.Period,
		Amount:     d.Limit,
		StartDay:   d.StartDay,
		CreatedAt:  now,
	}
	if d.StartDay == 0 {
		b.StartDay = 1
	}
	if d.Period.IsSinkingFund() {
		b.AnnualTarget = d.AnnualTarget
		b.TargetMonth = time.Month(d.TargetMonth)
		b.LinkedPotID = d.Pot
		b.FundStart = now
		b.MonthlyContribution = MonthlyContribution(
			d.AnnualTarget,
			MonthsUntilTarget(now, b.TargetMonth),
		)
	}
	return b
}

// LoadFile reads group and budget definitions from a YAML file. Definitions
// are validated here, at write time; a malformed budget never reaches the
// aggregator.
func LoadFile(path string) ([]GroupDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read budgets file: %w", err)
	}

	var file budgetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse budgets file: %w", err)
	}

	for _, group := range file.Groups {
		if group.Name == "" {
			return nil, fmt.Errorf("budgets file %s: group name is required", path)
		}
		for _, def := range group.Budgets {
			// Validate against a placeholder group id: YAML budgets are
			// structurally grouped, real ids are assigned on save.
			b := def.Materialize("", group.Name, time.Now())
			if err := b.Validate(); err != nil {
				return nil, fmt.Errorf("budgets file %s: group %q: %w", path, group.Name, err)
			}
		}
	}

	return file.Groups, nil
}
