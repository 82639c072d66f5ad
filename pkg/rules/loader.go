package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ruleDefinition is the YAML shape of one rule in a rules file.
type ruleDefinition struct {
	Name           string      `yaml:"name"`
	TargetCategory string      `yaml:"target_category"`
	Priority       int         `yaml:"priority"`
	Enabled        *bool       `yaml:"enabled"`
	Conditions     []Condition `yaml:"conditions"`
}

type rulesFile struct {
	Rules []ruleDefinition `yaml:"rules"`
}

// LoadFile reads rule definitions from a YAML file. Every rule is validated
// here, at save time: a malformed definition fails the load and never
// reaches the evaluator.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	ruleset := make([]Rule, 0, len(file.Rules))
	for i, def := range file.Rules {
		enabled := true
		if def.Enabled != nil {
			enabled = *def.Enabled
		}
		rule := Rule{
			Name:           def.Name,
			Conditions:     def.Conditions,
			TargetCategory: def.TargetCategory,
			Priority:       def.Priority,
			Enabled:        enabled,
			Seq:            int64(i),
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rules file %s: %w", path, err)
		}
		ruleset = append(ruleset, rule)
	}

	return ruleset, nil
}
