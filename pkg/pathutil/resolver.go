// Package pathutil provides centralized path management for the budget
// sync data directory.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// PathResolver manages paths for the local database and definition files.
type PathResolver struct {
	dataDir     string
	dbPath      string
	rulesPath   string
	budgetsPath string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// DataDir is the root directory for all local state (e.g., ~/.budget-sync)
	DataDir string
	// DBPath is the path to the SQLite database file
	DBPath string
	// RulesPath is the path to the categorization rules YAML file
	RulesPath string
	// BudgetsPath is the path to the budget definitions YAML file
	BudgetsPath string
}

// New creates a new PathResolver with the given configuration.
// If DBPath is empty, it defaults to {DataDir}/budget.db.
// If RulesPath is empty, it defaults to {DataDir}/rules.yaml.
// If BudgetsPath is empty, it defaults to {DataDir}/budgets.yaml.
func New(config Config) *PathResolver {
	dbPath := config.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(config.DataDir, "budget.db")
	}

	rulesPath := config.RulesPath
	if rulesPath == "" {
		rulesPath = filepath.Join(config.DataDir, "rules.yaml")
	}

	budgetsPath := config.BudgetsPath
	if budgetsPath == "" {
		budgetsPath = filepath.Join(config.DataDir, "budgets.yaml")
	}

	return &PathResolver{
		dataDir:     config.DataDir,
		dbPath:      dbPath,
		rulesPath:   rulesPath,
		budgetsPath: budgetsPath,
	}
}

// GetDataDir returns the data root directory.
func (p *PathResolver) GetDataDir() string {
	return p.dataDir
}

// GetDBPath returns the database file path.
func (p *PathResolver) GetDBPath() string {
	return p.dbPath
}

// GetRulesPath returns the rules YAML file path.
func (p *PathResolver) GetRulesPath() string {
	return p.rulesPath
}

// GetBudgetsPath returns the budgets YAML file path.
func (p *PathResolver) GetBudgetsPath() string {
	return p.budgetsPath
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return p.EnsureDir(dir)
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
