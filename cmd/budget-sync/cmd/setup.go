package cmd

import (
	"log/slog"
	"time"

	"github.com/hmarston/monzo-budget/pkg/budget"
	"github.com/hmarston/monzo-budget/pkg/config"
	"github.com/hmarston/monzo-budget/pkg/monzo"
	"github.com/hmarston/monzo-budget/pkg/notify"
	"github.com/hmarston/monzo-budget/pkg/pathutil"
	"github.com/hmarston/monzo-budget/pkg/rules"
	"github.com/hmarston/monzo-budget/pkg/store"
	budgetsync "github.com/hmarston/monzo-budget/pkg/sync"
)

func loadConfig() *config.Config {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")
	return cfg
}

func newResolver(cfg *config.Config) *pathutil.PathResolver {
	return pathutil.New(pathutil.Config{
		DataDir:     cfg.Data.Dir,
		DBPath:      cfg.Data.DBPath,
		RulesPath:   cfg.Data.RulesPath,
		BudgetsPath: cfg.Data.BudgetsPath,
	})
}

func openStore(resolver *pathutil.PathResolver) *store.Store {
	dbPath := resolver.GetDBPath()
	exitOnError(resolver.EnsureParentDir(dbPath), "failed to create data directory")

	slog.Debug("Opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	exitOnError(err, "failed to open database")
	return st
}

// seedDefinitions loads the rules and budgets YAML files, if present, into
// the database. Seeding is an upsert: re-running after an edit updates
// definitions in place while sinking-fund contribution rates stay fixed.
// Budget definitions bind to the first synced account, so budget seeding is
// deferred until a sync has discovered one.
func seedDefinitions(st *store.Store, resolver *pathutil.PathResolver) {
	if rulesPath := resolver.GetRulesPath(); resolver.FileExists(rulesPath) {
		ruleset, err := rules.LoadFile(rulesPath)
		exitOnError(err, "failed to load categorization rules")
		exitOnError(st.SeedRules(ruleset), "failed to seed categorization rules")
		slog.Info("Seeded categorization rules", "path", rulesPath, "count", len(ruleset))
	}

	budgetsPath := resolver.GetBudgetsPath()
	if !resolver.FileExists(budgetsPath) {
		return
	}

	accounts, err := st.ListAccounts()
	exitOnError(err, "failed to list accounts")
	if len(accounts) == 0 {
		slog.Info("No synced account yet, budgets will be seeded after the first sync")
		return
	}

	defs, err := budget.LoadFile(budgetsPath)
	exitOnError(err, "failed to load budget definitions")
	exitOnError(st.SeedBudgets(defs, accounts[0].ID, time.Now().UTC()), "failed to seed budgets")
	slog.Info("Seeded budgets", "path", budgetsPath, "groups", len(defs))
}

func newMonzoClient(cfg *config.Config, st *store.Store) *monzo.Client {
	client := monzo.NewClient(monzo.ClientConfig{
		APIURL:       cfg.Monzo.APIURL,
		AuthURL:      cfg.Monzo.AuthURL,
		ClientID:     cfg.Monzo.ClientID,
		ClientSecret: cfg.Monzo.ClientSecret,
		Timeout:      30 * time.Second,
	})

	token, ok, err := st.GetToken()
	exitOnError(err, "failed to load stored token")
	if !ok && cfg.Monzo.AccessToken != "" {
		// Bootstrap from the environment on first run. Without an expiry we
		// trust the access token until the API rejects it.
		token = monzo.Token{
			AccessToken:  cfg.Monzo.AccessToken,
			RefreshToken: cfg.Monzo.RefreshToken,
			ExpiresAt:    time.Now().Add(time.Hour),
		}
	}
	client.SetToken(token)

	client.OnRefresh(func(t monzo.Token) {
		if err := st.SaveToken(t); err != nil {
			slog.Error("failed to persist refreshed token", "error", err)
		}
	})
	return client
}

func newOrchestrator(cfg *config.Config, st *store.Store, client *monzo.Client) *budgetsync.Orchestrator {
	dispatcher := notify.NewSlackDispatcher(cfg.Slack.WebhookURL)
	return budgetsync.New(st, client, dispatcher, slog.Default(), budgetsync.Config{
		RunTimeout: cfg.Sync.RunTimeout,
	})
}
