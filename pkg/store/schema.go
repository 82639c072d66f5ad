package store

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Accounts discovered from the Monzo API. Never deleted while transactions
-- reference them.
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    monzo_id TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL,
    name TEXT,
    balance INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Transaction ledger. monzo_id is the idempotency key: re-ingesting the
-- same transaction updates mutable fields, never duplicates a row.
CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    monzo_id TEXT NOT NULL UNIQUE,
    account_id TEXT NOT NULL REFERENCES accounts(id),
    amount INTEGER NOT NULL,              -- signed pence, spending negative
    merchant_name TEXT,
    monzo_category TEXT,
    custom_category TEXT,                 -- rule-assigned or user override
    is_pot_transfer INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    settled_at TIMESTAMP,
    raw_payload TEXT,                     -- opaque API payload for audit
    notes TEXT,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_transactions_account_created
    ON transactions(account_id, created_at);

CREATE INDEX IF NOT EXISTS idx_transactions_category
    ON transactions(custom_category);

-- Savings pots. Balances are refreshed from the API, never derived locally.
CREATE TABLE IF NOT EXISTS pots (
    id TEXT PRIMARY KEY,
    monzo_id TEXT NOT NULL UNIQUE,
    account_id TEXT NOT NULL REFERENCES accounts(id),
    name TEXT NOT NULL,
    balance INTEGER NOT NULL DEFAULT 0,
    deleted INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS budget_groups (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    name TEXT NOT NULL UNIQUE,
    icon TEXT,
    display_order INTEGER NOT NULL DEFAULT 0
);

-- Spending budgets and sinking funds. Every budget belongs to a group.
-- monthly_contribution and fund_start are fixed at creation and preserved
-- across definition reloads.
CREATE TABLE IF NOT EXISTS budgets (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    group_id TEXT NOT NULL REFERENCES budget_groups(id),
    name TEXT NOT NULL,
    category TEXT NOT NULL,
    period_type TEXT NOT NULL,
    amount INTEGER NOT NULL DEFAULT 0,
    start_day INTEGER NOT NULL DEFAULT 1,
    annual_target INTEGER NOT NULL DEFAULT 0,
    target_month INTEGER NOT NULL DEFAULT 0,
    monthly_contribution INTEGER NOT NULL DEFAULT 0,
    fund_start TIMESTAMP,
    linked_pot_id TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(group_id, name)
);

-- Categorisation rules. created_at plus rowid give the stable creation
-- order used to break equal-priority ties.
CREATE TABLE IF NOT EXISTS category_rules (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    conditions TEXT NOT NULL,             -- JSON array of typed conditions
    target_category TEXT NOT NULL,
    priority INTEGER NOT NULL DEFAULT 50,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL
);

-- One row per orchestrator invocation; doubles as the single-flight gate
-- and the audit trail. Never mutated after completion.
CREATE TABLE IF NOT EXISTS sync_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP,
    status TEXT NOT NULL,                 -- running, success, failed
    transactions_ingested INTEGER NOT NULL DEFAULT 0,
    transactions_skipped INTEGER NOT NULL DEFAULT 0,
    reason_code TEXT,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_status
    ON sync_runs(status);

-- Single logical row holding the current token pair; mutated in place by
-- the refresh flow, never historised.
CREATE TABLE IF NOT EXISTS auth_token (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    access_token TEXT NOT NULL,
    refresh_token TEXT NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Key-value metadata: per-account high-water marks live here.
CREATE TABLE IF NOT EXISTS sync_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`
