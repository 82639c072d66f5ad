package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Run statuses.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// SyncRun is one orchestrator invocation: created at sync start, finalized
// at sync end, never mutated afterwards.
type SyncRun struct {
	ID                   int64
	StartedAt            time.Time
	CompletedAt          sql.NullTime
	Status               string
	TransactionsIngested int64
	TransactionsSkipped  int64
	ReasonCode           string
	Error                string
}

// StartRun records a new running sync run and returns its id.
func (s *Store) StartRun(startedAt time.Time) (int64, error) {
	result, err := s.Exec(
		`INSERT INTO sync_runs (started_at, status) VALUES (?, ?)`,
		startedAt, RunStatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to start sync run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get sync run id: %w", err)
	}
	return id, nil
}

// HasRunningRun reports whether a sync run is currently marked running.
func (s *Store) HasRunningRun() (bool, error) {
	var count int
	err := s.QueryRow(
		`SELECT COUNT(*) FROM sync_runs WHERE status = ?`, RunStatusRunning,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check running sync runs: %w", err)
	}
	return count > 0, nil
}

// FailStaleRuns marks running rows started before the cutoff as failed.
// A run row is a single-flight signal, not a lock: a process that crashed
// mid-run must not block every future run. Returns the number of rows
// expired.
func (s *Store) FailStaleRuns(cutoff time.Time, reasonCode string) (int64, error) {
	result, err := s.Exec(
		`UPDATE sync_runs
		 SET completed_at = ?, status = ?, reason_code = ?, error = 'run abandoned without finalizing'
		 WHERE status = ? AND started_at < ?`,
		time.Now().UTC(), RunStatusFailed, reasonCode, RunStatusRunning, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale sync runs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired sync runs: %w", err)
	}
	return n, nil
}

// FinalizeRun completes a sync run with its outcome.
func (s *Store) FinalizeRun(id int64, status string, ingested, skipped int64, reasonCode, errText string) error {
	_, err := s.Exec(
		`UPDATE sync_runs
		 SET completed_at = ?, status = ?, transactions_ingested = ?,
		     transactions_skipped = ?, reason_code = NULLIF(?, ''), error = NULLIF(?, '')
		 WHERE id = ?`,
		time.Now().UTC(), status, ingested, skipped, reasonCode, errText, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize sync run: %w", err)
	}
	return nil
}

// LatestRun retrieves the most recent sync run, or nil when none exist.
func (s *Store) LatestRun() (*SyncRun, error) {
	row := s.QueryRow(`
		SELECT id, started_at, completed_at, status, transactions_ingested,
		       transactions_skipped, COALESCE(reason_code, ''), COALESCE(error, '')
		FROM sync_runs
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`)

	var run SyncRun
	err := row.Scan(
		&run.ID, &run.StartedAt, &run.CompletedAt, &run.Status,
		&run.TransactionsIngested, &run.TransactionsSkipped,
		&run.ReasonCode, &run.Error,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest sync run: %w", err)
	}
	return &run, nil
}

// HighWaterMark returns the ingestion cursor for an account from the last
// successful run, or empty when the account has never fully synced.
func (s *Store) HighWaterMark(accountMonzoID string) (string, error) {
	return s.getMetadata("hwm:" + accountMonzoID)
}

// SetHighWaterMark stores the ingestion cursor for an account. Only advanced
// after every page for the account was fetched and persisted, so a partial
// failure is retried from the previous mark on the next run.
func (s *Store) SetHighWaterMark(accountMonzoID, cursor string) error {
	return s.setMetadata("hwm:"+accountMonzoID, cursor)
}

func (s *Store) getMetadata(key string) (string, error) {
	var value string
	err := s.QueryRow(`SELECT value FROM sync_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}
	return value, nil
}

func (s *Store) setMetadata(key, value string) error {
	query := `
		INSERT INTO sync_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}
	return nil
}
