package sim

// #region imports
import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// #endregion

// #region history-interface

// History supplies past enforcement outcomes to the probability model.
type History interface {
	// SuccessRate returns the fraction of recorded outcomes that
	// succeeded; ok is false when nothing is recorded yet.
	SuccessRate() (float64, bool)
	// FailureSummaries returns short descriptions of recorded failures,
	// oldest first.
	FailureSummaries() []string
}

// #endregion history-interface

// #region schema
const historySchema = `
CREATE TABLE IF NOT EXISTS circuit_outcomes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    scenario    TEXT NOT NULL,
    target      TEXT NOT NULL,
    outcome     TEXT NOT NULL,
    summary     TEXT,
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_circuit_outcomes_outcome ON circuit_outcomes(outcome);
`

// #endregion schema

// #region history-store

// OutcomeRecord is one row of enforcement history.
type OutcomeRecord struct {
	Scenario  Scenario
	Target    string
	Success   bool
	Summary   string
	CreatedAt time.Time
}

// HistoryStore persists circuit outcomes in SQLite and serves the History
// interface for probability estimation.
type HistoryStore struct {
	db *sql.DB
}

// OpenHistory opens (or creates) a history database at dbPath.
func OpenHistory(dbPath string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	return NewHistoryStore(db)
}

// NewHistoryStore runs migrations on an existing connection.
func NewHistoryStore(db *sql.DB) (*HistoryStore, error) {
	if _, err := db.Exec(historySchema); err != nil {
		return nil, fmt.Errorf("history schema: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Close closes the underlying database connection.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}

// Record persists one outcome row.
func (h *HistoryStore) Record(rec OutcomeRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	outcome := "failure"
	if rec.Success {
		outcome = "success"
	}
	_, err := h.db.Exec(
		`INSERT INTO circuit_outcomes (scenario, target, outcome, summary, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(rec.Scenario), rec.Target, outcome, rec.Summary,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// SuccessRate computes the global success fraction. Query failures log and
// report no data rather than poisoning the probability model.
func (h *HistoryStore) SuccessRate() (float64, bool) {
	var total, successes int
	err := h.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN outcome = 'success' THEN 1 ELSE 0 END), 0)
		 FROM circuit_outcomes`,
	).Scan(&total, &successes)
	if err != nil {
		log.Printf("[HISTORY] success rate query failed: %v", err)
		return 0, false
	}
	if total == 0 {
		return 0, false
	}
	return float64(successes) / float64(total), true
}

// FailureSummaries returns the summaries of failed outcomes, oldest first.
func (h *HistoryStore) FailureSummaries() []string {
	rows, err := h.db.Query(
		`SELECT COALESCE(summary, '') FROM circuit_outcomes
		 WHERE outcome = 'failure' ORDER BY id ASC`,
	)
	if err != nil {
		log.Printf("[HISTORY] failure query failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			log.Printf("[HISTORY] failure scan failed: %v", err)
			return out
		}
		if s == "" {
			s = "unknown_failure"
		}
		out = append(out, s)
	}
	return out
}

// #endregion history-store
