package audit

// #region imports
import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #endregion

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	action        TEXT NOT NULL,
	actor         TEXT NOT NULL,
	details_json  TEXT,
	previous_hash TEXT NOT NULL,
	entry_hash    TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_entries_run ON audit_entries(run_id);
`

// #endregion schema

// #region store-struct
// Store persists audit chains in SQLite, keyed by run. One trail per run;
// chain order is the insertion order of rows.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region save
// SaveTrail persists every entry of a trail under runID in one transaction.
func (s *Store) SaveTrail(runID string, t *Trail) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range t.entries {
		var detailsPtr interface{}
		if len(e.Details) > 0 {
			data, err := json.Marshal(e.Details)
			if err != nil {
				return fmt.Errorf("marshal details: %w", err)
			}
			detailsPtr = string(data)
		}
		_, err = tx.Exec(
			`INSERT INTO audit_entries (run_id, action, actor, details_json, previous_hash, entry_hash, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, e.Action, e.Actor, detailsPtr, e.PreviousHash, e.EntryHash,
			e.Timestamp.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}

	return tx.Commit()
}

// #endregion save

// #region load
// LoadTrail reads the chain for runID in insertion order.
func (s *Store) LoadTrail(runID string) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT action, actor, details_json, previous_hash, entry_hash, created_at
		 FROM audit_entries WHERE run_id = ? ORDER BY id ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("load trail %s: %w", runID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var detailsJSON sql.NullString
		var createdStr string
		if err := rows.Scan(&e.Action, &e.Actor, &detailsJSON, &e.PreviousHash, &e.EntryHash, &createdStr); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if detailsJSON.Valid {
			if err := json.Unmarshal([]byte(detailsJSON.String), &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details: %w", err)
			}
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListRuns returns the distinct run IDs, most recent first.
func (s *Store) ListRuns(limit int) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT run_id FROM audit_entries GROUP BY run_id ORDER BY MAX(id) DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

// #endregion load
