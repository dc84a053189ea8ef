// Package audit keeps the local ledger of transform runs and re-checks
// emitted reports against the pipeline's output contract.
package audit

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"plainview/internal/model"
)

const schemaVersion = 1

// Run is one ledger row: the audit-relevant numbers of a transform.
type Run struct {
	RunID          string    `json:"run_id"`
	Source         string    `json:"source"`
	Mode           string    `json:"mode"`
	RulesetVersion string    `json:"ruleset_version"`
	OracleProvider string    `json:"oracle_provider"`
	GeneratedAt    time.Time `json:"generated_at"`
	Atoms          int       `json:"atoms"`
	Included       int       `json:"included"`
	Excluded       int       `json:"excluded"`
	Diagnostics    int       `json:"diagnostics"`
}

// Ledger records every transform run in a local SQLite database.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at path and migrates the schema.
// The parent directory is created if it does not exist.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		mode TEXT NOT NULL,
		ruleset_version TEXT NOT NULL,
		oracle_provider TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		atoms INTEGER NOT NULL,
		included INTEGER NOT NULL,
		excluded INTEGER NOT NULL,
		diagnostics INTEGER NOT NULL,
		report_json TEXT NOT NULL,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_generated ON runs(generated_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
	`
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var n int
	if err := l.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&n); err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}
	if n == 0 {
		if _, err := l.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (l *Ledger) Close() error { return l.db.Close() }

// Record appends one run. The full report is stored alongside the
// summary columns so show and verify can work from the ledger alone.
func (l *Ledger) Record(rep *model.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = l.db.Exec(`
		INSERT INTO runs (run_id, source, mode, ruleset_version, oracle_provider,
			generated_at, atoms, included, excluded, diagnostics, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.RunID, rep.Source, string(rep.Mode), rep.RulesetVersion, rep.OracleProvider,
		rep.GeneratedAt.UTC().Format(time.RFC3339), rep.Counts.Atoms,
		rep.Counts.Included, rep.Counts.Excluded, len(rep.Diagnostics), string(data))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (l *Ledger) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.Query(`
		SELECT run_id, source, mode, ruleset_version, oracle_provider,
			generated_at, atoms, included, excluded, diagnostics
		FROM runs ORDER BY generated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		var generated string
		if err := rows.Scan(&r.RunID, &r.Source, &r.Mode, &r.RulesetVersion,
			&r.OracleProvider, &generated, &r.Atoms, &r.Included, &r.Excluded,
			&r.Diagnostics); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.GeneratedAt, _ = time.Parse(time.RFC3339, generated)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get loads the full stored report for one run.
func (l *Ledger) Get(runID string) (*model.Report, error) {
	var data string
	err := l.db.QueryRow("SELECT report_json FROM runs WHERE run_id = ?", runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	var rep model.Report
	if err := json.Unmarshal([]byte(data), &rep); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &rep, nil
}
