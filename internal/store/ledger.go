// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	indexDir = "index"
	dbFile   = "runs.db"
)

// Ledger records batch run outcomes in a SQLite database under
// dataDir/index/. It exists for reporting: grouped-by-reason failure
// summaries and per-identifier detail across runs. The file layout in
// records/ and holdings/, not the ledger, remains the idempotency
// authority.
type Ledger struct {
	db *sql.DB
}

// RunRecord is one batch run's ledger row.
type RunRecord struct {
	ID                string
	StartedAt         time.Time
	FinishedAt        time.Time
	Total             int
	CompletedRecords  int
	CompletedHoldings int
	FetchHoldings     bool
	Cancelled         bool
}

// OutcomeRecord is one identifier's outcome within a run.
type OutcomeRecord struct {
	OCN    string
	OK     bool
	Reason string
}

// FailureGroup aggregates failures sharing one reason.
type FailureGroup struct {
	Reason string
	Count  int
}

// OpenLedger opens or creates the run ledger at dataDir/index/runs.db.
func OpenLedger(dataDir string) (*Ledger, error) {
	dbDir := filepath.Join(dataDir, indexDir)
	if err := os.MkdirAll(dbDir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			total INTEGER NOT NULL,
			completed_records INTEGER NOT NULL,
			completed_holdings INTEGER NOT NULL,
			fetch_holdings INTEGER NOT NULL,
			cancelled INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT NOT NULL REFERENCES runs(id),
			ocn TEXT NOT NULL,
			ok INTEGER NOT NULL,
			reason TEXT,
			PRIMARY KEY (run_id, ocn)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run_id ON outcomes(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun stores a run and its per-identifier outcomes in one
// transaction.
func (l *Ledger) SaveRun(ctx context.Context, run RunRecord, outcomes []OutcomeRecord) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning ledger transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, total, completed_records,
			completed_holdings, fetch_holdings, cancelled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Total,
		run.CompletedRecords,
		run.CompletedHoldings,
		boolInt(run.FetchHoldings),
		boolInt(run.Cancelled),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (run_id, ocn, ok, reason) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		if _, err := stmt.ExecContext(ctx, run.ID, o.OCN, boolInt(o.OK), o.Reason); err != nil {
			return fmt.Errorf("inserting outcome for OCN %s: %w", o.OCN, err)
		}
	}

	return tx.Commit()
}

// LatestRun returns the most recently started run, or sql.ErrNoRows
// when the ledger is empty.
func (l *Ledger) LatestRun(ctx context.Context) (RunRecord, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, total, completed_records,
			completed_holdings, fetch_holdings, cancelled
		 FROM runs ORDER BY started_at DESC LIMIT 1`)
	return scanRun(row)
}

// Run returns the run with the given ID, or sql.ErrNoRows when it does
// not exist.
func (l *Ledger) Run(ctx context.Context, id string) (RunRecord, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, total, completed_records,
			completed_holdings, fetch_holdings, cancelled
		 FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// Runs returns up to limit runs, most recent first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, total, completed_records,
			completed_holdings, fetch_holdings, cancelled
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FailureGroups returns the run's failures grouped by reason, largest
// group first.
func (l *Ledger) FailureGroups(ctx context.Context, runID string) ([]FailureGroup, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT reason, COUNT(*) FROM outcomes
		 WHERE run_id = ? AND ok = 0
		 GROUP BY reason ORDER BY COUNT(*) DESC, reason`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying failure groups: %w", err)
	}
	defer rows.Close()

	var groups []FailureGroup
	for rows.Next() {
		var g FailureGroup
		if err := rows.Scan(&g.Reason, &g.Count); err != nil {
			return nil, fmt.Errorf("scanning failure group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Failures returns the run's per-identifier failure detail in OCN order.
func (l *Ledger) Failures(ctx context.Context, runID string) ([]OutcomeRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT ocn, ok, reason FROM outcomes
		 WHERE run_id = ? AND ok = 0 ORDER BY ocn`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying failures: %w", err)
	}
	defer rows.Close()

	var outcomes []OutcomeRecord
	for rows.Next() {
		var o OutcomeRecord
		var ok int
		if err := rows.Scan(&o.OCN, &ok, &o.Reason); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		o.OK = ok != 0
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var run RunRecord
	var started, finished string
	var fetchHoldings, cancelled int
	err := s.Scan(&run.ID, &started, &finished, &run.Total,
		&run.CompletedRecords, &run.CompletedHoldings, &fetchHoldings, &cancelled)
	if err != nil {
		return RunRecord{}, err
	}
	if run.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return RunRecord{}, fmt.Errorf("parsing run start time: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
		return RunRecord{}, fmt.Errorf("parsing run finish time: %w", err)
	}
	run.FetchHoldings = fetchHoldings != 0
	run.Cancelled = cancelled != 0
	return run, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
