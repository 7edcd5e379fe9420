// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a SQLite history of export runs and the outcome of
// every region each run visited. Output documents are append-only, so the
// ledger is how a user finds out which run put which image where.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/sheetdoc/pkg/types"
)

// DefaultPath returns the ledger location for an output directory.
func DefaultPath(outputDir string) string {
	return filepath.Join(outputDir, ".sheetdoc", "history.db")
}

// Store is an open ledger database.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens or creates the ledger at path and creates the schema if it
// does not exist.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			workbook TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			pages_visited INTEGER NOT NULL DEFAULT 0,
			contributions INTEGER NOT NULL DEFAULT 0,
			not_found INTEGER NOT NULL DEFAULT 0,
			render_failures INTEGER NOT NULL DEFAULT 0,
			persist_failures INTEGER NOT NULL DEFAULT 0,
			aborted INTEGER NOT NULL DEFAULT 0,
			error TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			page_index INTEGER NOT NULL,
			page_name TEXT NOT NULL,
			region TEXT NOT NULL,
			topic TEXT,
			document TEXT,
			outcome TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_document ON records(document)`,
		`CREATE INDEX IF NOT EXISTS idx_records_outcome ON records(outcome)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordRun stores a finished run and its records in one transaction and
// returns the run ID. runErr is the error Run returned, if any.
func (s *Store) RecordRun(ctx context.Context, summary *types.RunSummary, runErr error) (int64, error) {
	if summary == nil {
		return 0, fmt.Errorf("nil summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	finished := ""
	if !summary.FinishedAt.IsZero() {
		finished = summary.FinishedAt.UTC().Format(time.RFC3339Nano)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (workbook, output_dir, started_at, finished_at, pages_visited,
			contributions, not_found, render_failures, persist_failures, aborted, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.Workbook, summary.OutputDir,
		summary.StartedAt.UTC().Format(time.RFC3339Nano), finished,
		summary.PagesVisited, summary.Contributions, len(summary.NotFound),
		len(summary.RenderFailures), len(summary.PersistFailures),
		summary.Aborted, errText,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (run_id, seq, page_index, page_name, region, topic, document, outcome, attempts, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range summary.Records {
		_, err := stmt.ExecContext(ctx,
			runID, r.Seq, r.PageIndex, r.PageName, r.Region,
			r.Topic, r.Document, string(r.Outcome), r.Attempts, r.Error,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting record %d: %w", r.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}
