// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/sheetdoc/pkg/types"
)

const defaultLimit = 20

// Run is one row of the runs table.
type Run struct {
	ID              int64     `json:"id" yaml:"id"`
	Workbook        string    `json:"workbook" yaml:"workbook"`
	OutputDir       string    `json:"output_dir" yaml:"output_dir"`
	StartedAt       time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt      time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	PagesVisited    int       `json:"pages_visited" yaml:"pages_visited"`
	Contributions   int       `json:"contributions" yaml:"contributions"`
	NotFound        int       `json:"not_found" yaml:"not_found"`
	RenderFailures  int       `json:"render_failures" yaml:"render_failures"`
	PersistFailures int       `json:"persist_failures" yaml:"persist_failures"`
	Aborted         bool      `json:"aborted,omitempty" yaml:"aborted,omitempty"`
	Error           string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the run would have exited non-zero.
func (r Run) Failed() bool {
	return r.Aborted || r.Error != "" || r.RenderFailures > 0 || r.PersistFailures > 0
}

// QueryOptions filters Runs. Zero values match everything.
type QueryOptions struct {
	Workbook string
	Document string // runs that contributed to this document
	Limit    int
}

// Runs returns matching runs, newest first.
func (s *Store) Runs(ctx context.Context, opts QueryOptions) ([]Run, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var conditions []string
	var args []any
	if opts.Workbook != "" {
		conditions = append(conditions, "r.workbook = ?")
		args = append(args, opts.Workbook)
	}
	if opts.Document != "" {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM records x WHERE x.run_id = r.id AND x.document = ? AND x.outcome = ?)")
		args = append(args, opts.Document, string(types.OutcomeContributed))
	}

	query := `SELECT r.id, r.workbook, r.output_dir, r.started_at, COALESCE(r.finished_at, ''),
		r.pages_visited, r.contributions, r.not_found, r.render_failures, r.persist_failures,
		r.aborted, COALESCE(r.error, '')
		FROM runs r`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY r.id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &r.Workbook, &r.OutputDir, &started, &finished,
			&r.PagesVisited, &r.Contributions, &r.NotFound, &r.RenderFailures, &r.PersistFailures,
			&r.Aborted, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns a single run by ID.
func (s *Store) Run(ctx context.Context, id int64) (*Run, error) {
	var (
		r                 Run
		started, finished string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, workbook, output_dir, started_at, COALESCE(finished_at, ''),
			pages_visited, contributions, not_found, render_failures, persist_failures,
			aborted, COALESCE(error, '')
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.Workbook, &r.OutputDir, &started, &finished,
		&r.PagesVisited, &r.Contributions, &r.NotFound, &r.RenderFailures, &r.PersistFailures,
		&r.Aborted, &r.Error)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %d: %w", id, err)
	}
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished)
	return &r, nil
}

// Records returns the records of a run in traversal order. A non-empty
// outcome restricts the result to that outcome.
func (s *Store) Records(ctx context.Context, runID int64, outcome types.Outcome) ([]types.Record, error) {
	query := `SELECT seq, page_index, page_name, region, COALESCE(topic, ''), COALESCE(document, ''),
		outcome, attempts, COALESCE(error, '')
		FROM records WHERE run_id = ?`
	args := []any{runID}
	if outcome != "" {
		query += " AND outcome = ?"
		args = append(args, string(outcome))
	}
	query += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		var (
			r       types.Record
			outcome string
		)
		if err := rows.Scan(&r.Seq, &r.PageIndex, &r.PageName, &r.Region, &r.Topic, &r.Document,
			&outcome, &r.Attempts, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Outcome = types.Outcome(outcome)
		records = append(records, r)
	}
	return records, rows.Err()
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
