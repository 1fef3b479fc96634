// Package triagehistory appends one row per triage run to a local sqlite
// file, generalizing the teacher's engine.Recorder (a ring buffer of live
// ticks) into an append-only log of completed dump analyses, so a team
// running dumptriage over many incidents can query trends with sqlite3
// directly. Only used when the CLI is given --history-db PATH; the core
// snapshot/reasoner packages never import this package.
package triagehistory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chrono-triage/dumptriage/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	ran_at           TEXT NOT NULL,
	dump_path        TEXT NOT NULL,
	runtime          TEXT NOT NULL,
	finding_count    INTEGER NOT NULL,
	critical_count   INTEGER NOT NULL,
	warning_count    INTEGER NOT NULL,
	top_finding      TEXT NOT NULL
);`

// Store is a handle on one history database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path and ensures
// its schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("triagehistory: open %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("triagehistory: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Run is one recorded triage outcome.
type Run struct {
	ID        string
	RanAt     time.Time
	DumpPath  string
	RuntimeID string
	Findings  []model.Finding
}

// Record inserts one row summarizing run's findings: counts by severity and
// the title of the most severe finding.
func (s *Store) Record(ctx context.Context, run Run) error {
	var critical, warning int
	top := ""
	topSeverity := model.SeverityInfo
	for _, f := range run.Findings {
		switch f.Severity {
		case model.SeverityCritical:
			critical++
		case model.SeverityWarning:
			warning++
		}
		if f.Severity >= topSeverity || top == "" {
			topSeverity = f.Severity
			top = f.Title
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, ran_at, dump_path, runtime, finding_count, critical_count, warning_count, top_finding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RanAt.Format(time.RFC3339), run.DumpPath, run.RuntimeID,
		len(run.Findings), critical, warning, top,
	)
	if err != nil {
		return fmt.Errorf("triagehistory: insert run: %w", err)
	}
	return nil
}

// Recent returns the n most recently recorded runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ran_at, dump_path, runtime, top_finding FROM runs ORDER BY ran_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("triagehistory: query recent: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var ranAt, top string
		if err := rows.Scan(&r.ID, &ranAt, &r.DumpPath, &r.RuntimeID, &top); err != nil {
			return nil, fmt.Errorf("triagehistory: scan row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, ranAt); err == nil {
			r.RanAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
