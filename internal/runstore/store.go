// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runstore persists completed and in-flight runs with their full
// turn sequence, for audit and replay. Storage is a SQLite database under
// the runs directory.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-agent/internal/history"
	"github.com/pdiddy/research-agent/pkg/types"
)

const dbFile = "runs.db"

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID        string
	Query     string
	Answer    string
	Turns     int
	CreatedAt time.Time
}

// Store manages the runs SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the runs database under cfg.Dir, creating the
// schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "runs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating runs directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			answer TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			run_id TEXT NOT NULL REFERENCES runs(id),
			seq INTEGER NOT NULL,
			stage TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT,
			tool_name TEXT,
			tool_call_id TEXT,
			created_at TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_run_id ON turns(run_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun records a new run with its query.
func (s *Store) BeginRun(ctx context.Context, runID, query string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, query, created_at) VALUES (?, ?, ?)`,
		runID, query, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", runID, err)
	}
	return nil
}

// RecordTurns appends the turns a stage produced, numbered from seq.
func (s *Store) RecordTurns(ctx context.Context, runID, stage string, seq int, turns []history.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for i, t := range turns {
		// A turn with several tool calls stores the first id; the full
		// calls live in the conversation, the store is an audit log.
		callID := t.ToolCallID
		if callID == "" && len(t.ToolCalls) > 0 {
			callID = t.ToolCalls[0].ID
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turns (run_id, seq, stage, role, content, tool_name, tool_call_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, seq+i, stage, string(t.Role), t.Content, t.ToolName, callID, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting turn %d of run %s: %w", seq+i, runID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing turns: %w", err)
	}
	return nil
}

// FinishRun stores the final answer on the run row.
func (s *Store) FinishRun(ctx context.Context, runID, answer string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET answer = ? WHERE id = ?`, answer, runID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", runID, err)
	}
	return nil
}

// ListRuns returns run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.query, COALESCE(r.answer, ''), COUNT(t.seq), r.created_at
		 FROM runs r LEFT JOIN turns t ON t.run_id = r.id
		 GROUP BY r.id ORDER BY r.created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var created string
		if err := rows.Scan(&r.ID, &r.Query, &r.Answer, &r.Turns, &created); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, r)
	}
	return out, rows.Err()
}
