// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists conversion outcomes in a local SQLite database
// so operators can see which documents converted, with which engine, and
// why the others failed.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/signage-workspace/pkg/types"
)

const (
	dbFile       = "history.db"
	defaultLimit = 50
)

// Run is one recorded conversion.
type Run struct {
	ID        string            `json:"id" yaml:"id"`
	Team      string            `json:"team" yaml:"team"`
	Folder    string            `json:"folder" yaml:"folder"`
	Document  string            `json:"document,omitempty" yaml:"document,omitempty"`
	Range     string            `json:"range" yaml:"range"`
	Kind      types.OutcomeKind `json:"kind" yaml:"kind"`
	Count     int               `json:"count" yaml:"count"`
	Engine    string            `json:"engine,omitempty" yaml:"engine,omitempty"`
	Tried     []string          `json:"tried,omitempty" yaml:"tried,omitempty"`
	Message   string            `json:"message,omitempty" yaml:"message,omitempty"`
	StartedAt time.Time         `json:"started_at" yaml:"started_at"`
	Duration  time.Duration     `json:"duration" yaml:"duration"`
}

// Query filters List. Zero values mean no filter.
type Query struct {
	Team  string
	Kind  types.OutcomeKind
	Since time.Time
	Limit int
}

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates stateDir/history.db and its schema.
func Open(stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	dbPath := filepath.Join(stateDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
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
			team TEXT NOT NULL DEFAULT '',
			folder TEXT NOT NULL,
			document TEXT,
			range_expr TEXT,
			kind TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			engine TEXT,
			tried TEXT,
			message TEXT,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_team ON runs(team)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a conversion outcome as a new run.
func (s *Store) Record(ctx context.Context, o types.ConversionOutcome) error {
	_, err := s.Insert(ctx, RunFromOutcome(o))
	return err
}

// RunFromOutcome converts an outcome into a Run without an ID.
func RunFromOutcome(o types.ConversionOutcome) Run {
	started := o.StartedAt
	if started.IsZero() {
		started = time.Now().Add(-o.Duration)
	}
	return Run{
		Team:      o.Team,
		Folder:    o.Folder,
		Document:  o.Document,
		Range:     o.Range,
		Kind:      o.Kind,
		Count:     o.Count,
		Engine:    o.Engine,
		Tried:     o.TriedEngines,
		Message:   o.Message,
		StartedAt: started,
		Duration:  o.Duration,
	}
}

// Insert stores r, assigning an ID when it has none, and returns the ID.
func (s *Store) Insert(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	tried, err := json.Marshal(r.Tried)
	if err != nil {
		return "", fmt.Errorf("encoding tried engines: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, team, folder, document, range_expr, kind, count, engine, tried, message, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Team, r.Folder, r.Document, r.Range, string(r.Kind), r.Count,
		r.Engine, string(tried), r.Message,
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.Duration.Milliseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return r.ID, nil
}

// List returns runs matching q, newest first.
func (s *Store) List(ctx context.Context, q Query) ([]Run, error) {
	var where []string
	var args []any
	if q.Team != "" {
		where = append(where, "team = ?")
		args = append(args, q.Team)
	}
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if !q.Since.IsZero() {
		where = append(where, "started_at >= ?")
		args = append(args, q.Since.UTC().Format(time.RFC3339Nano))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	query := `SELECT id, team, folder, document, range_expr, kind, count, engine, tried, message, started_at, duration_ms FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r                                Run
			document, rangeExpr, engine, msg sql.NullString
			tried                            sql.NullString
			kind, started                    string
			durationMS                       int64
		)
		if err := rows.Scan(&r.ID, &r.Team, &r.Folder, &document, &rangeExpr, &kind, &r.Count,
			&engine, &tried, &msg, &started, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Document = document.String
		r.Range = rangeExpr.String
		r.Engine = engine.String
		r.Message = msg.String
		r.Kind = types.OutcomeKind(kind)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if tried.Valid && tried.String != "" && tried.String != "null" {
			if err := json.Unmarshal([]byte(tried.String), &r.Tried); err != nil {
				return nil, fmt.Errorf("decoding tried engines of %s: %w", r.ID, err)
			}
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parsing start time of %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Prune deletes runs that started before cutoff and returns how many.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	return res.RowsAffected()
}
