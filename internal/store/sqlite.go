package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"doc-distill/internal/parser"
)

// SQLiteStore keeps run history in a single local database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLite opens (or creates) the database at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			pipeline TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			chunks INTEGER NOT NULL DEFAULT 0,
			malformed_chunks INTEGER NOT NULL DEFAULT 0,
			triples INTEGER NOT NULL DEFAULT 0,
			outputs TEXT NOT NULL DEFAULT '[]',
			error TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_triples (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			ord INTEGER NOT NULL,
			subject TEXT NOT NULL,
			predicate TEXT NOT NULL,
			object TEXT NOT NULL,
			PRIMARY KEY (run_id, ord)
		)`,
		`CREATE TABLE IF NOT EXISTS run_summaries (
			run_id TEXT PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
			summary TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *SQLiteStore) CreateRun(ctx context.Context, pipeline Pipeline, source, model string) (Run, error) {
	now := time.Now().UTC()
	run := Run{ID: uuid.New(), Pipeline: pipeline, Source: source, Model: model, Status: StatusQueued, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(id, pipeline, source, model, status, created_at, updated_at) VALUES(?,?,?,?,?,?,?)`,
		run.ID.String(), string(pipeline), source, model, string(run.Status), formatTime(now), formatTime(now))
	if err != nil {
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}
	return run, nil
}

const sqliteRunColumns = `id, pipeline, source, model, status, chunks, malformed_chunks, triples, outputs, error, created_at, updated_at`

func scanSQLiteRun(row interface{ Scan(...any) error }) (Run, error) {
	var (
		r                Run
		id, pipe, status string
		outputs          string
		created, updated string
	)
	if err := row.Scan(&id, &pipe, &r.Source, &r.Model, &status, &r.Chunks, &r.MalformedChunks,
		&r.Triples, &outputs, &r.Error, &created, &updated); err != nil {
		return Run{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("parsing run id: %w", err)
	}
	r.ID = parsed
	r.Pipeline = Pipeline(pipe)
	r.Status = RunStatus(status)
	if outputs != "" && outputs != "null" {
		if err := json.Unmarshal([]byte(outputs), &r.Outputs); err != nil {
			return Run{}, fmt.Errorf("decoding outputs: %w", err)
		}
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return r, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteRunColumns+` FROM runs WHERE id=?`, id.String())
	r, err := scanSQLiteRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, fmt.Errorf("getting run %s: %w", id, err)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteRunColumns+` FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, id uuid.UUID, status RunStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET status=?, error=?, updated_at=? WHERE id=?`,
		string(status), errMsg, formatTime(time.Now()), id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, id uuid.UUID, r RunResult) error {
	outputs := r.Outputs
	if outputs == nil {
		outputs = []string{}
	}
	encoded, err := json.Marshal(outputs)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status=?, chunks=?, malformed_chunks=?, triples=?, outputs=?, error='', updated_at=?
		WHERE id=?`,
		string(StatusCompleted), r.Chunks, r.MalformedChunks, r.Triples, string(encoded), formatTime(time.Now()), id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *SQLiteStore) SaveTriples(ctx context.Context, id uuid.UUID, triples []parser.Triple) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_triples WHERE run_id=?`, id.String()); err != nil {
		return err
	}
	for i, t := range triples {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_triples(run_id, ord, subject, predicate, object) VALUES(?,?,?,?,?)`,
			id.String(), i, t.Subject, t.Predicate, t.Object)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListTriples(ctx context.Context, id uuid.UUID) ([]parser.Triple, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT subject, predicate, object FROM run_triples WHERE run_id=? ORDER BY ord`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []parser.Triple{}
	for rows.Next() {
		var t parser.Triple
		if err := rows.Scan(&t.Subject, &t.Predicate, &t.Object); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveSummary(ctx context.Context, id uuid.UUID, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_summaries(run_id, summary) VALUES(?,?)
		ON CONFLICT(run_id) DO UPDATE SET summary=excluded.summary`,
		id.String(), summary)
	return err
}

func (s *SQLiteStore) GetSummary(ctx context.Context, id uuid.UUID) (string, error) {
	var summary string
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM run_summaries WHERE run_id=?`, id.String()).Scan(&summary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrSummaryNotFound
		}
		return "", fmt.Errorf("getting summary for run %s: %w", id, err)
	}
	return summary, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
