package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"doc-distill/internal/parser"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock keeps the gateway and workers from racing on startup.
	const lockID = 461730021

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !acquired {
		time.Sleep(2 * time.Second)
		return nil
	}
	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id UUID PRIMARY KEY,
			pipeline TEXT NOT NULL,
			source TEXT,
			model TEXT,
			status TEXT NOT NULL,
			chunks INT DEFAULT 0,
			malformed_chunks INT DEFAULT 0,
			triples INT DEFAULT 0,
			outputs TEXT[] DEFAULT ARRAY[]::TEXT[],
			error TEXT DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT now(),
			updated_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS run_triples (
			run_id UUID REFERENCES runs(id) ON DELETE CASCADE,
			ord INT,
			subject TEXT,
			predicate TEXT,
			object TEXT,
			PRIMARY KEY (run_id, ord)
		);`,
		`CREATE TABLE IF NOT EXISTS run_summaries (
			run_id UUID PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
			summary TEXT
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, pipeline Pipeline, source, model string) (Run, error) {
	now := time.Now().UTC()
	run := Run{ID: uuid.New(), Pipeline: pipeline, Source: source, Model: model, Status: StatusQueued, CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(id, pipeline, source, model, status, created_at, updated_at) VALUES($1,$2,$3,$4,$5,$6,$7)`,
		run.ID, run.Pipeline, run.Source, run.Model, run.Status, now, now)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

const pgRunColumns = `id, pipeline, source, model, status, chunks, malformed_chunks, triples, outputs, error, created_at, updated_at`

func scanPostgresRun(row interface{ Scan(...any) error }) (Run, error) {
	var r Run
	var outputs []string
	err := row.Scan(&r.ID, &r.Pipeline, &r.Source, &r.Model, &r.Status, &r.Chunks, &r.MalformedChunks,
		&r.Triples, pq.Array(&outputs), &r.Error, &r.CreatedAt, &r.UpdatedAt)
	r.Outputs = outputs
	return r, err
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pgRunColumns+` FROM runs WHERE id=$1`, id)
	r, err := scanPostgresRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+pgRunColumns+` FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, id uuid.UUID, status RunStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET status=$1, error=$2, updated_at=now() WHERE id=$3`, status, errMsg, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, id uuid.UUID, r RunResult) error {
	outputs := r.Outputs
	if outputs == nil {
		outputs = []string{}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status=$1, chunks=$2, malformed_chunks=$3, triples=$4, outputs=$5, error='', updated_at=now()
		WHERE id=$6`,
		StatusCompleted, r.Chunks, r.MalformedChunks, r.Triples, pq.Array(outputs), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *PostgresStore) SaveTriples(ctx context.Context, id uuid.UUID, triples []parser.Triple) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_triples WHERE run_id=$1`, id); err != nil {
		return err
	}
	for i, t := range triples {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_triples(run_id, ord, subject, predicate, object) VALUES($1,$2,$3,$4,$5)`,
			id, i, t.Subject, t.Predicate, t.Object)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListTriples(ctx context.Context, id uuid.UUID) ([]parser.Triple, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT subject, predicate, object FROM run_triples WHERE run_id=$1 ORDER BY ord`, id)
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

func (s *PostgresStore) SaveSummary(ctx context.Context, id uuid.UUID, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_summaries(run_id, summary) VALUES($1,$2)
		ON CONFLICT (run_id) DO UPDATE SET summary=excluded.summary`,
		id, summary)
	return err
}

func (s *PostgresStore) GetSummary(ctx context.Context, id uuid.UUID) (string, error) {
	var summary string
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM run_summaries WHERE run_id=$1`, id).Scan(&summary)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrSummaryNotFound
		}
		return "", fmt.Errorf("failed to get summary for run %s: %w", id, err)
	}
	return summary, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
