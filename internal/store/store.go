package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"doc-distill/internal/parser"
)

type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Pipeline names the kind of run.
type Pipeline string

const (
	PipelineGraph   Pipeline = "graph"
	PipelineSummary Pipeline = "summary"
)

var (
	ErrRunNotFound     = errors.New("run not found")
	ErrSummaryNotFound = errors.New("summary not found")
)

// Run records one pipeline execution over one document.
type Run struct {
	ID              uuid.UUID
	Pipeline        Pipeline
	Source          string
	Model           string
	Status          RunStatus
	Chunks          int
	MalformedChunks int
	Triples         int
	Outputs         []string
	Error           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RunResult is what a finished pipeline reports back.
type RunResult struct {
	Chunks          int
	MalformedChunks int
	Triples         int
	Outputs         []string
}

// Store keeps run history and results. Implementations: Postgres, SQLite.
type Store interface {
	CreateRun(ctx context.Context, pipeline Pipeline, source, model string) (Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	UpdateRunStatus(ctx context.Context, id uuid.UUID, status RunStatus, errMsg string) error
	CompleteRun(ctx context.Context, id uuid.UUID, res RunResult) error
	SaveTriples(ctx context.Context, id uuid.UUID, triples []parser.Triple) error
	ListTriples(ctx context.Context, id uuid.UUID) ([]parser.Triple, error)
	SaveSummary(ctx context.Context, id uuid.UUID, summary string) error
	GetSummary(ctx context.Context, id uuid.UUID) (string, error)
	Close() error
}
