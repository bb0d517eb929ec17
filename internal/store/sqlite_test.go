package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-distill/internal/parser"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "data", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	run, err := s.CreateRun(ctx, PipelineGraph, "paper.pdf", "mistral")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, run.Status)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, StatusRunning, ""))
	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Equal(t, "paper.pdf", got.Source)
	assert.Equal(t, PipelineGraph, got.Pipeline)

	res := RunResult{Chunks: 3, MalformedChunks: 1, Triples: 2, Outputs: []string{"a.json", "a.png"}}
	require.NoError(t, s.CompleteRun(ctx, run.ID, res))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 3, got.Chunks)
	assert.Equal(t, 1, got.MalformedChunks)
	assert.Equal(t, 2, got.Triples)
	assert.Equal(t, []string{"a.json", "a.png"}, got.Outputs)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLiteFailedRunKeepsError(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	run, err := s.CreateRun(ctx, PipelineSummary, "notes.txt", "mistral")
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, StatusFailed, "model unavailable"))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "model unavailable", got.Error)
}

func TestSQLiteUnknownRun(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	_, err := s.GetRun(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, s.UpdateRunStatus(ctx, uuid.New(), StatusFailed, "x"), ErrRunNotFound)
	assert.ErrorIs(t, s.CompleteRun(ctx, uuid.New(), RunResult{}), ErrRunNotFound)
}

func TestSQLiteTriplesKeepOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	run, err := s.CreateRun(ctx, PipelineGraph, "doc.txt", "mistral")
	require.NoError(t, err)

	triples := []parser.Triple{{"B", "r", "C"}, {"A", "is a", "B"}, {"B", "r", "C"}}
	require.NoError(t, s.SaveTriples(ctx, run.ID, triples))

	got, err := s.ListTriples(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, triples, got)

	require.NoError(t, s.SaveTriples(ctx, run.ID, nil))
	got, err = s.ListTriples(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteSummary(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	run, err := s.CreateRun(ctx, PipelineSummary, "doc.pdf", "mistral")
	require.NoError(t, err)

	_, err = s.GetSummary(ctx, run.ID)
	assert.ErrorIs(t, err, ErrSummaryNotFound)

	require.NoError(t, s.SaveSummary(ctx, run.ID, "First."))
	require.NoError(t, s.SaveSummary(ctx, run.ID, "First.\n\nSecond."))
	got, err := s.GetSummary(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "First.\n\nSecond.", got)
}

func TestSQLiteListRuns(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	for i := 0; i < 3; i++ {
		_, err := s.CreateRun(ctx, PipelineGraph, "doc.txt", "mistral")
		require.NoError(t, err)
	}
	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
