package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-distill/internal/parser"
)

// Runs only when TEST_DB_URL points at a disposable Postgres database.
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DB_URL")
	if dsn == "" {
		t.Skip("TEST_DB_URL not set")
	}
	ctx := context.Background()
	s, err := NewPostgres(dsn)
	require.NoError(t, err)
	defer s.Close()

	run, err := s.CreateRun(ctx, PipelineGraph, "paper.pdf", "mistral")
	require.NoError(t, err)
	require.NoError(t, s.SaveTriples(ctx, run.ID, []parser.Triple{{"A", "is a", "B"}}))
	require.NoError(t, s.CompleteRun(ctx, run.ID, RunResult{Chunks: 1, Triples: 1, Outputs: []string{"x.json"}}))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, []string{"x.json"}, got.Outputs)

	triples, err := s.ListTriples(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, []parser.Triple{{"A", "is a", "B"}}, triples)
}
