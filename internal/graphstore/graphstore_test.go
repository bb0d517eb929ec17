package graphstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-distill/internal/parser"
)

func TestNoopSink(t *testing.T) {
	var s Sink = NoopSink{}
	assert.NoError(t, s.SyncRun(context.Background(), "run", "doc.txt", []parser.Triple{{"A", "is a", "B"}}))
	assert.NoError(t, s.Close(context.Background()))
}

func TestNewNeo4jSinkRequiresDriver(t *testing.T) {
	_, err := NewNeo4jSink(nil)
	assert.Error(t, err)
}

func TestNewNeo4jDriverUnreachable(t *testing.T) {
	_, err := NewNeo4jDriver(context.Background(), "bolt://127.0.0.1:1", "neo4j", "password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neo4j")
}

// Runs only against a disposable database named by TEST_NEO4J_URI.
func TestNeo4jSinkSyncRun(t *testing.T) {
	uri := os.Getenv("TEST_NEO4J_URI")
	if uri == "" {
		t.Skip("TEST_NEO4J_URI not set")
	}
	ctx := context.Background()
	driver, err := NewNeo4jDriver(ctx, uri, os.Getenv("TEST_NEO4J_USERNAME"), os.Getenv("TEST_NEO4J_PASSWORD"))
	require.NoError(t, err)
	sink, err := NewNeo4jSink(driver)
	require.NoError(t, err)
	defer sink.Close(ctx)

	require.NoError(t, sink.SyncRun(ctx, "test-run", "doc.txt", []parser.Triple{{"A", "is a", "B"}}))
	require.NoError(t, sink.SyncRun(ctx, "test-run", "doc.txt", nil))
}
