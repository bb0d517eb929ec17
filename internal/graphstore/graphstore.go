// Package graphstore mirrors extracted triples into an external graph database.
package graphstore

import (
	"context"

	"doc-distill/internal/parser"
)

// Sink receives the triples of a finished graph run.
type Sink interface {
	SyncRun(ctx context.Context, runID, source string, triples []parser.Triple) error
	Close(ctx context.Context) error
}

// NoopSink discards everything. Used when GRAPH_SINK=none.
type NoopSink struct{}

func (NoopSink) SyncRun(context.Context, string, string, []parser.Triple) error { return nil }
func (NoopSink) Close(context.Context) error                                    { return nil }
