// Package pipeline runs the load, chunk, invoke, parse, aggregate and save stages for
// both the graph extraction and the summarisation flows.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"doc-distill/internal/chunker"
	"doc-distill/internal/graph"
	"doc-distill/internal/graphstore"
	"doc-distill/internal/parser"
	"doc-distill/internal/store"
	"doc-distill/internal/writer"
)

// Stage names used in log records.
const (
	StageLoad   = "load"
	StageChunk  = "chunk"
	StageInvoke = "invoke"
	StageParse  = "parse"
	StageSave   = "save"
)

// Model is the slice of llm.Invoker the pipelines need.
type Model interface {
	Invoke(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Reporter receives console-style progress lines. ui.Printer satisfies it.
type Reporter interface {
	Stage(format string, args ...any)
	Detail(format string, args ...any)
	Warn(format string, args ...any)
}

type nopReporter struct{}

func (nopReporter) Stage(string, ...any)  {}
func (nopReporter) Detail(string, ...any) {}
func (nopReporter) Warn(string, ...any)   {}

// Options configures a pipeline run.
type Options struct {
	// OutputDir receives knowledge_graph.json and knowledge_graph.png.
	OutputDir string
	// SummaryPath is the PDF written by the summary pipeline.
	SummaryPath string
	Chunking    chunker.Options
	// Concurrency bounds parallel model calls. Values below 1 mean sequential.
	Concurrency int
	// GraphInputLimit caps the characters of text placed in one extraction prompt.
	GraphInputLimit int
	// GraphChunked extracts from every chunk instead of only the leading GraphInputLimit characters.
	GraphChunked bool
	Render       graph.RenderOptions
	PDF          writer.PDFOptions
	// Display opens the rendered graph in the desktop viewer.
	Display bool
}

// Deps are the collaborators shared by both pipelines. Store and Sink are optional.
type Deps struct {
	Model    Model
	Store    store.Store
	Sink     graphstore.Sink
	Log      *slog.Logger
	Reporter Reporter
}

// Request identifies one document to process. A zero RunID makes the pipeline create a
// run record when a store is configured.
type Request struct {
	RunID uuid.UUID
	Path  string
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Reporter == nil {
		d.Reporter = nopReporter{}
	}
	return d
}

// Aggregate concatenates per-chunk triple lists in chunk order. Duplicates are kept.
func Aggregate(results [][]parser.Triple) []parser.Triple {
	n := 0
	for _, r := range results {
		n += len(r)
	}
	out := make([]parser.Triple, 0, n)
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// JoinSummaries joins per-chunk summaries in chunk order with a blank line between them.
func JoinSummaries(summaries []string) string {
	return strings.Join(summaries, "\n\n")
}

// mapChunks applies fn to every chunk with at most limit calls in flight. Results are
// stored by chunk position, so output order always equals input order. The first error
// cancels the remaining calls and is returned.
func mapChunks[T any](ctx context.Context, chunks []chunker.Chunk, limit int, fn func(context.Context, chunker.Chunk) (T, error)) ([]T, error) {
	if limit < 1 {
		limit = 1
	}
	results := make([]T, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, c := range chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			v, err := fn(gctx, c)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
