package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"doc-distill/internal/chunker"
	"doc-distill/internal/fonts"
	"doc-distill/internal/graph"
	"doc-distill/internal/llm"
	"doc-distill/internal/loader"
	"doc-distill/internal/parser"
	"doc-distill/internal/prompt"
	"doc-distill/internal/store"
	"doc-distill/internal/writer"
)

// GraphResult describes a finished graph extraction.
type GraphResult struct {
	RunID           uuid.UUID
	Source          string
	Chunks          int
	MalformedChunks int
	Triples         []parser.Triple
	Graph           *graph.KnowledgeGraph
	JSONPath        string
	ImagePath       string
}

// GraphPipeline extracts knowledge-graph triples from a document.
type GraphPipeline struct {
	deps Deps
	opts Options
}

func NewGraphPipeline(deps Deps, opts Options) *GraphPipeline {
	return &GraphPipeline{deps: deps.withDefaults(), opts: opts}
}

// Run processes the document at path.
func (p *GraphPipeline) Run(ctx context.Context, path string) (*GraphResult, error) {
	return p.RunRequest(ctx, Request{Path: path})
}

// RunRequest processes req. Load and chunk failures return before anything is written;
// the first ErrModelUnavailable aborts the run. Malformed replies only drop that chunk.
func (p *GraphPipeline) RunRequest(ctx context.Context, req Request) (*GraphResult, error) {
	if p.deps.Model == nil {
		return nil, errors.New("graph pipeline: model is required")
	}
	if p.opts.GraphChunked {
		if err := p.opts.Chunking.Validate(); err != nil {
			return nil, err
		}
	}

	run, err := startRun(ctx, p.deps.Store, p.deps.Log, store.PipelineGraph, req, p.deps.Model.Model())
	if err != nil {
		return nil, err
	}
	if _, err := fonts.Resolve(p.opts.Render.FontPath); err != nil {
		err = fmt.Errorf("graph pipeline: %w", err)
		run.fail(ctx, err)
		return nil, err
	}
	res, err := p.run(ctx, run.id, req.Path)
	if err != nil {
		run.fail(ctx, err)
		return nil, err
	}
	run.complete(ctx, store.RunResult{
		Chunks:          res.Chunks,
		MalformedChunks: res.MalformedChunks,
		Triples:         len(res.Triples),
		Outputs:         []string{res.JSONPath, res.ImagePath},
	})
	return res, nil
}

func (p *GraphPipeline) run(ctx context.Context, runID uuid.UUID, path string) (*GraphResult, error) {
	log := p.deps.Log.With("run_id", runID, "path", path, "pipeline", "graph")
	rep := p.deps.Reporter

	rep.Stage("Loading document %s", path)
	doc, err := loader.Load(ctx, path)
	if err != nil {
		log.Error("load failed", "stage", StageLoad, "err", err)
		return nil, fmt.Errorf("load document: %w", err)
	}
	log.Info("document loaded", "stage", StageLoad, "format", doc.Format, "pages", doc.Pages, "chars", len(doc.Text))

	chunks, err := p.inputs(doc.Text)
	if err != nil {
		log.Error("chunking failed", "stage", StageChunk, "err", err)
		return nil, err
	}
	log.Info("input prepared", "stage", StageChunk, "chunks", len(chunks), "chunked", p.opts.GraphChunked)
	rep.Detail("%d prompt(s) to send", len(chunks))

	rep.Stage("Generating knowledge graph with %s", p.deps.Model.Model())
	type chunkResult struct {
		triples   []parser.Triple
		malformed bool
	}
	results, err := mapChunks(ctx, chunks, p.opts.Concurrency, func(ctx context.Context, c chunker.Chunk) (chunkResult, error) {
		if blank(c.Text) {
			return chunkResult{}, nil
		}
		text, err := prompt.Graph(c.Text)
		if err != nil {
			return chunkResult{}, err
		}
		log.Info("invoking model", "stage", StageInvoke, "chunk", c.Index, "chars", len(c.Text))
		reply, err := p.deps.Model.Invoke(ctx, text)
		if err != nil {
			log.Error("model call failed", "stage", StageInvoke, "chunk", c.Index, "err", err)
			return chunkResult{}, fmt.Errorf("chunk %d: %w", c.Index, err)
		}
		log.Debug("raw model reply", "stage", StageInvoke, "chunk", c.Index, "reply", reply)

		triples, err := parser.ParseTriples(reply)
		if err != nil {
			log.Warn("malformed model output", "stage", StageParse, "chunk", c.Index, "err", err)
			rep.Warn("chunk %d: could not parse model output as triples", c.Index+1)
			return chunkResult{triples: triples, malformed: true}, nil
		}
		log.Info("triples parsed", "stage", StageParse, "chunk", c.Index, "triples", len(triples))
		return chunkResult{triples: triples}, nil
	})
	if err != nil {
		return nil, err
	}

	perChunk := make([][]parser.Triple, len(results))
	malformed := 0
	for i, r := range results {
		perChunk[i] = r.triples
		if r.malformed {
			malformed++
		}
	}
	triples := Aggregate(perChunk)
	kg := graph.Build(triples)
	rep.Detail("%d triple(s), %d node(s)", len(triples), len(kg.Nodes))

	rep.Stage("Saving knowledge graph to %s", p.opts.OutputDir)
	unlock, err := writer.LockDir(p.opts.OutputDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	jsonPath, err := writer.WriteTriplesJSON(p.opts.OutputDir, triples)
	if err != nil {
		return nil, err
	}
	imagePath, err := writer.WriteGraphPNG(p.opts.OutputDir, kg, p.opts.Render)
	if err != nil {
		return nil, err
	}
	log.Info("outputs written", "stage", StageSave, "json", jsonPath, "image", imagePath)
	rep.Detail("%s", jsonPath)
	rep.Detail("%s", imagePath)

	if p.deps.Store != nil {
		if err := p.deps.Store.SaveTriples(ctx, runID, triples); err != nil {
			log.Warn("failed to store triples", "stage", StageSave, "err", err)
		}
	}
	if p.deps.Sink != nil {
		if err := p.deps.Sink.SyncRun(ctx, runID.String(), path, triples); err != nil {
			log.Warn("graph sink sync failed", "stage", StageSave, "err", err)
			rep.Warn("graph database sync failed: %v", err)
		}
	}
	if p.opts.Display {
		if err := writer.Display(imagePath); err != nil {
			log.Warn("display failed", "err", err)
			rep.Warn("could not open graph viewer: %v", err)
		}
	}

	return &GraphResult{
		RunID:           runID,
		Source:          path,
		Chunks:          len(chunks),
		MalformedChunks: malformed,
		Triples:         triples,
		Graph:           kg,
		JSONPath:        jsonPath,
		ImagePath:       imagePath,
	}, nil
}

// inputs returns the texts to prompt with. By default that is a single prefix of
// GraphInputLimit characters; in chunked mode every chunk, each capped the same way.
func (p *GraphPipeline) inputs(text string) ([]chunker.Chunk, error) {
	if !p.opts.GraphChunked {
		return []chunker.Chunk{{Index: 0, Text: llm.Truncate(text, p.opts.GraphInputLimit)}}, nil
	}
	chunks, err := chunker.ChunkText(text, p.opts.Chunking)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].Text = llm.Truncate(chunks[i].Text, p.opts.GraphInputLimit)
	}
	return chunks, nil
}
