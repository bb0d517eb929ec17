package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"doc-distill/internal/chunker"
	"doc-distill/internal/fonts"
	"doc-distill/internal/loader"
	"doc-distill/internal/parser"
	"doc-distill/internal/prompt"
	"doc-distill/internal/store"
	"doc-distill/internal/writer"
)

// SummaryResult describes a finished summarisation.
type SummaryResult struct {
	RunID     uuid.UUID
	Source    string
	Chunks    int
	Summaries []string
	Summary   string
	PDFPath   string
}

// SummaryPipeline summarises a document chunk by chunk and writes the result as a PDF.
type SummaryPipeline struct {
	deps Deps
	opts Options
}

func NewSummaryPipeline(deps Deps, opts Options) *SummaryPipeline {
	return &SummaryPipeline{deps: deps.withDefaults(), opts: opts}
}

// Run processes the document at path.
func (p *SummaryPipeline) Run(ctx context.Context, path string) (*SummaryResult, error) {
	return p.RunRequest(ctx, Request{Path: path})
}

// RunRequest processes req. Any model failure aborts the run before the PDF is written.
func (p *SummaryPipeline) RunRequest(ctx context.Context, req Request) (*SummaryResult, error) {
	if p.deps.Model == nil {
		return nil, errors.New("summary pipeline: model is required")
	}
	if p.opts.SummaryPath == "" {
		return nil, errors.New("summary pipeline: output path is required")
	}
	if err := p.opts.Chunking.Validate(); err != nil {
		return nil, err
	}

	run, err := startRun(ctx, p.deps.Store, p.deps.Log, store.PipelineSummary, req, p.deps.Model.Model())
	if err != nil {
		return nil, err
	}
	if _, err := fonts.Resolve(p.opts.PDF.FontPath); err != nil {
		err = fmt.Errorf("summary pipeline: %w", err)
		run.fail(ctx, err)
		return nil, err
	}
	res, err := p.run(ctx, run.id, req.Path)
	if err != nil {
		run.fail(ctx, err)
		return nil, err
	}
	run.complete(ctx, store.RunResult{Chunks: res.Chunks, Outputs: []string{res.PDFPath}})
	return res, nil
}

func (p *SummaryPipeline) run(ctx context.Context, runID uuid.UUID, path string) (*SummaryResult, error) {
	log := p.deps.Log.With("run_id", runID, "path", path, "pipeline", "summary")
	rep := p.deps.Reporter

	rep.Stage("Loading document %s", path)
	doc, err := loader.Load(ctx, path)
	if err != nil {
		log.Error("load failed", "stage", StageLoad, "err", err)
		return nil, fmt.Errorf("load document: %w", err)
	}
	log.Info("document loaded", "stage", StageLoad, "format", doc.Format, "pages", doc.Pages, "chars", len(doc.Text))

	rep.Stage("Splitting text into chunks")
	chunks, err := chunker.ChunkText(doc.Text, p.opts.Chunking)
	if err != nil {
		log.Error("chunking failed", "stage", StageChunk, "err", err)
		return nil, err
	}
	log.Info("text chunked", "stage", StageChunk, "chunks", len(chunks),
		"max_chars", p.opts.Chunking.MaxChars, "overlap", p.opts.Chunking.Overlap)
	rep.Detail("%d chunk(s)", len(chunks))

	rep.Stage("Summarizing document with %s", p.deps.Model.Model())
	replies, err := mapChunks(ctx, chunks, p.opts.Concurrency, func(ctx context.Context, c chunker.Chunk) (*string, error) {
		if blank(c.Text) {
			return nil, nil
		}
		text, err := prompt.Summary(c.Text)
		if err != nil {
			return nil, err
		}
		rep.Detail("processing chunk %d/%d", c.Index+1, len(chunks))
		log.Info("invoking model", "stage", StageInvoke, "chunk", c.Index, "chars", len(c.Text))
		reply, err := p.deps.Model.Invoke(ctx, text)
		if err != nil {
			log.Error("model call failed", "stage", StageInvoke, "chunk", c.Index, "err", err)
			return nil, fmt.Errorf("chunk %d: %w", c.Index, err)
		}
		summary := parser.FreeText(reply)
		log.Info("summary received", "stage", StageParse, "chunk", c.Index, "chars", len(summary))
		return &summary, nil
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]string, 0, len(replies))
	for _, r := range replies {
		if r != nil {
			summaries = append(summaries, *r)
		}
	}
	summary := JoinSummaries(summaries)

	rep.Stage("Saving summary to %s", p.opts.SummaryPath)
	unlock, err := writer.LockDir(filepath.Dir(p.opts.SummaryPath))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := writer.WriteSummaryPDF(p.opts.SummaryPath, summary, p.opts.PDF, log); err != nil {
		return nil, err
	}
	log.Info("summary written", "stage", StageSave, "pdf", p.opts.SummaryPath, "chars", len(summary))

	if p.deps.Store != nil {
		if err := p.deps.Store.SaveSummary(ctx, runID, summary); err != nil {
			log.Warn("failed to store summary", "stage", StageSave, "err", err)
		}
	}

	return &SummaryResult{
		RunID:     runID,
		Source:    path,
		Chunks:    len(chunks),
		Summaries: summaries,
		Summary:   summary,
		PDFPath:   p.opts.SummaryPath,
	}, nil
}
