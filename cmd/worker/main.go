package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"doc-distill/internal/app"
	"doc-distill/internal/chunker"
	"doc-distill/internal/config"
	"doc-distill/internal/fonts"
	"doc-distill/internal/httputil"
	"doc-distill/internal/loader"
	"doc-distill/internal/pipeline"
	"doc-distill/internal/queue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("failed to load config", "err", err)
		os.Exit(1)
	}
	deps, err := app.Build(ctx, cfg, app.NeedModel|app.NeedQueue)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close(context.WithoutCancel(ctx))
	deps.Log.Info("worker starting", "model", deps.Model.Model())

	g, ctx := errgroup.WithContext(ctx)

	for _, taskType := range []queue.TaskType{queue.TaskTypeGraph, queue.TaskTypeSummary} {
		g.Go(func() error {
			return deps.Queue.Worker(ctx, taskType, func(ctx context.Context, task queue.Task) error {
				return handleRun(ctx, deps, task)
			})
		})
	}

	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps.Log, "worker", cfg.Port, deps.QueueHealthy, deps.ModelHealthy)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("worker stopped", "err", err)
	}
}

// handleRun executes one queued run. Outputs go to OUTPUT_DIR/<run_id>.
func handleRun(ctx context.Context, deps *app.Deps, task queue.Task) error {
	payload, err := queue.DecodeRunPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %w", queue.ErrPermanent, err)
	}
	log := deps.Log.With("run_id", payload.RunID, "type", task.Type)

	opts := app.PipelineOptions(deps.Config)
	opts.OutputDir = app.RunOutputDir(deps.Config, payload.RunID)
	opts.SummaryPath = filepath.Join(opts.OutputDir, filepath.Base(opts.SummaryPath))
	opts.Display = false
	req := pipeline.Request{RunID: payload.RunID, Path: payload.Path}

	switch task.Type {
	case queue.TaskTypeGraph:
		res, runErr := pipeline.NewGraphPipeline(deps.PipelineDeps(nil), opts).RunRequest(ctx, req)
		if runErr == nil {
			log.Info("graph run completed", "triples", len(res.Triples), "malformed_chunks", res.MalformedChunks)
		}
		err = runErr
	case queue.TaskTypeSummary:
		res, runErr := pipeline.NewSummaryPipeline(deps.PipelineDeps(nil), opts).RunRequest(ctx, req)
		if runErr == nil {
			log.Info("summary run completed", "chunks", res.Chunks, "pdf", res.PDFPath)
		}
		err = runErr
	default:
		return fmt.Errorf("%w: unknown task type %q", queue.ErrPermanent, task.Type)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, loader.ErrUnsupportedFormat) || errors.Is(err, chunker.ErrInvalidChunkConfig) || errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, fonts.ErrNotFound) {
		return fmt.Errorf("%w: %w", queue.ErrPermanent, err)
	}
	return err
}
