package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"doc-distill/internal/app"
	"doc-distill/internal/config"
	"doc-distill/internal/httputil"
	"doc-distill/internal/loader"
	"doc-distill/internal/queue"
	"doc-distill/internal/store"
	"doc-distill/internal/writer"
)

const defaultListLimit = 20

// runRequest is the non-file part of an upload.
type runRequest struct {
	Pipeline string `validate:"required,oneof=graph summary"`
	Filename string `validate:"required,max=255"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("failed to load config", "err", err)
		os.Exit(1)
	}
	deps, err := app.Build(ctx, cfg, app.NeedQueue)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close(context.WithoutCancel(ctx))
	if deps.Store == nil {
		deps.Log.Error("gateway requires STORE_PROVIDER=sqlite or postgres")
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	deps.Log.Info("gateway listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		deps.Log.Error("server failed", "err", err)
	}
}

func newRouter(deps *app.Deps) http.Handler {
	r := httputil.NewRouter(deps.Log)
	r.Post("/api/runs", uploadHandler(deps))
	r.Get("/api/runs", listHandler(deps))
	r.Get("/api/runs/{id}", runHandler(deps))
	r.Get("/api/runs/{id}/triples", triplesHandler(deps))
	r.Get("/api/runs/{id}/summary", summaryHandler(deps))
	r.Get("/api/runs/{id}/graph.png", graphImageHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log, deps.QueueHealthy))
	return r
}

func uploadHandler(deps *app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		req := runRequest{Pipeline: r.FormValue("pipeline"), Filename: header.Filename}
		if err := httputil.Validator.Struct(req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		if loader.DetectFormat(header.Filename) == loader.FormatUnknown {
			httputil.Fail(deps.Log, w, "unsupported file type (only PDF and plain text allowed)", nil, http.StatusBadRequest)
			return
		}

		path, err := saveUpload(deps.Config.DataDir, header.Filename, file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to store upload", err, http.StatusInternalServerError)
			return
		}

		run, err := deps.Store.CreateRun(ctx, store.Pipeline(req.Pipeline), header.Filename, deps.Config.LLMModel)
		if err != nil {
			_ = os.Remove(path)
			httputil.Fail(deps.Log, w, "failed to persist run", err, http.StatusInternalServerError)
			return
		}

		task, err := queue.NewRunTask(queue.TaskType(req.Pipeline), queue.RunPayload{
			RunID:    run.ID,
			Path:     path,
			Filename: header.Filename,
		})
		if err != nil {
			fail(ctx, deps, w, "marshal payload failed", err, run.ID, http.StatusInternalServerError, true)
			return
		}
		if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			fail(ctx, deps, w, "failed to enqueue run; please retry", err, run.ID, http.StatusInternalServerError, true)
			return
		}

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"run_id": run.ID.String(),
			"status": run.Status,
		})
	}
}

// saveUpload copies the upload under dataDir/uploads with a generated name.
func saveUpload(dataDir, filename string, src io.Reader) (string, error) {
	dir := filepath.Join(dataDir, "uploads")
	if err := writer.EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, uuid.NewString()+filepath.Ext(filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, dst.Close()
}

// fail is the gateway error handler that can also mark the run failed.
func fail(ctx context.Context, deps *app.Deps, w http.ResponseWriter, message string, err error, runID uuid.UUID, status int, markFailed bool) {
	log := deps.Log.With("run_id", runID)
	if markFailed && runID != uuid.Nil {
		errMsg := message
		if err != nil {
			errMsg = err.Error()
		}
		if upErr := deps.Store.UpdateRunStatus(ctx, runID, store.StatusFailed, errMsg); upErr != nil {
			log.Error("failed to mark run failed", "err", upErr)
		}
	}

	httputil.Fail(log, w, message, err, status)
}

func listHandler(deps *app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				httputil.Fail(deps.Log, w, "invalid limit", err, http.StatusBadRequest)
				return
			}
			limit = n
		}
		runs, err := deps.Store.ListRuns(r.Context(), limit)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to list runs", err, http.StatusInternalServerError)
			return
		}
		out := make([]map[string]any, 0, len(runs))
		for _, run := range runs {
			out = append(out, runView(run))
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"runs": out})
	}
}

func runHandler(deps *app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := lookupRun(deps, w, r)
		if !ok {
			return
		}
		httputil.WriteJSON(w, http.StatusOK, runView(run))
	}
}

func triplesHandler(deps *app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := lookupRun(deps, w, r)
		if !ok {
			return
		}
		if run.Pipeline != store.PipelineGraph {
			httputil.Fail(deps.Log, w, "run is not a graph run", nil, http.StatusBadRequest)
			return
		}
		triples, err := deps.Store.ListTriples(r.Context(), run.ID)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load triples", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"run_id":  run.ID,
			"status":  run.Status,
			"triples": triples,
		})
	}
}

func summaryHandler(deps *app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid run id", err, http.StatusBadRequest)
			return
		}
		sum, err := deps.Store.GetSummary(r.Context(), runID)
		if errors.Is(err, store.ErrSummaryNotFound) {
			fail(r.Context(), deps, w, "summary not ready", err, runID, http.StatusNotFound, false)
			return
		}
		if err != nil {
			fail(r.Context(), deps, w, "failed to load summary", err, runID, http.StatusInternalServerError, false)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"run_id":  runID,
			"summary": sum,
		})
	}
}

func graphImageHandler(deps *app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := lookupRun(deps, w, r)
		if !ok {
			return
		}
		if run.Status != store.StatusCompleted || run.Pipeline != store.PipelineGraph {
			httputil.Fail(deps.Log, w, "graph not ready", nil, http.StatusNotFound)
			return
		}
		path := filepath.Join(app.RunOutputDir(deps.Config, run.ID), writer.GraphFile)
		if _, err := os.Stat(path); err != nil {
			httputil.Fail(deps.Log, w, "graph image missing", err, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		http.ServeFile(w, r, path)
	}
}

func lookupRun(deps *app.Deps, w http.ResponseWriter, r *http.Request) (store.Run, bool) {
	runID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(deps.Log, w, "invalid run id", err, http.StatusBadRequest)
		return store.Run{}, false
	}
	run, err := deps.Store.GetRun(r.Context(), runID)
	if errors.Is(err, store.ErrRunNotFound) {
		httputil.Fail(deps.Log, w, "run not found", err, http.StatusNotFound)
		return store.Run{}, false
	}
	if err != nil {
		httputil.Fail(deps.Log, w, "failed to load run", err, http.StatusInternalServerError)
		return store.Run{}, false
	}
	return run, true
}

func runView(run store.Run) map[string]any {
	v := map[string]any{
		"run_id":           run.ID.String(),
		"pipeline":         run.Pipeline,
		"source":           run.Source,
		"model":            run.Model,
		"status":           run.Status,
		"chunks":           run.Chunks,
		"malformed_chunks": run.MalformedChunks,
		"triples":          run.Triples,
		"outputs":          run.Outputs,
		"created_at":       run.CreatedAt,
		"updated_at":       run.UpdatedAt,
	}
	if run.Error != "" {
		v["error"] = run.Error
	}
	return v
}
