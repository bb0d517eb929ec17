package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doc-distill/internal/app"
	"doc-distill/internal/config"
	"doc-distill/internal/fonts"
	"doc-distill/internal/graphstore"
	"doc-distill/internal/llm"
	"doc-distill/internal/queue"
	"doc-distill/internal/store"
	"doc-distill/internal/writer"
)

func newTestDeps(t *testing.T, client llm.Client) *app.Deps {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &app.Deps{
		Config: config.Config{
			OutputDir:       t.TempDir(),
			SummaryPDF:      "summary.pdf",
			ChunkSize:       4000,
			ChunkOverlap:    400,
			Concurrency:     1,
			GraphInputLimit: 5000,
		},
		Log:   log,
		Store: st,
		Sink:  graphstore.NoopSink{},
		Model: llm.NewInvoker(client, nil, log, llm.InvokerOptions{}),
	}
}

func writeUpload(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func newTask(t *testing.T, taskType queue.TaskType, runID uuid.UUID, path string) queue.Task {
	t.Helper()
	task, err := queue.NewRunTask(taskType, queue.RunPayload{RunID: runID, Path: path, Filename: filepath.Base(path)})
	require.NoError(t, err)
	return task
}

func TestHandleRunGraph(t *testing.T) {
	ctx := context.Background()
	client := llm.NewMockClient("mistral")
	client.On("Generate", mock.Anything, mock.Anything).
		Return(`[["Alice", "works at", "Acme"], ["Acme", "located in", "Paris"]]`, nil).Once()
	deps := newTestDeps(t, client)

	run, err := deps.Store.CreateRun(ctx, store.PipelineGraph, "doc.txt", "mistral")
	require.NoError(t, err)
	path := writeUpload(t, "doc.txt", "Alice works at Acme. Acme is located in Paris.")

	require.NoError(t, handleRun(ctx, deps, newTask(t, queue.TaskTypeGraph, run.ID, path)))

	got, err := deps.Store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	assert.Equal(t, 2, got.Triples)

	outDir := app.RunOutputDir(deps.Config, run.ID)
	assert.FileExists(t, filepath.Join(outDir, writer.TriplesFile))
	assert.FileExists(t, filepath.Join(outDir, writer.GraphFile))

	triples, err := deps.Store.ListTriples(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, triples, 2)
	assert.Equal(t, "Paris", triples[1].Object)
	client.AssertExpectations(t)
}

func TestHandleRunSummary(t *testing.T) {
	ctx := context.Background()
	client := llm.NewMockClient("mistral")
	client.On("Generate", mock.Anything, mock.Anything).Return("A short summary.", nil).Once()
	deps := newTestDeps(t, client)

	run, err := deps.Store.CreateRun(ctx, store.PipelineSummary, "doc.txt", "mistral")
	require.NoError(t, err)
	path := writeUpload(t, "doc.txt", "A document worth summarizing.")

	require.NoError(t, handleRun(ctx, deps, newTask(t, queue.TaskTypeSummary, run.ID, path)))

	assert.FileExists(t, filepath.Join(app.RunOutputDir(deps.Config, run.ID), "summary.pdf"))
	sum, err := deps.Store.GetSummary(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", sum)
}

func TestHandleRunPermanentFailures(t *testing.T) {
	ctx := context.Background()
	client := llm.NewMockClient("mistral")
	deps := newTestDeps(t, client)

	tests := []struct {
		name string
		task func(t *testing.T) queue.Task
	}{
		{
			name: "bad payload",
			task: func(*testing.T) queue.Task {
				return queue.Task{Type: queue.TaskTypeGraph, Payload: []byte("{not json")}
			},
		},
		{
			name: "unknown type",
			task: func(t *testing.T) queue.Task {
				return newTask(t, queue.TaskType("poem"), uuid.New(), "/tmp/doc.txt")
			},
		},
		{
			name: "unsupported format",
			task: func(t *testing.T) queue.Task {
				run, err := deps.Store.CreateRun(ctx, store.PipelineGraph, "doc.docx", "mistral")
				require.NoError(t, err)
				return newTask(t, queue.TaskTypeGraph, run.ID, writeUpload(t, "doc.docx", "x"))
			},
		},
		{
			name: "upload missing",
			task: func(t *testing.T) queue.Task {
				run, err := deps.Store.CreateRun(ctx, store.PipelineGraph, "doc.txt", "mistral")
				require.NoError(t, err)
				return newTask(t, queue.TaskTypeGraph, run.ID, filepath.Join(t.TempDir(), "gone.txt"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handleRun(ctx, deps, tt.task(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, queue.ErrPermanent)
		})
	}
}

func TestHandleRunMissingFontIsPermanent(t *testing.T) {
	ctx := context.Background()
	client := llm.NewMockClient("mistral")
	deps := newTestDeps(t, client)
	deps.Config.PDFFontPath = filepath.Join(t.TempDir(), "missing.ttf")

	run, err := deps.Store.CreateRun(ctx, store.PipelineSummary, "doc.txt", "mistral")
	require.NoError(t, err)
	path := writeUpload(t, "doc.txt", "Alice works at Acme.")

	err = handleRun(ctx, deps, newTask(t, queue.TaskTypeSummary, run.ID, path))
	require.Error(t, err)
	assert.ErrorIs(t, err, queue.ErrPermanent)
	assert.ErrorIs(t, err, fonts.ErrNotFound)
	client.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)

	got, err := deps.Store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, got.Status)
}

func TestHandleRunModelFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	client := llm.NewMockClient("mistral")
	client.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("connection refused")).Once()
	deps := newTestDeps(t, client)

	run, err := deps.Store.CreateRun(ctx, store.PipelineGraph, "doc.txt", "mistral")
	require.NoError(t, err)
	path := writeUpload(t, "doc.txt", "Alice works at Acme.")

	err = handleRun(ctx, deps, newTask(t, queue.TaskTypeGraph, run.ID, path))
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrModelUnavailable)
	assert.NotErrorIs(t, err, queue.ErrPermanent)

	got, err := deps.Store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, got.Status)
	assert.NoFileExists(t, filepath.Join(app.RunOutputDir(deps.Config, run.ID), writer.TriplesFile))
}
