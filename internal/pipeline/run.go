package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"doc-distill/internal/store"
)

// tracker mirrors run progress into the optional store. Store failures after the run
// exists are logged and do not fail the pipeline.
type tracker struct {
	store store.Store
	log   *slog.Logger
	id    uuid.UUID
}

func startRun(ctx context.Context, st store.Store, log *slog.Logger, pipe store.Pipeline, req Request, model string) (*tracker, error) {
	t := &tracker{store: st, log: log, id: req.RunID}
	if st == nil {
		if t.id == uuid.Nil {
			t.id = uuid.New()
		}
		return t, nil
	}
	if t.id == uuid.Nil {
		run, err := st.CreateRun(ctx, pipe, req.Path, model)
		if err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
		t.id = run.ID
	}
	if err := st.UpdateRunStatus(ctx, t.id, store.StatusRunning, ""); err != nil {
		return nil, fmt.Errorf("mark run running: %w", err)
	}
	return t, nil
}

func (t *tracker) fail(ctx context.Context, cause error) {
	if t.store == nil {
		return
	}
	if err := t.store.UpdateRunStatus(context.WithoutCancel(ctx), t.id, store.StatusFailed, cause.Error()); err != nil {
		t.log.Warn("failed to mark run failed", "run_id", t.id, "err", err)
	}
}

func (t *tracker) complete(ctx context.Context, res store.RunResult) {
	if t.store == nil {
		return
	}
	if err := t.store.CompleteRun(ctx, t.id, res); err != nil {
		t.log.Warn("failed to record run result", "run_id", t.id, "err", err)
	}
}
