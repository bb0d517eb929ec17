package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"doc-distill/internal/retry"
)

// TaskType enumerates supported task categories. Each maps to the subject "tasks.<type>".
type TaskType string

const (
	TaskTypeGraph   TaskType = "graph"
	TaskTypeSummary TaskType = "summary"
)

// Task represents a unit of work handed from the gateway to a worker.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

// RunPayload points a worker at an uploaded document and the run it belongs to.
type RunPayload struct {
	RunID    uuid.UUID `json:"run_id"`
	Path     string    `json:"path"`
	Filename string    `json:"filename"`
}

// NewRunTask encodes payload into a task of the given type.
func NewRunTask(taskType TaskType, payload RunPayload) (Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Task{Type: taskType, Payload: body, NotBefore: time.Now()}, nil
}

// DecodeRunPayload is the inverse of NewRunTask.
func DecodeRunPayload(task Task) (RunPayload, error) {
	var p RunPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return RunPayload{}, fmt.Errorf("decode %s payload: %w", task.Type, err)
	}
	if p.RunID == uuid.Nil || p.Path == "" {
		return RunPayload{}, fmt.Errorf("decode %s payload: run_id and path are required", task.Type)
	}
	return p, nil
}

// ErrPermanent marks handler errors that must not be retried.
var ErrPermanent = errors.New("permanent task failure")

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

// EnqueueWithRetry attempts to enqueue with retries and exponential backoff.
func EnqueueWithRetry(ctx context.Context, q Queue, task Task, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if err := q.Enqueue(ctx, task); err == nil {
			return nil
		} else if attempt == attempts-1 {
			return err
		}
		if err := retry.Wait(ctx, attempt, base); err != nil {
			return err
		}
	}
	return nil
}
