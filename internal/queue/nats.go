package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"doc-distill/internal/retry"
)

// DefaultMaxAttempts bounds redelivery of a failing task.
const DefaultMaxAttempts = 3

// DefaultRedeliveryBase is the first redelivery delay; later ones double.
const DefaultRedeliveryBase = time.Second

// Subject returns the NATS subject carrying tasks of taskType.
func Subject(taskType TaskType) string {
	return "tasks." + string(taskType)
}

// NewNATS returns a Queue publishing to core NATS subjects. Workers of one task type
// share a queue group so each task is handled once.
func NewNATS(log *slog.Logger, nc *nats.Conn) Queue {
	return &natsQueue{log: log, nc: nc, base: DefaultRedeliveryBase}
}

type natsQueue struct {
	log  *slog.Logger
	nc   *nats.Conn
	base time.Duration
}

func (q *natsQueue) Enqueue(_ context.Context, task Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Type == "" {
		return errors.New("task type required")
	}
	body, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.nc.Publish(Subject(task.Type), body)
}

// Worker handles tasks until ctx ends, then drains the subscription so in-flight
// messages finish.
func (q *natsQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	sub, err := q.nc.QueueSubscribe(Subject(taskType), "workers-"+string(taskType), func(msg *nats.Msg) {
		q.dispatch(ctx, msg.Data, handler)
	})
	if err != nil {
		return err
	}
	q.log.Info("worker subscribed", "subject", sub.Subject, "group", sub.Queue)
	<-ctx.Done()
	if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return err
	}
	return nil
}

func (q *natsQueue) dispatch(ctx context.Context, data []byte, handler Handler) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		q.log.Error("failed to decode task", "err", err)
		return
	}
	log := q.log.With("task_id", task.ID, "type", task.Type, "attempt", task.Attempts+1)

	if wait := time.Until(task.NotBefore); wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}

	start := time.Now()
	log.Info("task received")
	err := handler(ctx, task)
	if err == nil {
		log.Info("task done", "duration_ms", time.Since(start).Milliseconds())
		return
	}

	next, ok := nextAttempt(task, err, q.base, time.Now())
	if !ok {
		log.Error("task failed permanently", "err", err)
		return
	}
	log.Warn("task failed; redelivering", "err", err, "not_before", next.NotBefore)
	if err := q.Enqueue(ctx, next); err != nil {
		log.Error("failed to re-enqueue task", "err", err)
	}
}

// nextAttempt decides whether a failed task is published again and when. Permanent
// errors and exhausted tasks are dropped.
func nextAttempt(task Task, err error, base time.Duration, now time.Time) (Task, bool) {
	if errors.Is(err, ErrPermanent) {
		return task, false
	}
	if task.MaxAttempts <= 0 {
		task.MaxAttempts = DefaultMaxAttempts
	}
	task.Attempts++
	if task.Attempts >= task.MaxAttempts {
		return task, false
	}
	task.NotBefore = now.Add(retry.ExponentialBackoff(task.Attempts, base))
	return task, true
}
