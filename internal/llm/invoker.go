package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"doc-distill/internal/cache"
	"doc-distill/internal/retry"
)

const DefaultTimeout = 120 * time.Second

// InvokerOptions tunes how prompts are submitted.
type InvokerOptions struct {
	// Timeout bounds each individual model call.
	Timeout time.Duration
	// MaxRetries is the number of extra attempts after a failed call.
	MaxRetries int
	// RetryBase is the first backoff delay; it doubles per attempt.
	RetryBase time.Duration
	// CacheTTL is passed to the reply cache on writes.
	CacheTTL time.Duration
}

// Invoker wraps a Client with a per-call timeout, optional retries and a reply cache.
type Invoker struct {
	client Client
	cache  cache.Cache
	log    *slog.Logger
	opts   InvokerOptions
}

// NewInvoker builds an Invoker. A nil cache disables caching.
func NewInvoker(client Client, c cache.Cache, log *slog.Logger, opts InvokerOptions) *Invoker {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 500 * time.Millisecond
	}
	return &Invoker{client: client, cache: c, log: log, opts: opts}
}

// Model returns the underlying model name.
func (i *Invoker) Model() string {
	return i.client.Model()
}

// Invoke sends prompt and returns the raw reply. Every failure is reported as ErrModelUnavailable.
func (i *Invoker) Invoke(ctx context.Context, prompt string) (string, error) {
	key := cache.Key(i.client.Model(), prompt)
	if reply, ok, err := i.cache.GetReply(ctx, key); err != nil {
		i.log.Warn("reply cache read failed", "err", err)
	} else if ok {
		i.log.Debug("reply cache hit", "model", i.client.Model())
		return reply, nil
	}

	var lastErr error
	for attempt := 0; attempt <= i.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			i.log.Warn("retrying model call", "attempt", attempt,
				"delay", retry.ExponentialBackoff(attempt-1, i.opts.RetryBase), "err", lastErr)
			if err := retry.Wait(ctx, attempt-1, i.opts.RetryBase); err != nil {
				return "", fmt.Errorf("%w: %w", ErrModelUnavailable, err)
			}
		}

		reply, err := i.call(ctx, prompt)
		if err == nil {
			if err := i.cache.SetReply(ctx, key, reply, i.opts.CacheTTL); err != nil {
				i.log.Warn("reply cache write failed", "err", err)
			}
			return reply, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (i *Invoker) call(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, i.opts.Timeout)
	defer cancel()

	reply, err := i.client.Generate(callCtx, prompt)
	if err == nil {
		return reply, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		if !errors.Is(err, ErrModelUnavailable) {
			err = fmt.Errorf("%w: %w", ErrModelUnavailable, err)
		}
		return "", fmt.Errorf("model call timed out after %s: %w", i.opts.Timeout, err)
	}
	if !errors.Is(err, ErrModelUnavailable) {
		err = fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	return "", err
}
