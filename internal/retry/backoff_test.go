package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	base := 100 * time.Millisecond

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1600 * time.Millisecond},
		{-1, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		result := ExponentialBackoff(tt.attempt, base)
		if result != tt.expected {
			t.Errorf("attempt %d: got %v, want %v", tt.attempt, result, tt.expected)
		}
	}
}

func TestExponentialBackoffCapped(t *testing.T) {
	if got := ExponentialBackoff(20, time.Second); got != MaxBackoff {
		t.Errorf("got %v, want %v", got, MaxBackoff)
	}
	if got := ExponentialBackoff(63, time.Millisecond); got != MaxBackoff {
		t.Errorf("overflow: got %v, want %v", got, MaxBackoff)
	}
}

func TestWaitReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Wait(ctx, 5, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait did not return promptly after cancel")
	}
}

func TestWaitElapses(t *testing.T) {
	if err := Wait(context.Background(), 0, time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
