package llm

import (
	"context"
	"errors"
)

// ErrModelUnavailable marks failures to obtain a reply: transport errors, error statuses,
// provider errors and timeouts. An empty reply is not an error.
var ErrModelUnavailable = errors.New("model unavailable")

// Client sends a single prompt to a language model and returns the raw reply.
// Calls are independent; no conversation state is kept between them.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Pinger is implemented by clients whose backend exposes a cheap liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Truncate limits text to at most limit characters. A non-positive limit disables the cap.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == limit {
			return text[:i]
		}
		count++
	}
	return text
}
