// Package llm wraps the hosted text generators used to write forecasts.
package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNoCredential means no API key is configured. The generator is
	// unavailable for the whole run.
	ErrNoCredential = errors.New("no LLM credential configured")

	// ErrEmptyResponse is returned when the provider answers with no text.
	ErrEmptyResponse = errors.New("empty LLM response")

	// ErrMalformed is returned when a response holds no decodable JSON object.
	ErrMalformed = errors.New("malformed LLM response")
)

// Client defines the interface for text generation providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// throttle spaces requests at least interval apart. Waiting honours ctx.
type throttle struct {
	mu          sync.Mutex
	interval    time.Duration
	lastRequest time.Time
}

func (t *throttle) wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.interval > 0 && !t.lastRequest.IsZero() {
		if remaining := t.interval - time.Since(t.lastRequest); remaining > 0 {
			timer := time.NewTimer(remaining)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	t.lastRequest = time.Now()
	return nil
}

// withTimeout bounds a single request when timeout is positive.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
