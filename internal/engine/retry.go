package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultCallTimeout = 60 * time.Second
	baseBackoff        = 500 * time.Millisecond
)

// RetryEngine wraps an Engine with per-call timeouts and bounded
// exponential backoff for the two network operations (Chat, Embed).
// Transient collaborator failures are retried; a final failure is
// returned wrapped so callers can distinguish it from a security alert.
// Retries stop immediately when the caller's context is cancelled.
type RetryEngine struct {
	inner       Engine
	maxAttempts int
	callTimeout time.Duration
}

// NewRetryEngine wraps inner. maxAttempts <= 0 defaults to 3,
// callTimeout <= 0 defaults to 60s.
func NewRetryEngine(inner Engine, maxAttempts int, callTimeout time.Duration) *RetryEngine {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &RetryEngine{inner: inner, maxAttempts: maxAttempts, callTimeout: callTimeout}
}

func (r *RetryEngine) Chat(ctx context.Context, model string, messages []Message, jsonSchema *Schema) (string, error) {
	var out string
	err := r.do(ctx, "chat", func(callCtx context.Context) error {
		var err error
		out, err = r.inner.Chat(callCtx, model, messages, jsonSchema)
		return err
	})
	return out, err
}

func (r *RetryEngine) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	var out []float32
	err := r.do(ctx, "embed", func(callCtx context.Context) error {
		var err error
		out, err = r.inner.Embed(callCtx, model, text)
		return err
	})
	return out, err
}

func (r *RetryEngine) IsRunning(ctx context.Context) bool { return r.inner.IsRunning(ctx) }

func (r *RetryEngine) ListModels(ctx context.Context) ([]string, error) {
	return r.inner.ListModels(ctx)
}

func (r *RetryEngine) HasModel(ctx context.Context, name string) bool {
	return r.inner.HasModel(ctx, name)
}

func (r *RetryEngine) do(ctx context.Context, op string, call func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		err := call(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		// The caller cancelled: not a transient failure, stop retrying.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == r.maxAttempts {
			break
		}

		backoff := baseBackoff << (attempt - 1)
		slog.Debug("engine call failed, retrying",
			"op", op, "attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, r.maxAttempts, lastErr)
}
