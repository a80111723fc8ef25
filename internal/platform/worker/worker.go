// Package worker provides small concurrency helpers shared by the evaluation
// driver and batch tagging: bounded fan-out over indexed work, per-call
// timeouts, and panic recovery.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const logFieldOperation = "operation"

// ErrPanic indicates a guarded function panicked.
var ErrPanic = errors.New("recovered from panic")

// IndexFunc processes the i-th unit of work.
type IndexFunc func(ctx context.Context, i int)

// ForEach calls fn for every index in [0, n) with at most limit calls in
// flight. It returns when all calls have finished. Indices not yet started when
// ctx is canceled are still passed to fn, which is expected to check ctx itself.
func ForEach(ctx context.Context, n, limit int, fn IndexFunc) {
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group

	g.SetLimit(limit)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(ctx, i)

			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // fn never returns an error
}

// Guard runs fn and converts a panic into an error wrapping ErrPanic.
func Guard(logger *zerolog.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error().
					Interface("panic", r).
					Str(logFieldOperation, operation).
					Msg("recovered from panic")
			}

			err = fmt.Errorf("%w in %s: %v", ErrPanic, operation, r)
		}
	}()

	return fn()
}

// Wait blocks until duration elapses or context is canceled.
// Returns a wrapped context error if context is canceled.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-time.After(d):
		return nil
	}
}

// RunWithTimeout runs fn with a timeout derived from the parent context.
// A non-positive timeout runs fn with the parent context unchanged.
func RunWithTimeout(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return fn(timeoutCtx)
}
