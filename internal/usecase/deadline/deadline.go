// Package deadline bounds a single provider or tool call.
package deadline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainforge/internal/domain/entity"
)

// Call runs fn with a context limited to d and returns once fn finishes or
// the deadline passes, whichever comes first. A call that outlives its
// deadline yields entity.ErrTimeout even if fn ignores its context. A
// non-positive d only applies the parent context.
func Call[T any](ctx context.Context, d time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, wrap(op, d, err)
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if d > 0 {
		callCtx, cancel = context.WithTimeout(ctx, d)
	}
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(callCtx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return zero, wrap(op, d, r.err)
		}
		return r.val, r.err
	case <-callCtx.Done():
		return zero, wrap(op, d, callCtx.Err())
	}
}

func wrap(op string, d time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		if d > 0 {
			return fmt.Errorf("%w: %s exceeded %s", entity.ErrTimeout, op, d)
		}
		return fmt.Errorf("%w: %s: %w", entity.ErrTimeout, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
