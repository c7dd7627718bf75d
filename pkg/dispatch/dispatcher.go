package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTimeout is returned when an operation exceeds its budget. The
// underlying call keeps running on its worker until it returns on its own;
// the extractor does not support forced cancellation.
var ErrTimeout = errors.New("extraction timed out")

// BackendError wraps a fault raised by the extraction backend.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string { return "backend failure: " + e.Err.Error() }
func (e *BackendError) Unwrap() error { return e.Err }

// Dispatcher runs blocking backend calls on a bounded worker pool so the
// request-serving goroutines are never held by a slow extraction.
type Dispatcher struct {
	slots   *semaphore.Weighted
	timeout time.Duration
}

// New builds a dispatcher with the given pool size and default per-operation
// timeout. workers <= 0 defaults to 8, timeout <= 0 to 30s.
func New(workers int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 8
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		slots:   semaphore.NewWeighted(int64(workers)),
		timeout: timeout,
	}
}

// Timeout is the dispatcher's default per-operation budget.
func (d *Dispatcher) Timeout() time.Duration { return d.timeout }

// Run executes op on a pooled worker and races it against timeout (0 means
// the dispatcher default, negative means no deadline beyond ctx). On
// timeout the abandoned op runs to completion and releases its slot then;
// its result is discarded.
func Run[T any](ctx context.Context, d *Dispatcher, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	var zero T

	if timeout == 0 {
		timeout = d.timeout
	}
	opCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		opCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := d.slots.Acquire(opCtx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return zero, fmt.Errorf("acquire worker: %w", err)
	}

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer d.slots.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &BackendError{Err: fmt.Errorf("panic: %v", r)}}
			}
		}()
		val, err := op(opCtx)
		done <- outcome{val: val, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			var be *BackendError
			if errors.As(out.err, &be) {
				return zero, out.err
			}
			if errors.Is(out.err, context.DeadlineExceeded) {
				return zero, ErrTimeout
			}
			if errors.Is(out.err, context.Canceled) {
				return zero, out.err
			}
			return zero, &BackendError{Err: out.err}
		}
		return out.val, nil
	case <-opCtx.Done():
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return zero, opCtx.Err()
	}
}
