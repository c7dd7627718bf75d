package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunReturnsResult(t *testing.T) {
	d := New(2, time.Second)

	got, err := Run(context.Background(), d, 0, func(context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Fatalf("expected %q, got %q", "ok", got)
	}
}

func TestRunTimeout(t *testing.T) {
	d := New(1, time.Second)

	_, err := Run(context.Background(), d, 20*time.Millisecond, func(ctx context.Context) (int, error) {
		time.Sleep(200 * time.Millisecond)
		return 42, nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestAbandonedOpReleasesSlot(t *testing.T) {
	d := New(1, time.Second)

	_, err := Run(context.Background(), d, 10*time.Millisecond, func(ctx context.Context) (int, error) {
		time.Sleep(100 * time.Millisecond)
		return 0, nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	// The abandoned op still holds the single slot; a follow-up call must
	// succeed once it drains.
	got, err := Run(context.Background(), d, time.Second, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatalf("slot was not returned to the pool: %v", err)
	}
	if got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}

func TestRunWrapsBackendFault(t *testing.T) {
	d := New(1, time.Second)

	boom := errors.New("extractor exploded")
	_, err := Run(context.Background(), d, 0, func(context.Context) (int, error) {
		return 0, boom
	})

	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BackendError, got %T: %v", err, err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("wrapped error lost the cause: %v", err)
	}
}

func TestRunRecoversPanic(t *testing.T) {
	d := New(1, time.Second)

	_, err := Run(context.Background(), d, 0, func(context.Context) (int, error) {
		panic("backend went sideways")
	})

	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BackendError from panic, got %T: %v", err, err)
	}
}

func TestRunNoDeadline(t *testing.T) {
	d := New(1, 10*time.Millisecond)

	// Negative timeout disables the deadline entirely; the op outlives the
	// dispatcher default.
	got, err := Run(context.Background(), d, -1, func(ctx context.Context) (string, error) {
		time.Sleep(50 * time.Millisecond)
		return "slow but fine", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "slow but fine" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestRunHonorsCallerCancel(t *testing.T) {
	d := New(1, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Run(ctx, d, -1, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
