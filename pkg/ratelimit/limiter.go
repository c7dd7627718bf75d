package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter admits or rejects requests per client identity using a trailing
// sliding window of request timestamps. An optional process-wide token
// bucket sits in front of the per-identity accounting.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	span    time.Duration
	idleTTL time.Duration
	global  *rate.Limiter
	now     func() time.Time
}

type window struct {
	stamps   []time.Time
	lastSeen time.Time
}

type Option func(*Limiter)

// WithGlobalRPS enables a process-wide throttle ahead of per-identity
// accounting. rps <= 0 leaves it disabled.
func WithGlobalRPS(rps float64, burst int) Option {
	return func(l *Limiter) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = int(rps)
			if burst < 1 {
				burst = 1
			}
		}
		l.global = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithIdleTTL sets how long an idle identity survives before the janitor
// evicts it.
func WithIdleTTL(d time.Duration) Option {
	return func(l *Limiter) { l.idleTTL = d }
}

func withClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter admitting at most limit requests per identity within
// the trailing span. limit <= 0 defaults to 100, span <= 0 to one minute.
func New(limit int, span time.Duration, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = 100
	}
	if span <= 0 {
		span = time.Minute
	}
	l := &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		span:    span,
		idleTTL: 15 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit prunes the identity's window, then either rejects (count at limit,
// nothing recorded) or records the attempt and accepts. Prune-and-append is
// done under one lock so two in-flight requests from the same identity are
// both counted.
func (l *Limiter) Admit(identity string) bool {
	if identity == "" {
		identity = "unknown"
	}
	if l.global != nil && !l.global.Allow() {
		return false
	}

	now := l.now()
	cutoff := now.Add(-l.span)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[identity]
	if !ok {
		w = &window{}
		l.windows[identity] = w
	}
	w.lastSeen = now

	kept := w.stamps[:0]
	for _, t := range w.stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.stamps = kept

	if len(w.stamps) >= l.limit {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// Sweep evicts identities idle longer than the TTL and returns how many were
// removed.
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, w := range l.windows {
		if w.lastSeen.Before(cutoff) {
			delete(l.windows, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps idle identities periodically until ctx is done. The
// identity map would otherwise grow without bound.
func (l *Limiter) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 2 * time.Minute
	}
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Sweep()
			}
		}
	}()
}
