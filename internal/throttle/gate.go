// Package throttle serializes and paces calls to the embedding and LLM
// provider.
//
// The provider enforces a per-process quota, so exactly one Gate is built
// per process (see bootstrap) and handed to every component that talks to
// the provider. Tests build their own isolated gates.
package throttle

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"applicant-rag/internal/metrics"
)

const (
	DefaultInterval    = 150 * time.Millisecond
	DefaultLockTimeout = 5 * time.Second
	DefaultHoldLimit   = 90 * time.Second
)

// ErrTimeout means the current holder has kept the gate longer than the
// hold limit plus the lock timeout. It signals a stuck holder and must not
// be retried like a provider error.
var ErrTimeout = errors.New("throttle gate lock timeout")

type Gate struct {
	slot        chan struct{}
	interval    time.Duration
	lockTimeout time.Duration
	holdLimit   time.Duration
	// acquiredAt is the holder's entry time in unix nanos, 0 when free.
	acquiredAt atomic.Int64
	// last is guarded by slot.
	last    time.Time
	metrics *metrics.Metrics
}

type Option func(*Gate)

func WithInterval(d time.Duration) Option {
	return func(g *Gate) {
		if d >= 0 {
			g.interval = d
		}
	}
}

func WithLockTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.lockTimeout = d
		}
	}
}

// WithHoldLimit sets how long a live call may keep the gate, normally the
// provider timeout. Waiters only give up once a holder exceeds it by more
// than the lock timeout.
func WithHoldLimit(d time.Duration) Option {
	return func(g *Gate) {
		if d >= 0 {
			g.holdLimit = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

func New(opts ...Option) *Gate {
	g := &Gate{
		slot:        make(chan struct{}, 1),
		interval:    DefaultInterval,
		lockTimeout: DefaultLockTimeout,
		holdLimit:   DefaultHoldLimit,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) Interval() time.Duration {
	return g.interval
}

// Do runs fn once the gate is free and at least the interval has passed
// since the previous call returned. The error of fn is returned unchanged.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	start := time.Now()
	if err := g.acquire(ctx); err != nil {
		return err
	}
	defer g.release()

	if !g.last.IsZero() {
		if wait := g.interval - time.Since(g.last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	g.metrics.ObserveThrottleWait(time.Since(start))

	defer func() { g.last = time.Now() }()
	return fn(ctx)
}

// acquire waits for the slot. Queue depth alone never fails a waiter; it
// gets ErrTimeout only when the holder it is waiting on has held the slot
// for lockTimeout+holdLimit.
func (g *Gate) acquire(ctx context.Context) error {
	limit := g.lockTimeout + g.holdLimit
	timer := time.NewTimer(limit)
	defer timer.Stop()
	for {
		select {
		case g.slot <- struct{}{}:
			g.acquiredAt.Store(time.Now().UnixNano())
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			held := g.heldFor()
			if held >= limit {
				g.metrics.IncThrottleTimeout()
				return ErrTimeout
			}
			timer.Reset(limit - held)
		}
	}
}

func (g *Gate) heldFor() time.Duration {
	at := g.acquiredAt.Load()
	if at == 0 {
		return 0
	}
	return time.Since(time.Unix(0, at))
}

func (g *Gate) release() {
	g.acquiredAt.Store(0)
	<-g.slot
}

// Call is Do for functions that return a value.
func Call[T any](ctx context.Context, g *Gate, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
