package ai

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"applicant-rag/internal/metrics"
	"applicant-rag/internal/throttle"
)

const (
	DefaultMaxAttempts = 3
	baseRetryDelay     = 200 * time.Millisecond
	maxRetryDelay      = 5 * time.Second
)

// GatedClient sends every provider call through the shared throttle gate.
// Transient failures are retried after the gate has been released.
type GatedClient struct {
	provider    Provider
	gate        *throttle.Gate
	maxAttempts int
	metrics     *metrics.Metrics
	log         zerolog.Logger
	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

type GatedOption func(*GatedClient)

func WithMaxAttempts(n int) GatedOption {
	return func(c *GatedClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithGatedMetrics(m *metrics.Metrics) GatedOption {
	return func(c *GatedClient) { c.metrics = m }
}

func WithLogger(l zerolog.Logger) GatedOption {
	return func(c *GatedClient) { c.log = l }
}

func NewGatedClient(p Provider, gate *throttle.Gate, opts ...GatedOption) *GatedClient {
	c := &GatedClient{
		provider:    p,
		gate:        gate,
		maxAttempts: DefaultMaxAttempts,
		log:         zerolog.Nop(),
		sleep:       sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *GatedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	return call(ctx, c, "embed", func(ctx context.Context) ([]float32, error) {
		return c.provider.Embed(ctx, text)
	})
}

func (c *GatedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return call(ctx, c, "embed_batch", func(ctx context.Context) ([][]float32, error) {
		return c.provider.EmbedBatch(ctx, texts)
	})
}

func (c *GatedClient) Complete(ctx context.Context, system, user string) (string, error) {
	return call(ctx, c, "complete", func(ctx context.Context) (string, error) {
		return c.provider.Complete(ctx, system, user)
	})
}

func call[T any](ctx context.Context, c *GatedClient, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		start := time.Now()
		out, err := throttle.Call(ctx, c.gate, fn)
		if errors.Is(err, throttle.ErrTimeout) {
			return zero, err
		}
		c.metrics.ObserveProviderCall(op, time.Since(start), err)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil || !Retryable(err) || attempt+1 >= c.maxAttempts {
			return zero, err
		}

		delay := retryDelay(attempt)
		c.log.Warn().Err(err).Str("operation", op).Int("attempt", attempt+1).Dur("backoff", delay).Msg("provider call failed, retrying")
		if err := c.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt > 10 {
		return maxRetryDelay
	}
	d := baseRetryDelay << attempt
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
