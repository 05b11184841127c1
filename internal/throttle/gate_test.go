package throttle

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateSpacesConcurrentCalls(t *testing.T) {
	const interval = 20 * time.Millisecond
	g := New(WithInterval(interval), WithLockTimeout(5*time.Second))

	var (
		mu       sync.Mutex
		finished []time.Time
		inFlight int32
		maxSeen  int32
		wg       sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Do(context.Background(), func(context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					seen := atomic.LoadInt32(&maxSeen)
					if n <= seen || atomic.CompareAndSwapInt32(&maxSeen, seen, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				mu.Lock()
				finished = append(finished, time.Now())
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, finished, 10)
	assert.Equal(t, int32(1), maxSeen)
	sort.Slice(finished, func(i, j int) bool { return finished[i].Before(finished[j]) })
	for i := 1; i < len(finished); i++ {
		gap := finished[i].Sub(finished[i-1])
		assert.GreaterOrEqual(t, gap, interval, "calls %d and %d", i-1, i)
	}
}

func TestGatePropagatesErrorUnchanged(t *testing.T) {
	g := New(WithInterval(0))
	want := errors.New("429 too many requests")

	calls := 0
	err := g.Do(context.Background(), func(context.Context) error {
		calls++
		return want
	})
	assert.Same(t, want, err)
	assert.Equal(t, 1, calls)
}

func TestGateLockTimeout(t *testing.T) {
	g := New(WithInterval(0), WithLockTimeout(30*time.Millisecond), WithHoldLimit(0))

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = g.Do(context.Background(), func(context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	start := time.Now()
	err := g.Do(context.Background(), func(context.Context) error {
		t.Fatal("must not run while the gate is held")
		return nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	close(release)
}

func TestGateWaitsBehindLiveHolders(t *testing.T) {
	// Each call holds the gate longer than the lock timeout, and the queue
	// as a whole takes far longer, but no holder exceeds its hold limit.
	g := New(WithInterval(0), WithLockTimeout(20*time.Millisecond), WithHoldLimit(200*time.Millisecond))

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = g.Do(context.Background(), func(context.Context) error {
				time.Sleep(60 * time.Millisecond)
				return nil
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		assert.NoError(t, err, "call %d", i)
	}
}

func TestGateTimesOutOnStuckHolder(t *testing.T) {
	g := New(WithInterval(0), WithLockTimeout(20*time.Millisecond), WithHoldLimit(30*time.Millisecond))

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = g.Do(context.Background(), func(context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	start := time.Now()
	err := g.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGateContextCancelledWhileWaiting(t *testing.T) {
	g := New(WithInterval(time.Second))
	require.NoError(t, g.Do(context.Background(), func(context.Context) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	ran := false
	err := g.Do(ctx, func(context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)
}

func TestCallReturnsValue(t *testing.T) {
	g := New(WithInterval(0))
	got, err := Call(context.Background(), g, func(context.Context) ([]float32, error) {
		return []float32{1, 2, 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, got)
}
