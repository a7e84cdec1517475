package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func keys(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('A' + i))
	}
	return out
}

func TestMapFetchesEveryKey(t *testing.T) {
	got := Map(context.Background(), keys(8), 4, 0, func(_ context.Context, k string) (string, error) {
		return k + "!", nil
	})
	assert.Len(t, got, 8)
	assert.Equal(t, "A!", got["A"])
}

func TestMapBoundsConcurrency(t *testing.T) {
	var inFlight, peak int64
	Map(context.Background(), keys(12), 3, 0, func(_ context.Context, k string) (string, error) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return k, nil
	})
	assert.LessOrEqual(t, peak, int64(3))
	assert.Greater(t, peak, int64(0))
}

func TestMapErrorsReadAsAbsent(t *testing.T) {
	got := Map(context.Background(), []string{"OK", "BAD"}, 2, 0, func(_ context.Context, k string) (int, error) {
		if k == "BAD" {
			return 0, errors.New("vendor 500")
		}
		return 42, nil
	})
	assert.Equal(t, 42, got["OK"])
	_, ok := got["BAD"]
	assert.False(t, ok, "failed keys are absent, not zero-valued")
}

func TestMapBudgetReturnsPartialResults(t *testing.T) {
	got := Map(context.Background(), keys(6), 1, 50*time.Millisecond, func(ctx context.Context, k string) (string, error) {
		if k == "A" {
			return k, nil
		}
		select {
		case <-time.After(time.Second):
			return k, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	assert.Equal(t, "A", got["A"])
	assert.Less(t, len(got), 6, "budget exhaustion drops the stragglers")
}

func TestMapCancelledContextYieldsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int64
	got := Map(ctx, keys(4), 2, 0, func(_ context.Context, k string) (string, error) {
		atomic.AddInt64(&calls, 1)
		return k, nil
	})
	assert.Empty(t, got)
	assert.Zero(t, atomic.LoadInt64(&calls))
}
