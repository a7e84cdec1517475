// Package fanout is the bounded-concurrency batch primitive used by the
// enrichment orchestrator. Given N tickers and a per-ticker fetch
// function it executes with a concurrency cap and a wall-clock budget,
// returning partial results when the budget is exhausted.
package fanout

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Result pairs one key with its fetched value.
type Result[T any] struct {
	Key   string
	Value T
	Err   error
}

// Map runs fn for every key with at most concurrency in flight and a
// wall-clock budget. Keys whose fetch did not complete inside the budget
// are simply absent from the returned map; fn errors map the key to its
// zero value (absent). The iteration order of the result map carries no
// meaning — callers must impose their own ordering afterwards.
func Map[T any](ctx context.Context, keys []string, concurrency int, budget time.Duration, fn func(ctx context.Context, key string) (T, error)) map[string]T {
	if concurrency <= 0 {
		concurrency = 1
	}

	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	var mu sync.Mutex
	out := make(map[string]T, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, key := range keys {
		if gctx.Err() != nil {
			break // budget exhausted; return what we have
		}
		key := key
		g.Go(func() error {
			value, err := fn(gctx, key)
			if err != nil || gctx.Err() != nil {
				return nil // absent, never fatal
			}
			mu.Lock()
			out[key] = value
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return out
}
