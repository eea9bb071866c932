// Package workpool is the data-parallel pool backing parallel factorize and
// parallel codegen (spec §5): bounded-concurrency fan-out with first-error
// cancellation.
package workpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool runs work items with at most Limit running concurrently. The zero
// value is not usable; construct with New.
type Pool struct {
	limit int
}

// New returns a Pool bounded to limit concurrent goroutines. limit <= 0
// defaults to runtime.NumCPU(), matching the fan-out width the corpus's own
// errgroup-based prebundler picks for per-package parallel work.
func New(limit int) *Pool {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	return &Pool{limit: limit}
}

// Go runs fn(ctx, item) for every item in items, at most p.limit at a time,
// and returns the first error any call returns. A failing call cancels the
// ctx every call receives; calls not yet started still run, with that
// cancelled ctx, same as errgroup.Group.
func Go[T any](ctx context.Context, p *Pool, items []T, fn func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for _, item := range items {
		item := item
		g.Go(func() error {
			return fn(gctx, item)
		})
	}
	return g.Wait()
}

// Map runs fn(ctx, item) for every item in items, at most p.limit at a
// time, and returns their results in input order (not completion order):
// the shape parallel codegen needs, N modules generated concurrently, but
// chunk rendering still walks them in a stable, deterministic order.
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Limiter bounds concurrent access to a shared resource independently of
// how many Pool workers are running, e.g. capping concurrent persisted
// cache writes to the underlying filesystem's own comfortable I/O
// parallelism, separate from however wide the codegen fan-out is.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter returns a Limiter admitting at most max concurrent holders.
func NewLimiter(max int64) *Limiter {
	return &Limiter{sem: semaphore.NewWeighted(max)}
}

// Do runs fn while holding one unit of the limiter's weight, blocking until
// a unit is available or ctx is cancelled.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return fn()
}
