package workpool_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/workpool"
)

func TestGoRunsEveryItemAndPropagatesFirstError(t *testing.T) {
	pool := workpool.New(4)
	boom := errors.New("boom")

	err := workpool.Go(context.Background(), pool, []int{1, 2, 3}, func(ctx context.Context, n int) error {
		if n == 2 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
}

func TestGoSucceedsWhenNoItemErrors(t *testing.T) {
	pool := workpool.New(2)
	var sum int64
	items := []int{1, 2, 3, 4, 5}

	err := workpool.Go(context.Background(), pool, items, func(ctx context.Context, n int) error {
		atomic.AddInt64(&sum, int64(n))
		return nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 15, atomic.LoadInt64(&sum))
}

func TestMapPreservesInputOrderRegardlessOfCompletionOrder(t *testing.T) {
	pool := workpool.New(4)
	items := []int{5, 4, 3, 2, 1}

	results, err := workpool.Map(context.Background(), pool, items, func(ctx context.Context, n int) (int, error) {
		return n * n, nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{25, 16, 9, 4, 1}, results)
}

func TestMapPropagatesError(t *testing.T) {
	pool := workpool.New(2)
	boom := errors.New("boom")

	_, err := workpool.Map(context.Background(), pool, []int{1, 2, 3}, func(ctx context.Context, n int) (int, error) {
		if n == 3 {
			return 0, boom
		}
		return n, nil
	})
	require.ErrorIs(t, err, boom)
}

func TestLimiterBoundsConcurrentHolders(t *testing.T) {
	limiter := workpool.NewLimiter(1)
	var inFlight int32
	var maxSeen int32

	err := workpool.Go(context.Background(), workpool.New(4), []int{1, 2, 3, 4}, func(ctx context.Context, n int) error {
		return limiter.Do(ctx, func() error {
			cur := atomic.AddInt32(&inFlight, 1)
			for {
				max := atomic.LoadInt32(&maxSeen)
				if cur <= max || atomic.CompareAndSwapInt32(&maxSeen, max, cur) {
					break
				}
			}
			atomic.AddInt32(&inFlight, -1)
			return nil
		})
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&maxSeen))
}
