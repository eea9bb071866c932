// Package hooks provides the ordered-tap plugin infrastructure spec.md §4.5
// describes: named hook points that accept stage-sorted taps and run them
// with waterfall, bail, or parallel semantics, independent of any one
// module/chunk/codegen concern.
package hooks

import (
	"context"
	"sort"
	"sync"
)

// Stage orders taps within a hook the same way a teacher-style plugin
// system does: lower stages run first, ties broken by registration order.
type Stage int

const (
	StageDefault Stage = 0
)

type tap struct {
	name  string
	stage Stage
	order int
	fn    any
}

// baseHook holds the bookkeeping shared by every hook flavor below.
type baseHook struct {
	mu   sync.Mutex
	taps []tap
	next int
}

func (b *baseHook) add(name string, stage Stage, fn any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.taps = append(b.taps, tap{name: name, stage: stage, order: b.next, fn: fn})
	b.next++
	sort.SliceStable(b.taps, func(i, j int) bool {
		if b.taps[i].stage != b.taps[j].stage {
			return b.taps[i].stage < b.taps[j].stage
		}
		return b.taps[i].order < b.taps[j].order
	})
}

func (b *baseHook) snapshot() []tap {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]tap, len(b.taps))
	copy(out, b.taps)
	return out
}

// WaterfallHook feeds each tap's return value into the next as input,
// stopping only on error (spec.md §4.5: "asset filename templates are
// waterfall hooks, each tap transforming the previous result").
type WaterfallHook[T any] struct {
	base baseHook
}

func (h *WaterfallHook[T]) Tap(name string, stage Stage, fn func(context.Context, T) (T, error)) {
	h.base.add(name, stage, fn)
}

func (h *WaterfallHook[T]) Call(ctx context.Context, value T) (T, error) {
	for _, t := range h.base.snapshot() {
		fn := t.fn.(func(context.Context, T) (T, error))
		v, err := fn(ctx, value)
		if err != nil {
			return value, err
		}
		value = v
	}
	return value, nil
}

// BailHook runs taps in order and stops at the first non-nil result
// (spec.md §4.5: "module resolution shortcuts on the first tap that claims
// the request").
type BailHook[T any, R any] struct {
	base baseHook
}

func (h *BailHook[T, R]) Tap(name string, stage Stage, fn func(context.Context, T) (*R, error)) {
	h.base.add(name, stage, fn)
}

func (h *BailHook[T, R]) Call(ctx context.Context, value T) (*R, error) {
	for _, t := range h.base.snapshot() {
		fn := t.fn.(func(context.Context, T) (*R, error))
		r, err := fn(ctx, value)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}
	}
	return nil, nil
}

// ParallelHook runs every tap concurrently and reports the first error, if
// any (spec.md §4.5, §5: "process_assets taps with no declared ordering
// dependency may run concurrently").
type ParallelHook[T any] struct {
	base baseHook
}

func (h *ParallelHook[T]) Tap(name string, stage Stage, fn func(context.Context, T) error) {
	h.base.add(name, stage, fn)
}

func (h *ParallelHook[T]) Call(ctx context.Context, value T) error {
	taps := h.base.snapshot()
	errs := make([]error, len(taps))
	var wg sync.WaitGroup
	for i, t := range taps {
		wg.Add(1)
		go func(i int, fn func(context.Context, T) error) {
			defer wg.Done()
			errs[i] = fn(ctx, value)
		}(i, t.fn.(func(context.Context, T) error))
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// SyncHook runs every tap in registration/stage order and reports the
// first error. Used for taps where ordering matters but no value threads
// through (e.g. "compilation finished" notifications).
type SyncHook[T any] struct {
	base baseHook
}

func (h *SyncHook[T]) Tap(name string, stage Stage, fn func(context.Context, T) error) {
	h.base.add(name, stage, fn)
}

func (h *SyncHook[T]) Call(ctx context.Context, value T) error {
	for _, t := range h.base.snapshot() {
		fn := t.fn.(func(context.Context, T) error)
		if err := fn(ctx, value); err != nil {
			return err
		}
	}
	return nil
}
