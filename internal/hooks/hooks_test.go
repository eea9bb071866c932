package hooks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/hooks"
)

func TestWaterfallHookThreadsValueThroughStages(t *testing.T) {
	var h hooks.WaterfallHook[string]
	h.Tap("upper-first", hooks.StageDefault, func(_ context.Context, s string) (string, error) {
		return s + "-a", nil
	})
	h.Tap("upper-second", hooks.StageDefault+1, func(_ context.Context, s string) (string, error) {
		return s + "-b", nil
	})

	out, err := h.Call(context.Background(), "start")
	require.NoError(t, err)
	require.Equal(t, "start-a-b", out)
}

func TestWaterfallHookStopsOnError(t *testing.T) {
	var h hooks.WaterfallHook[string]
	boom := errors.New("boom")
	h.Tap("fails", hooks.StageDefault, func(_ context.Context, s string) (string, error) {
		return s, boom
	})
	h.Tap("never-runs", hooks.StageDefault+1, func(_ context.Context, s string) (string, error) {
		t.Fatal("should not run after an earlier tap errors")
		return s, nil
	})

	_, err := h.Call(context.Background(), "start")
	require.ErrorIs(t, err, boom)
}

func TestBailHookReturnsFirstNonNilResult(t *testing.T) {
	var h hooks.BailHook[string, int]
	h.Tap("skip", hooks.StageDefault, func(_ context.Context, s string) (*int, error) {
		return nil, nil
	})
	h.Tap("claim", hooks.StageDefault, func(_ context.Context, s string) (*int, error) {
		v := 42
		return &v, nil
	})
	h.Tap("never-reached", hooks.StageDefault+1, func(_ context.Context, s string) (*int, error) {
		t.Fatal("should not run once an earlier tap claims the value")
		return nil, nil
	})

	r, err := h.Call(context.Background(), "anything")
	require.NoError(t, err)
	require.NotNil(t, r)
	require.Equal(t, 42, *r)
}

func TestParallelHookReportsAnyError(t *testing.T) {
	var h hooks.ParallelHook[string]
	boom := errors.New("boom")
	h.Tap("ok", hooks.StageDefault, func(_ context.Context, s string) error { return nil })
	h.Tap("bad", hooks.StageDefault, func(_ context.Context, s string) error { return boom })

	err := h.Call(context.Background(), "asset.js")
	require.ErrorIs(t, err, boom)
}

func TestTapsRunInStageThenRegistrationOrder(t *testing.T) {
	var h hooks.SyncHook[string]
	var order []string
	h.Tap("second-stage", hooks.StageDefault+1, func(_ context.Context, s string) error {
		order = append(order, "second-stage")
		return nil
	})
	h.Tap("first-stage-a", hooks.StageDefault, func(_ context.Context, s string) error {
		order = append(order, "first-stage-a")
		return nil
	})
	h.Tap("first-stage-b", hooks.StageDefault, func(_ context.Context, s string) error {
		order = append(order, "first-stage-b")
		return nil
	})

	require.NoError(t, h.Call(context.Background(), "x"))
	require.Equal(t, []string{"first-stage-a", "first-stage-b", "second-stage"}, order)
}
