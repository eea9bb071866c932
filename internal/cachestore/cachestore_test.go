package cachestore_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/cachestore"
	"github.com/bundlecore/bundlecore/internal/workpool"
)

func newTestStore(t *testing.T) *cachestore.Store {
	t.Helper()
	store, err := cachestore.NewStore(afero.NewMemMapFs(), "/cache")
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func TestPutThenGetRoundTrips(t *testing.T) {
	store := newTestStore(t)
	key := cachestore.Key{Kind: "chunk-render", Id: "abc123"}

	require.NoError(t, store.Put(key, []byte("console.log(1);")))

	got, err := store.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("console.log(1);"), got)
}

func TestGetMissReturnsErrNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(cachestore.Key{Kind: "chunk-render", Id: "missing"})
	require.ErrorIs(t, err, cachestore.ErrNotFound)
}

func TestDistinctKeysDoNotCollide(t *testing.T) {
	store := newTestStore(t)
	a := cachestore.Key{Kind: "codegen", Id: "a.js", Options: "runtime=main"}
	b := cachestore.Key{Kind: "codegen", Id: "a.js", Options: "runtime=other"}

	require.NoError(t, store.Put(a, []byte("main build")))
	require.NoError(t, store.Put(b, []byte("other build")))

	gotA, err := store.Get(a)
	require.NoError(t, err)
	require.Equal(t, "main build", string(gotA))

	gotB, err := store.Get(b)
	require.NoError(t, err)
	require.Equal(t, "other build", string(gotB))
}

func TestHasReflectsPresence(t *testing.T) {
	store := newTestStore(t)
	key := cachestore.Key{Kind: "codegen", Id: "x.js"}

	require.False(t, store.Has(key))
	require.NoError(t, store.Put(key, []byte("x")))
	require.True(t, store.Has(key))
}

func TestPutWithWriteLimiterStillRoundTrips(t *testing.T) {
	store := newTestStore(t)
	store.WithWriteLimiter(workpool.NewLimiter(1))

	key := cachestore.Key{Kind: "chunk-render", Id: "limited"}
	require.NoError(t, store.Put(key, []byte("payload")))

	got, err := store.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), got)
}
