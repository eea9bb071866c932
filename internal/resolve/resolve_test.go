package resolve_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/resolve"
)

func TestInMemoryResolverResolvesKnownRequests(t *testing.T) {
	r := resolve.NewInMemoryResolver().Add("./lib", resolve.Result{AbsPath: "/src/lib.js"})

	res, err := r.Resolve(context.Background(), resolve.Request{Request: "./lib", Kind: resolve.KindImport})
	require.NoError(t, err)
	require.Equal(t, "/src/lib.js", res.AbsPath)
}

func TestInMemoryResolverReturnsNotFoundForUnknownRequests(t *testing.T) {
	r := resolve.NewInMemoryResolver()

	_, err := r.Resolve(context.Background(), resolve.Request{Request: "./missing"})
	var notFound *resolve.ErrNotFound
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "./missing", notFound.Request)
}
