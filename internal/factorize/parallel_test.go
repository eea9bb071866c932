package factorize_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/factorize"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
	"github.com/bundlecore/bundlecore/internal/resolve"
	"github.com/bundlecore/bundlecore/internal/workpool"
)

func TestFactorizeAllDrainsWorklistAcrossGeneratedDependencies(t *testing.T) {
	graph := modulegraph.NewModuleGraph()
	graph.AddModule(&modulegraph.NormalModule{Id: "entry.js"})

	resolver := resolve.NewInMemoryResolver().
		Add("./lib", resolve.Result{AbsPath: "/src/lib.js"}).
		Add("./helper.js", resolve.Result{AbsPath: "/src/helper.js"})
	f := newFactorizer(t, graph, resolver)

	depId := graph.AddDependency("entry.js", modulegraph.Dependency{Type: modulegraph.DepESMImport, Request: "./lib"})

	err := f.FactorizeAll(context.Background(), workpool.New(2), []modulegraph.DependencyId{depId}, "entry.js", nil)
	require.NoError(t, err)

	lib, ok := graph.Module("/src/lib.js")
	require.True(t, ok)
	_, isNormal := modulegraph.AsNormal(lib)
	require.True(t, isNormal)

	helper, ok := graph.Module("/src/helper.js")
	require.True(t, ok)
	_, isNormal = modulegraph.AsNormal(helper)
	require.True(t, isNormal)

	require.NoError(t, graph.CheckIssuerInvariant("/src/lib.js"))
	require.NoError(t, graph.CheckIssuerInvariant("/src/helper.js"))
	require.Equal(t, identifier.ModuleIdentifier("/src/lib.js"), graph.Issuer("/src/helper.js").Module)
}
