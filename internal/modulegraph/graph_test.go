package modulegraph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

func addModule(g *modulegraph.ModuleGraph, id identifier.ModuleIdentifier) {
	g.AddModule(&modulegraph.NormalModule{Id: id, Types: []modulegraph.SourceType{modulegraph.SourceTypeJavaScript}})
}

func TestResolveCreatesConnection(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	addModule(g, "entry.js")
	addModule(g, "lib.js")

	depId := g.AddDependency("entry.js", modulegraph.Dependency{Type: modulegraph.DepESMImport, Request: "./lib"})
	g.Resolve(depId, "entry.js", "lib.js")

	out := g.OutgoingConnections("entry.js")
	require.Len(t, out, 1)
	require.Equal(t, "lib.js", string(g.Connection(out[0]).Target))

	in := g.IncomingConnections("lib.js")
	require.Len(t, in, 1)
	require.Equal(t, "entry.js", string(g.Connection(in[0]).Source))
}

func TestIssuerInvariantHoldsForValidIssuer(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	addModule(g, "entry.js")
	addModule(g, "lib.js")
	depId := g.AddDependency("entry.js", modulegraph.Dependency{Type: modulegraph.DepESMImport})
	g.Resolve(depId, "entry.js", "lib.js")
	g.SetIssuer("lib.js", modulegraph.Issuer{Present: true, Module: "entry.js"})

	require.NoError(t, g.CheckIssuerInvariant("lib.js"))
}

func TestIssuerInvariantViolatedForStaleIssuer(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	addModule(g, "entry.js")
	addModule(g, "lib.js")
	depId := g.AddDependency("entry.js", modulegraph.Dependency{Type: modulegraph.DepESMImport})
	g.Resolve(depId, "entry.js", "lib.js")
	g.SetIssuer("lib.js", modulegraph.Issuer{Present: true, Module: "someone-else.js"})

	require.Error(t, g.CheckIssuerInvariant("lib.js"))
}

func TestBlocksAreOwnedByModule(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	addModule(g, "entry.js")
	id := g.AddBlock("entry.js", modulegraph.AsyncDependenciesBlock{})
	require.Len(t, g.BlocksOf("entry.js"), 1)
	require.Equal(t, id, g.BlocksOf("entry.js")[0])
}
