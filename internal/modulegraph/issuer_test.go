package modulegraph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

// entry -> a -> b, issuer of a and b starts out wrong; FixIssuers should
// repair both to point at their real importer.
func TestFixIssuersRepairsSimpleChain(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	addModule(g, "entry.js")
	addModule(g, "a.js")
	addModule(g, "b.js")

	d1 := g.AddDependency("entry.js", modulegraph.Dependency{Type: modulegraph.DepESMImport})
	g.Resolve(d1, "entry.js", "a.js")
	d2 := g.AddDependency("a.js", modulegraph.Dependency{Type: modulegraph.DepESMImport})
	g.Resolve(d2, "a.js", "b.js")

	// entry has no issuer (it's an entry point). a and b start with a stale
	// issuer pointing nowhere real.
	g.SetIssuer("a.js", modulegraph.Issuer{Present: true, Module: "ghost.js"})
	g.SetIssuer("b.js", modulegraph.Issuer{Present: true, Module: "ghost.js"})

	revoked := modulegraph.FixIssuers(g, []identifier.ModuleIdentifier{"a.js", "b.js"})
	require.Empty(t, revoked)

	require.NoError(t, g.CheckIssuerInvariant("a.js"))
	require.NoError(t, g.CheckIssuerInvariant("b.js"))
	require.Equal(t, "entry.js", string(g.Issuer("a.js").Module))
	require.Equal(t, "a.js", string(g.Issuer("b.js").Module))
}

// A module with no incoming connections left after a rebuild must be
// revoked, and FixIssuers must recurse onto its (now possibly orphaned)
// dependents.
func TestFixIssuersRevokesOrphans(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	addModule(g, "orphan.js")
	addModule(g, "orphan-child.js")
	d := g.AddDependency("orphan.js", modulegraph.Dependency{Type: modulegraph.DepESMImport})
	g.Resolve(d, "orphan.js", "orphan-child.js")
	// orphan.js itself has no incoming connections and no issuer set -> the
	// invariant check for it will report "ok" only because no issuer is
	// claimed; force the repair queue explicitly instead.
	g.SetIssuer("orphan.js", modulegraph.Issuer{Present: true, Module: "nonexistent.js"})

	revoked := modulegraph.FixIssuers(g, []identifier.ModuleIdentifier{"orphan.js"})
	require.Contains(t, revoked, identifier.ModuleIdentifier("orphan.js"))

	_, stillThere := g.Module("orphan.js")
	require.False(t, stillThere)
}

// A cycle (a <-> b) with no path to an entry must resolve every member to
// cyclic-only candidates and get cleaned up rather than looping forever.
func TestFixIssuersHandlesPureCycle(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	addModule(g, "a.js")
	addModule(g, "b.js")
	d1 := g.AddDependency("a.js", modulegraph.Dependency{Type: modulegraph.DepESMImport})
	g.Resolve(d1, "a.js", "b.js")
	d2 := g.AddDependency("b.js", modulegraph.Dependency{Type: modulegraph.DepESMImport})
	g.Resolve(d2, "b.js", "a.js")
	g.SetIssuer("a.js", modulegraph.Issuer{Present: true, Module: "ghost.js"})
	g.SetIssuer("b.js", modulegraph.Issuer{Present: true, Module: "ghost.js"})

	require.NotPanics(t, func() {
		modulegraph.FixIssuers(g, []identifier.ModuleIdentifier{"a.js", "b.js"})
	})
}
