package chunkgraph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/chunkgraph"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

// TestRebuildOnlyTouchesEntrypointsReachingTheChangedModule exercises the
// scenario spec.md §4.3.1 calls out by name: entries "a" and "b" share
// "shared.js", entry "c" does not. Rebuilding after "shared.js" changes must
// invalidate and recreate only the chunk-groups that reach it, leaving "c"'s
// chunk and chunk-group untouched and entrypoint order unchanged.
func TestRebuildOnlyTouchesEntrypointsReachingTheChangedModule(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	addModule(g, "shared.js")
	addModule(g, "other.js")

	intern := identifier.NewInterner()
	intern.Ordinal("shared.js")
	intern.Ordinal("other.js")

	aDep := g.AddDependency("__entry__", modulegraph.Dependency{Request: "./shared"})
	g.Resolve(aDep, "__entry__", "shared.js")
	bDep := g.AddDependency("__entry__", modulegraph.Dependency{Request: "./shared"})
	g.Resolve(bDep, "__entry__", "shared.js")
	cDep := g.AddDependency("__entry__", modulegraph.Dependency{Request: "./other"})
	g.Resolve(cDep, "__entry__", "other.js")

	cg := chunkgraph.NewChunkGraph(intern)
	builder := chunkgraph.NewBuilder(g, cg)
	require.NoError(t, builder.Initialize([]chunkgraph.EntrySpec{
		{Name: "a", Dependencies: []modulegraph.DependencyId{aDep}},
		{Name: "b", Dependencies: []modulegraph.DependencyId{bDep}},
		{Name: "c", Dependencies: []modulegraph.DependencyId{cDep}},
	}))
	builder.Run()

	require.Len(t, cg.Entrypoints(), 3)
	before := entrypointsByName(cg)
	cChunkBefore := cg.Group(before["c"]).Chunks[0]
	require.Equal(t, 1, cg.Chunk(cChunkBefore).ModuleCount())

	builder.Rebuild(nil, []identifier.ModuleIdentifier{"shared.js"})

	require.Len(t, cg.Entrypoints(), 3, "entry count survives a rebuild")
	after := entrypointsByName(cg)

	require.Equal(t, before["c"], after["c"], "c never reached shared.js, its group is untouched")
	require.Equal(t, cChunkBefore, cg.Group(after["c"]).Chunks[0], "c's chunk is untouched")

	require.NotEqual(t, before["a"], after["a"], "a reached shared.js, its group was recreated")
	require.NotEqual(t, before["b"], after["b"], "b reached shared.js, its group was recreated")

	for _, name := range []string{"a", "b"} {
		chunkId := cg.Group(after[name]).Chunks[0]
		require.Equal(t, 1, cg.Chunk(chunkId).ModuleCount())
		modules := cg.ModulesOf(chunkId)
		require.Equal(t, []identifier.ModuleIdentifier{"shared.js"}, modules)
	}

	names := make([]string, 0, 3)
	for _, groupId := range cg.Entrypoints() {
		names = append(names, cg.Group(groupId).Name)
	}
	require.Equal(t, []string{"a", "b", "c"}, names, "declaration order survives the rebuild")
}

func entrypointsByName(cg *chunkgraph.ChunkGraph) map[string]chunkgraph.GroupId {
	out := make(map[string]chunkgraph.GroupId, 3)
	for _, groupId := range cg.Entrypoints() {
		out[cg.Group(groupId).Name] = groupId
	}
	return out
}
