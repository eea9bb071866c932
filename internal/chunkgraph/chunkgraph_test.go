package chunkgraph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/chunkgraph"
	"github.com/bundlecore/bundlecore/internal/config"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

func addModule(g *modulegraph.ModuleGraph, id identifier.ModuleIdentifier) {
	g.AddModule(&modulegraph.NormalModule{Id: id, Types: []modulegraph.SourceType{modulegraph.SourceTypeJavaScript}})
}

func TestInitializeCreatesOneRootChunkPerEntry(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	addModule(g, "main.js")
	addModule(g, "admin.js")

	intern := identifier.NewInterner()
	intern.Ordinal("main.js")
	intern.Ordinal("admin.js")

	mainDep := g.AddDependency("__entry__", modulegraph.Dependency{Request: "./main"})
	g.Resolve(mainDep, "__entry__", "main.js")
	adminDep := g.AddDependency("__entry__", modulegraph.Dependency{Request: "./admin"})
	g.Resolve(adminDep, "__entry__", "admin.js")

	cg := chunkgraph.NewChunkGraph(intern)
	builder := chunkgraph.NewBuilder(g, cg)

	err := builder.Initialize([]chunkgraph.EntrySpec{
		{Name: "main", Dependencies: []modulegraph.DependencyId{mainDep}},
		{Name: "admin", Dependencies: []modulegraph.DependencyId{adminDep}},
	})
	require.NoError(t, err)
	builder.Run()

	require.Len(t, cg.Entrypoints(), 2)
	require.Len(t, cg.AllChunks(), 2)

	for _, groupId := range cg.Entrypoints() {
		group := cg.Group(groupId)
		require.Len(t, group.Chunks, 1)
		chunk := cg.Chunk(group.Chunks[0])
		require.Equal(t, 1, chunk.ModuleCount())
	}
}

func TestDynamicImportBlockCreatesAsyncChunk(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	addModule(g, "main.js")
	addModule(g, "lazy.js")

	intern := identifier.NewInterner()
	intern.Ordinal("main.js")
	intern.Ordinal("lazy.js")

	entryDep := g.AddDependency("__entry__", modulegraph.Dependency{Request: "./main"})
	g.Resolve(entryDep, "__entry__", "main.js")

	lazyDep := g.AddDependency("main.js", modulegraph.Dependency{Type: modulegraph.DepDynamicImport, Request: "./lazy"})
	g.Resolve(lazyDep, "main.js", "lazy.js")
	g.AddBlock("main.js", modulegraph.AsyncDependenciesBlock{
		Dependencies: []modulegraph.DependencyId{lazyDep},
		GroupOptions: &modulegraph.GroupOptions{Name: "lazy-chunk"},
	})

	cg := chunkgraph.NewChunkGraph(intern)
	builder := chunkgraph.NewBuilder(g, cg)
	require.NoError(t, builder.Initialize([]chunkgraph.EntrySpec{
		{Name: "main", Dependencies: []modulegraph.DependencyId{entryDep}, Options: config.EntryOptions{AsyncChunks: true}},
	}))
	builder.Run()

	require.Len(t, cg.AllChunks(), 2)

	var foundLazy bool
	for _, chunkId := range cg.AllChunks() {
		if cg.Chunk(chunkId).Name == "lazy-chunk" {
			foundLazy = true
			require.Equal(t, 1, cg.Chunk(chunkId).ModuleCount())
		}
	}
	require.True(t, foundLazy)
}
