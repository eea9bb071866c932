package splitchunks_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/chunkgraph"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
	"github.com/bundlecore/bundlecore/internal/splitchunks"
)

func addModule(g *modulegraph.ModuleGraph, id identifier.ModuleIdentifier, size float64) {
	g.AddModule(&modulegraph.NormalModule{
		Id:        id,
		Types:     []modulegraph.SourceType{modulegraph.SourceTypeJavaScript},
		SizeBytes: size,
	})
}

// TestOptimizerExtractsSharedVendorChunk reproduces spec.md §4.3.2's worked
// example: four entries each importing lodash (70k) and react (40k) with a
// vendors cache group (test: node_modules, minChunks: 2, minSize: 30000)
// should extract both into one shared chunk reachable from every entry.
func TestOptimizerExtractsSharedVendorChunk(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	addModule(g, "node_modules/lodash/index.js", 70000)
	addModule(g, "node_modules/react/index.js", 40000)

	intern := identifier.NewInterner()
	cg := chunkgraph.NewChunkGraph(intern)
	builder := chunkgraph.NewBuilder(g, cg)

	var entries []chunkgraph.EntrySpec
	for i := 0; i < 4; i++ {
		name := "entry" + string(rune('a'+i))
		appId := identifier.ModuleIdentifier("src/" + name + ".js")
		addModule(g, appId, 1000)

		entryDep := g.AddDependency("__entry__", modulegraph.Dependency{Request: "./" + name})
		g.Resolve(entryDep, "__entry__", appId)
		lodashDep := g.AddDependency(appId, modulegraph.Dependency{Request: "lodash"})
		g.Resolve(lodashDep, appId, "node_modules/lodash/index.js")
		reactDep := g.AddDependency(appId, modulegraph.Dependency{Request: "react"})
		g.Resolve(reactDep, appId, "node_modules/react/index.js")
		g.AddBlock(appId, modulegraph.AsyncDependenciesBlock{Dependencies: []modulegraph.DependencyId{lodashDep, reactDep}})

		entries = append(entries, chunkgraph.EntrySpec{Name: name, Dependencies: []modulegraph.DependencyId{entryDep}})
	}

	require.NoError(t, builder.Initialize(entries))
	builder.Run()
	require.Len(t, cg.AllChunks(), 4)

	opt := splitchunks.NewOptimizer(g, cg, nil, []splitchunks.CacheGroup{
		{
			Key:       "vendors",
			Test:      func(m modulegraph.Module) bool { return strings.Contains(string(m.Identifier()), "node_modules") },
			MinChunks: 2,
			MinSize:   30000,
			Priority:  -10,
		},
	})
	opt.Run()

	require.Len(t, cg.AllChunks(), 5, "expected one new vendors chunk alongside the four entry chunks")

	var vendorChunk chunkgraph.ChunkId
	var found bool
	for _, chunkId := range cg.AllChunks() {
		modules := cg.ModulesOf(chunkId)
		hasLodash, hasReact := false, false
		for _, m := range modules {
			if m == "node_modules/lodash/index.js" {
				hasLodash = true
			}
			if m == "node_modules/react/index.js" {
				hasReact = true
			}
		}
		if hasLodash && hasReact {
			vendorChunk = chunkId
			found = true
		}
	}
	require.True(t, found, "expected a chunk containing both lodash and react")
	require.Equal(t, 2, cg.Chunk(vendorChunk).ModuleCount())

	for _, chunkId := range cg.AllChunks() {
		if chunkId == vendorChunk {
			continue
		}
		for _, m := range cg.ModulesOf(chunkId) {
			require.NotEqual(t, identifier.ModuleIdentifier("node_modules/lodash/index.js"), m)
			require.NotEqual(t, identifier.ModuleIdentifier("node_modules/react/index.js"), m)
		}
	}

	require.Len(t, cg.Chunk(vendorChunk).Groups, 4, "vendor chunk must be reachable from every entrypoint")
}
