package codegen_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/chunkgraph"
	"github.com/bundlecore/bundlecore/internal/codegen"
	"github.com/bundlecore/bundlecore/internal/exportsinfo"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
	"github.com/bundlecore/bundlecore/internal/sourcemap"
)

func addModule(g *modulegraph.ModuleGraph, id identifier.ModuleIdentifier) {
	g.AddModule(&modulegraph.NormalModule{
		Id:    id,
		Types: []modulegraph.SourceType{modulegraph.SourceTypeJavaScript},
	})
}

type literalPlugin struct{}

func (literalPlugin) CanGenerate(modulegraph.Module, modulegraph.SourceType) bool { return true }

func (literalPlugin) Generate(m modulegraph.Module, ctx codegen.GenerateContext) ([]byte, error) {
	return []byte("console.log(" + string(m.Identifier()) + ");"), nil
}

// buildSingleChunkGraph builds one entry ("entry.js" -> "dep.js") with no
// async boundary, matching the chunkgraph package's own single-chunk test
// shape, just reused here so render has something real to walk.
func buildSingleChunkGraph(t *testing.T) (*chunkgraph.ChunkGraph, chunkgraph.ChunkId) {
	t.Helper()
	g := modulegraph.NewModuleGraph()
	addModule(g, "entry.js")
	addModule(g, "dep.js")

	entryDep := g.AddDependency("__entry__", modulegraph.Dependency{Request: "./entry"})
	g.Resolve(entryDep, "__entry__", "entry.js")
	depDep := g.AddDependency("entry.js", modulegraph.Dependency{Request: "./dep"})
	g.Resolve(depDep, "entry.js", "dep.js")

	cg := chunkgraph.NewChunkGraph(identifier.NewInterner())
	builder := chunkgraph.NewBuilder(g, cg)
	require.NoError(t, builder.Initialize([]chunkgraph.EntrySpec{
		{Name: "main", Dependencies: []modulegraph.DependencyId{entryDep}},
	}))
	builder.Run()

	chunks := cg.AllChunks()
	require.Len(t, chunks, 1)
	return cg, chunks[0]
}

func TestRenderChunkConcatenatesInPostOrderWithHashedFilename(t *testing.T) {
	cg, chunkId := buildSingleChunkGraph(t)

	moduleGraph := modulegraph.NewModuleGraph()
	addModule(moduleGraph, "entry.js")
	addModule(moduleGraph, "dep.js")
	gen := codegen.NewGenerator(moduleGraph, codegen.NewRegistry(literalPlugin{}), codegen.NewCache())

	entryResult, err := gen.Generate("entry.js", exportsinfo.RuntimeKey("main"), 0)
	require.NoError(t, err)
	depResult, err := gen.Generate("dep.js", exportsinfo.RuntimeKey("main"), 0)
	require.NoError(t, err)

	out := codegen.RenderChunk(cg, codegen.ChunkRenderInput{
		Chunk:   chunkId,
		Runtime: exportsinfo.RuntimeKey("main"),
		ModuleResults: map[identifier.ModuleIdentifier]*codegen.Result{
			"entry.js": entryResult,
			"dep.js":   depResult,
		},
		FilenameTemplate: "[name].[contenthash:8].js",
	})

	require.Contains(t, out.Filename, "main.")
	require.True(t, strings.HasSuffix(out.Filename, ".js"))
	require.Contains(t, string(out.Source), "console.log(dep.js)")
	require.Contains(t, string(out.Source), "console.log(entry.js)")

	// dep.js is left before entry.js, so its post-order index is lower and
	// it must be concatenated first.
	depIdx := strings.Index(string(out.Source), "dep.js")
	entryIdx := strings.Index(string(out.Source), "entry.js")
	require.Less(t, depIdx, entryIdx)
}

func TestRenderChunkIsDeterministicAcrossRuns(t *testing.T) {
	cg, chunkId := buildSingleChunkGraph(t)

	moduleGraph := modulegraph.NewModuleGraph()
	addModule(moduleGraph, "entry.js")
	addModule(moduleGraph, "dep.js")
	gen := codegen.NewGenerator(moduleGraph, codegen.NewRegistry(literalPlugin{}), codegen.NewCache())

	entryResult, _ := gen.Generate("entry.js", exportsinfo.RuntimeKey("main"), 0)
	depResult, _ := gen.Generate("dep.js", exportsinfo.RuntimeKey("main"), 0)

	input := codegen.ChunkRenderInput{
		Chunk:   chunkId,
		Runtime: exportsinfo.RuntimeKey("main"),
		ModuleResults: map[identifier.ModuleIdentifier]*codegen.Result{
			"entry.js": entryResult,
			"dep.js":   depResult,
		},
	}
	out1 := codegen.RenderChunk(cg, input)
	out2 := codegen.RenderChunk(cg, input)
	require.Equal(t, out1.ChunkHash, out2.ChunkHash)
	require.Equal(t, out1.Source, out2.Source)
}

func TestProcessAssetsEmitSourceMapsSkipsChunksWithoutMappings(t *testing.T) {
	hooksSet := codegen.NewProcessAssetsHooks()
	hooksSet.Hook.Tap("emit-source-maps", codegen.StagePreProcess, codegen.EmitSourceMaps)

	ac, err := hooksSet.Run(context.Background(), []codegen.RenderedChunk{
		{
			Filename:       "main.js",
			Source:         []byte("console.log(1);"),
			OrderedModules: []identifier.ModuleIdentifier{"entry.js"},
			ModuleOffsets:  map[identifier.ModuleIdentifier]sourcemap.LineColumnOffset{},
			ModuleResults:  map[identifier.ModuleIdentifier]*codegen.Result{},
		},
	})
	require.NoError(t, err)
	require.Contains(t, ac.Assets, "main.js")
	require.NotContains(t, ac.Assets, "main.js.map", "no module carried a source map, so no .map asset should be emitted")
}
