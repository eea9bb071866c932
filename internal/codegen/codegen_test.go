package codegen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/chunkgraph"
	"github.com/bundlecore/bundlecore/internal/exportsinfo"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

type fakePlugin struct {
	calls int
}

func (p *fakePlugin) CanGenerate(modulegraph.Module, modulegraph.SourceType) bool { return true }

func (p *fakePlugin) Generate(m modulegraph.Module, ctx GenerateContext) ([]byte, error) {
	p.calls++
	return []byte("module:" + string(m.Identifier())), nil
}

func addNormalModule(g *modulegraph.ModuleGraph, id identifier.ModuleIdentifier) {
	g.AddModule(&modulegraph.NormalModule{
		Id:    id,
		Types: []modulegraph.SourceType{modulegraph.SourceTypeJavaScript},
	})
}

func TestGeneratorCachesByModuleAndRuntime(t *testing.T) {
	graph := modulegraph.NewModuleGraph()
	addNormalModule(graph, "a.js")

	plugin := &fakePlugin{}
	gen := NewGenerator(graph, NewRegistry(plugin), NewCache())

	r1, err := gen.Generate("a.js", exportsinfo.RuntimeKey("main"), 0)
	require.NoError(t, err)
	require.Equal(t, 1, plugin.calls)

	r2, err := gen.Generate("a.js", exportsinfo.RuntimeKey("main"), 0)
	require.NoError(t, err)
	require.Same(t, r1, r2)
	require.Equal(t, 1, plugin.calls, "second call for the same (module, runtime) must hit the cache")

	_, err = gen.Generate("a.js", exportsinfo.RuntimeKey("other"), 0)
	require.NoError(t, err)
	require.Equal(t, 2, plugin.calls, "a distinct runtime key must miss the cache")
}

func TestGeneratorErrorsOnUnknownModule(t *testing.T) {
	graph := modulegraph.NewModuleGraph()
	gen := NewGenerator(graph, NewRegistry(&fakePlugin{}), NewCache())

	_, err := gen.Generate("missing.js", exportsinfo.RuntimeKey("main"), 0)
	require.Error(t, err)
}

func TestRequirementSetUnionAndHas(t *testing.T) {
	var set RequirementSet
	set.Add(RequireFn)
	require.True(t, set.Has(RequireFn))
	require.False(t, set.Has(ChunkLoading))

	other := RequirementSet(0)
	other.Add(ChunkLoading)
	union := set.Union(other)
	require.True(t, union.Has(RequireFn))
	require.True(t, union.Has(ChunkLoading))
}

func TestPropagatorExpandsToFixedPointViaImplicationTable(t *testing.T) {
	cg := chunkgraph.NewChunkGraph(identifier.NewInterner())
	chunkId := cg.NewChunk("main")

	moduleGraph := modulegraph.NewModuleGraph()
	addNormalModule(moduleGraph, "a.js")
	gen := NewGenerator(moduleGraph, NewRegistry(&fakePlugin{}), NewCache())

	var reqSet RequirementSet
	reqSet.Add(RequireFn)
	result, err := gen.Generate("a.js", exportsinfo.RuntimeKey("main"), reqSet)
	require.NoError(t, err)

	p := NewPropagator(cg, NewCache(), nil)
	set, err := p.Propagate(context.Background(), chunkId, []*Result{result})
	require.NoError(t, err)

	// RequireFn implies ModuleFactories, ModuleCache, EnsureChunk, which in
	// turn implies ChunkLoading and PublicPath.
	require.True(t, set.Has(ModuleFactories))
	require.True(t, set.Has(ModuleCache))
	require.True(t, set.Has(EnsureChunk))
	require.True(t, set.Has(ChunkLoading))
	require.True(t, set.Has(PublicPath))
}

func TestRenderFilenameSubstitutesTokensAndTruncatesHash(t *testing.T) {
	out := RenderFilename("[name].[contenthash:8].js", PathData{
		Name:        "main",
		ContentHash: "0123456789abcdef",
	})
	require.Equal(t, "main.01234567.js", out)
}

func TestCssOrderSchedulerIsDeterministicAndCachesPerChunk(t *testing.T) {
	cg := chunkgraph.NewChunkGraph(identifier.NewInterner())
	chunkId := cg.NewChunk("styles")

	s := NewCssOrderScheduler()
	groupA := []identifier.ModuleIdentifier{"base.css", "button.css"}
	groupB := []identifier.ModuleIdentifier{"base.css", "modal.css"}

	order1 := s.Order(chunkId, [][]identifier.ModuleIdentifier{groupA, groupB})
	order2 := s.Order(chunkId, [][]identifier.ModuleIdentifier{groupA, groupB})
	require.Equal(t, order1, order2, "repeated calls for the same chunk must hit the cache")
	require.Contains(t, order1, identifier.ModuleIdentifier("base.css"))
	require.Contains(t, order1, identifier.ModuleIdentifier("button.css"))
	require.Contains(t, order1, identifier.ModuleIdentifier("modal.css"))

	// base.css is a shared predecessor in both groups, so it must land first.
	require.Equal(t, identifier.ModuleIdentifier("base.css"), order1[0])
}

func TestCssOrderSchedulerReportsConflictOnIncompatibleOrders(t *testing.T) {
	cg := chunkgraph.NewChunkGraph(identifier.NewInterner())
	chunkId := cg.NewChunk("styles-conflict")

	s := NewCssOrderScheduler()
	groupA := []identifier.ModuleIdentifier{"x.css", "y.css"}
	groupB := []identifier.ModuleIdentifier{"y.css", "x.css"}

	s.Order(chunkId, [][]identifier.ModuleIdentifier{groupA, groupB})
	require.NotEmpty(t, s.Conflicts(), "mutually contradictory orders must surface a conflict")
}
