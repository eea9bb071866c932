package exportsinfo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/exportsinfo"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
)

func boolPtr(b bool) *bool { return &b }

func moduleIdPtr(s identifier.ModuleIdentifier) *identifier.ModuleIdentifier { return &s }

func addModule(g *modulegraph.ModuleGraph, id identifier.ModuleIdentifier) {
	g.AddModule(&modulegraph.NormalModule{Id: id, Types: []modulegraph.SourceType{modulegraph.SourceTypeJavaScript}})
}

func TestProvidedExportsPassRecordsNamedExports(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	addModule(g, "entry.js")
	addModule(g, "lib.js")
	depId := g.AddDependency("entry.js", modulegraph.Dependency{Type: modulegraph.DepESMImport, Request: "./lib"})
	g.Resolve(depId, "entry.js", "lib.js")

	store := exportsinfo.NewStore()
	prop := exportsinfo.NewProvidedExportsPropagator(g, store)
	prop.SetSpec(depId, modulegraph.ExportsSpec{
		Kind: modulegraph.ExportsSpecNames,
		Names: []modulegraph.ExportNameOrSpec{
			{Name: "foo", CanMangle: boolPtr(true)},
			{Name: "bar", TerminalBinding: true},
		},
	})

	prop.Run([]identifier.ModuleIdentifier{"entry.js"})

	info := store.Get("entry.js")
	require.ElementsMatch(t, []string{"foo", "bar"}, info.Names())
	require.Equal(t, exportsinfo.Provided, info.ExportInfo("foo").Provided)
	require.True(t, info.ExportInfo("bar").TerminalBinding)
}

func TestProvidedExportsPassPropagatesReexportFeedback(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	addModule(g, "index.js")
	addModule(g, "impl.js")
	reexportDep := g.AddDependency("index.js", modulegraph.Dependency{Type: modulegraph.DepESMReexport, Request: "./impl"})
	g.Resolve(reexportDep, "index.js", "impl.js")

	store := exportsinfo.NewStore()
	prop := exportsinfo.NewProvidedExportsPropagator(g, store)
	prop.SetSpec(reexportDep, modulegraph.ExportsSpec{
		Kind: modulegraph.ExportsSpecNames,
		Names: []modulegraph.ExportNameOrSpec{
			{Name: "thing", From: moduleIdPtr("impl.js"), Export: []string{"thing"}},
		},
	})

	prop.Run([]identifier.ModuleIdentifier{"index.js"})

	info := store.Get("index.js")
	require.Contains(t, info.Names(), "thing")
	require.NotNil(t, info.ExportInfo("thing").Target)
	require.Equal(t, identifier.ModuleIdentifier("impl.js"), info.ExportInfo("thing").Target.Module)
}

func TestUsedExportsPassMarksReferencedChain(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	addModule(g, "entry.js")
	addModule(g, "utils.js")
	depId := g.AddDependency("entry.js", modulegraph.Dependency{
		Type:    modulegraph.DepESMImport,
		Request: "./utils",
		ReferencedExportsHint: []modulegraph.RefExport{
			{Names: []string{"format"}, CanMangle: true, CanInline: true},
		},
	})
	g.Resolve(depId, "entry.js", "utils.js")

	store := exportsinfo.NewStore()
	used := exportsinfo.NewUsedExportsPropagator(g, store, false)
	used.AddEntrySeed(depId, "main")
	used.Run()

	info := store.Get("utils.js")
	require.Equal(t, exportsinfo.UsedState, info.ExportInfo("format").UsedUnder("main"))
}

func TestUsedExportsPassMarksSideEffectsOnlyForNoHint(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	addModule(g, "entry.js")
	addModule(g, "side-effect.js")
	depId := g.AddDependency("entry.js", modulegraph.Dependency{Type: modulegraph.DepESMImport, Request: "./side-effect"})
	g.Resolve(depId, "entry.js", "side-effect.js")

	store := exportsinfo.NewStore()
	used := exportsinfo.NewUsedExportsPropagator(g, store, false)
	used.AddEntrySeed(depId, "main")
	used.Run()

	info := store.Get("side-effect.js")
	require.True(t, info.SideEffectsOnlyUsed["main"])
}

func TestUnionSharedConsumersUnionsUsageAcrossConsumers(t *testing.T) {
	g := modulegraph.NewModuleGraph()
	g.AddModule(&modulegraph.ConsumeModule{Id: "consume-a.js", ShareKey: "react"})
	g.AddModule(&modulegraph.ConsumeModule{Id: "consume-b.js", ShareKey: "react"})

	store := exportsinfo.NewStore()
	store.Get("consume-a.js").ExportInfo("useState").MarkUsedForTest("main", exportsinfo.UsedState)
	store.Get("consume-b.js").ExportInfo("useEffect").MarkUsedForTest("main", exportsinfo.UsedState)

	exportsinfo.UnionSharedConsumers(g, store, "main")

	require.Equal(t, exportsinfo.UsedState, store.Get("consume-a.js").ExportInfo("useEffect").UsedUnder("main"))
	require.Equal(t, exportsinfo.UsedState, store.Get("consume-b.js").ExportInfo("useState").UsedUnder("main"))
}
