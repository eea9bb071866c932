package factorize_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/factorize"
	"github.com/bundlecore/bundlecore/internal/identifier"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
	"github.com/bundlecore/bundlecore/internal/parseplugin"
	"github.com/bundlecore/bundlecore/internal/resolve"
)

func newFactorizer(t *testing.T, graph *modulegraph.ModuleGraph, resolver *resolve.InMemoryResolver) *factorize.Factorizer {
	t.Helper()
	return &factorize.Factorizer{
		Graph:    graph,
		Resolver: resolver,
		Parsers:  parseplugin.NewRegistry(parseplugin.ESMScanner{}, parseplugin.CSSImportScanner{}),
		Intern:   identifier.NewInterner(),
		Load: func(_ context.Context, resource string, _ []string) ([]byte, modulegraph.SourceType, error) {
			sources := map[string]string{
				"/src/lib.js": `import { helper } from "./helper.js"`,
				"/src/helper.js": ``,
			}
			return []byte(sources[resource]), modulegraph.SourceTypeJavaScript, nil
		},
	}
}

func TestFactorizeResolvesAndParsesNormalModule(t *testing.T) {
	graph := modulegraph.NewModuleGraph()
	graph.AddModule(&modulegraph.NormalModule{Id: "entry.js", Types: []modulegraph.SourceType{modulegraph.SourceTypeJavaScript}})

	resolver := resolve.NewInMemoryResolver().Add("./lib", resolve.Result{AbsPath: "/src/lib.js"})
	f := newFactorizer(t, graph, resolver)

	depId := graph.AddDependency("entry.js", modulegraph.Dependency{Type: modulegraph.DepESMImport, Request: "./lib"})

	outcome, err := f.Factorize(context.Background(), "entry.js", depId)
	require.NoError(t, err)
	require.False(t, outcome.Missing)
	require.Equal(t, identifier.ModuleIdentifier("/src/lib.js"), outcome.ModuleId)
	require.Len(t, outcome.Dependencies, 1)
	require.Equal(t, "./helper.js", outcome.Dependencies[0].Request)

	m, ok := graph.Module(outcome.ModuleId)
	require.True(t, ok)
	normal, ok := modulegraph.AsNormal(m)
	require.True(t, ok)
	require.Equal(t, modulegraph.SourceTypeJavaScript, normal.Types[0])

	require.NoError(t, graph.CheckIssuerInvariant(outcome.ModuleId))
	require.Equal(t, "entry.js", string(graph.Issuer(outcome.ModuleId).Module))
}

func TestFactorizeProducesMissingModuleOnUnresolvedRequest(t *testing.T) {
	graph := modulegraph.NewModuleGraph()
	graph.AddModule(&modulegraph.NormalModule{Id: "entry.js"})
	resolver := resolve.NewInMemoryResolver()
	f := newFactorizer(t, graph, resolver)

	depId := graph.AddDependency("entry.js", modulegraph.Dependency{Type: modulegraph.DepESMImport, Request: "./missing"})
	outcome, err := f.Factorize(context.Background(), "entry.js", depId)
	require.NoError(t, err)
	require.True(t, outcome.Missing)

	m, ok := graph.Module(outcome.ModuleId)
	require.True(t, ok)
	_, isMissing := modulegraph.AsMissing(m)
	require.True(t, isMissing)
}

func TestFactorizeProducesExternalModule(t *testing.T) {
	graph := modulegraph.NewModuleGraph()
	graph.AddModule(&modulegraph.NormalModule{Id: "entry.js"})
	resolver := resolve.NewInMemoryResolver().Add("react", resolve.Result{AbsPath: "react", IsExternal: true})
	f := newFactorizer(t, graph, resolver)

	depId := graph.AddDependency("entry.js", modulegraph.Dependency{Type: modulegraph.DepCommonJSRequire, Request: "react"})
	outcome, err := f.Factorize(context.Background(), "entry.js", depId)
	require.NoError(t, err)
	require.False(t, outcome.Missing)

	m, _ := graph.Module(outcome.ModuleId)
	_, isExternal := modulegraph.AsExternal(m)
	require.True(t, isExternal)
}
