package parseplugin_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/modulegraph"
	"github.com/bundlecore/bundlecore/internal/parseplugin"
)

func TestESMScannerFindsImportsAndDynamicImports(t *testing.T) {
	src := []byte(`
import { helper } from "./helper.js"
const mod = import("./lazy.js")
export * from "./reexport.js"
const legacy = require("./legacy.js")
`)

	result, err := parseplugin.ESMScanner{}.Parse("entry.js", src)
	require.NoError(t, err)
	require.Len(t, result.Dependencies, 4)

	requests := make(map[string]modulegraph.DependencyType)
	for _, d := range result.Dependencies {
		requests[d.Request] = d.Type
	}
	require.Equal(t, modulegraph.DepESMImport, requests["./helper.js"])
	require.Equal(t, modulegraph.DepDynamicImport, requests["./lazy.js"])
	require.Equal(t, modulegraph.DepESMReexport, requests["./reexport.js"])
	require.Equal(t, modulegraph.DepCommonJSRequire, requests["./legacy.js"])
}

func TestCSSImportScannerFindsImportsAndUrls(t *testing.T) {
	src := []byte(`
@import "./reset.css";
.icon { background: url("./icon.png"); }
`)

	result, err := parseplugin.CSSImportScanner{}.Parse("main.css", src)
	require.NoError(t, err)
	require.Len(t, result.Dependencies, 2)
	require.Equal(t, modulegraph.DepCSSImport, result.Dependencies[0].Type)
	require.Equal(t, "./reset.css", result.Dependencies[0].Request)
	require.Equal(t, modulegraph.DepCSSURL, result.Dependencies[1].Type)
	require.Equal(t, "./icon.png", result.Dependencies[1].Request)
}

func TestRegistryDispatchesBySourceType(t *testing.T) {
	reg := parseplugin.NewRegistry(parseplugin.ESMScanner{}, parseplugin.CSSImportScanner{})
	require.IsType(t, parseplugin.ESMScanner{}, reg.For(modulegraph.SourceTypeJavaScript))
	require.IsType(t, parseplugin.CSSImportScanner{}, reg.For(modulegraph.SourceTypeCSS))
	require.Nil(t, reg.For(modulegraph.SourceTypeWasm))
}
