package bundlecore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/codegen"
	"github.com/bundlecore/bundlecore/internal/config"
	"github.com/bundlecore/bundlecore/internal/modulegraph"
	"github.com/bundlecore/bundlecore/internal/parseplugin"
	"github.com/bundlecore/bundlecore/internal/resolve"
	"github.com/bundlecore/bundlecore/pkg/bundlecore"
)

// echoGenerator is a toy GeneratePlugin, the same shape as
// internal/codegen's own test fakePlugin: enough to drive Compile's full
// pipeline without a real JS printer.
type echoGenerator struct{}

func (echoGenerator) CanGenerate(modulegraph.Module, modulegraph.SourceType) bool { return true }

func (echoGenerator) Generate(m modulegraph.Module, _ codegen.GenerateContext) ([]byte, error) {
	return []byte("/* " + string(m.Identifier()) + " */\n"), nil
}

func TestCompileBuildsOneAssetFromOneEntryAndItsImport(t *testing.T) {
	sources := map[string]string{
		"/src/main.js":   "import helper from \"./helper.js\"\n",
		"/src/helper.js": "export const x = 1\n",
	}

	resolver := resolve.NewInMemoryResolver().
		Add("./src/main.js", resolve.Result{AbsPath: "/src/main.js", MimeType: "text/javascript"}).
		Add("./helper.js", resolve.Result{AbsPath: "/src/helper.js", MimeType: "text/javascript"})

	load := func(_ context.Context, resource string, _ []string) ([]byte, modulegraph.SourceType, error) {
		return []byte(sources[resource]), modulegraph.SourceTypeJavaScript, nil
	}

	opts := config.CompilerOptions{
		Entries:               []config.EntryOptions{{Name: "main", Import: "./src/main.js"}},
		ChunkFilenameTemplate:  config.ParseFilenameTemplate("[name].[contenthash:8].js"),
		Optimization: config.Optimization{
			ProvidedExports: true,
			UsedExports:     config.UsedExportsTrue,
		},
	}

	stats, err := bundlecore.Compile(context.Background(), bundlecore.Inputs{
		Options:    opts,
		Resolver:   resolver,
		Load:       load,
		Parsers:    parseplugin.NewRegistry(parseplugin.ESMScanner{}),
		Generators: codegen.NewRegistry(echoGenerator{}),
	})
	require.NoError(t, err)

	require.Equal(t, 1, stats.Chunks)
	require.Equal(t, []string{"main"}, stats.Runtimes)
	require.Len(t, stats.Assets, 1)
	require.Contains(t, string(stats.Assets[0].Source), "/src/main.js")
	require.Contains(t, string(stats.Assets[0].Source), "/src/helper.js")
}

func TestCompileSucceedsWhenEntryIsUnresolved(t *testing.T) {
	resolver := resolve.NewInMemoryResolver()

	opts := config.CompilerOptions{
		Entries: []config.EntryOptions{{Name: "main", Import: "./missing.js"}},
	}

	_, err := bundlecore.Compile(context.Background(), bundlecore.Inputs{
		Options:    opts,
		Resolver:   resolver,
		Parsers:    parseplugin.NewRegistry(parseplugin.ESMScanner{}),
		Generators: codegen.NewRegistry(echoGenerator{}),
	})
	// A missing entry resolves to a MissingModule (internal/factorize
	// treats ErrNotFound as non-fatal), so Compile still succeeds; this
	// only documents that Compile does not itself fail the build on a
	// resolver miss.
	require.NoError(t, err)
}
