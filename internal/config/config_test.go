package config_test

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/config"
)

func TestParseFilenameTemplate(t *testing.T) {
	tpl := config.ParseFilenameTemplate("[name]-[contenthash:8].js")
	got := config.SubstituteTemplate(tpl, config.PathData{
		Name:        "main",
		ContentHash: "abcdef0123456789",
	}, 4)
	require.Equal(t, "main-abcdef01.js", got)
}

func TestSubstituteTemplateDefaultHashLen(t *testing.T) {
	tpl := config.ParseFilenameTemplate("chunk.[hash].css")
	got := config.SubstituteTemplate(tpl, config.PathData{Hash: "0123456789abcdef"}, 6)
	require.Equal(t, "chunk.012345.css", got)
}

func TestHasPlaceholder(t *testing.T) {
	tpl := config.ParseFilenameTemplate("[name].js")
	require.True(t, config.HasPlaceholder(tpl, config.NamePlaceholder))
	require.False(t, config.HasPlaceholder(tpl, config.ContentHashPlaceholder))
}

func TestModuleRuleMatches(t *testing.T) {
	rule := config.ModuleRule{Test: regexp.MustCompile(`\.css$`)}
	require.True(t, rule.Matches("/src/app.css", "", "", ""))
	require.False(t, rule.Matches("/src/app.ts", "", "", ""))
}

func TestLoadAppliesDefaults(t *testing.T) {
	raw, err := config.Load("", nil)
	require.NoError(t, err)
	require.Equal(t, "true", raw.UsedExports)
	require.True(t, raw.SplitChunksEnabled)

	opts := raw.ToCompilerOptions(config.CompilerOptions{})
	require.Equal(t, config.UsedExportsTrue, opts.Optimization.UsedExports)
	require.Equal(t, "main.js", config.SubstituteTemplate(opts.OutputFilename, config.PathData{Name: "main"}, 8))
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundlecore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("optimization_used_exports: global\nignore_order: true\n"), 0o644))

	raw, err := config.Load(path, nil)
	require.NoError(t, err)
	require.Equal(t, "global", raw.UsedExports)
	require.True(t, raw.IgnoreOrder)
}
