package factorize_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/factorize"
)

func TestParseInlineRequestPlainResource(t *testing.T) {
	r := factorize.ParseInlineRequest("./foo.js")
	require.Equal(t, "./foo.js", r.Resource)
	require.Empty(t, r.Loaders)
	require.False(t, r.DisableConfiguredLoaders)
	require.False(t, r.DisablePitching)
}

func TestParseInlineRequestExplicitLoaderStack(t *testing.T) {
	r := factorize.ParseInlineRequest("style-loader!css-loader!./foo.css")
	require.Equal(t, "./foo.css", r.Resource)
	require.Equal(t, []string{"style-loader", "css-loader"}, r.Loaders)
}

func TestParseInlineRequestDisableConfiguredLoaders(t *testing.T) {
	r := factorize.ParseInlineRequest("!!raw-loader!./foo.txt")
	require.True(t, r.DisableConfiguredLoaders)
	require.Equal(t, []string{"raw-loader"}, r.Loaders)
	require.Equal(t, "./foo.txt", r.Resource)
}

func TestParseInlineRequestDisablePitching(t *testing.T) {
	r := factorize.ParseInlineRequest("-!babel-loader!./foo.js")
	require.True(t, r.DisablePitching)
	require.Equal(t, []string{"babel-loader"}, r.Loaders)
}

func TestParseInlineRequestEscapedBang(t *testing.T) {
	r := factorize.ParseInlineRequest(`./foo\!bar.js`)
	require.Equal(t, `./foo!bar.js`, r.Resource)
	require.Empty(t, r.Loaders)
}
