package identifier_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/identifier"
)

type chunkFamily struct{}

func TestUkeyZeroValueInvalid(t *testing.T) {
	var k identifier.Ukey[chunkFamily]
	require.False(t, k.IsValid())
}

func TestUkeyRoundTrip(t *testing.T) {
	k := identifier.MakeUkey[chunkFamily](42)
	require.True(t, k.IsValid())
	require.Equal(t, uint32(42), k.Index())
}

func TestArenaAddGet(t *testing.T) {
	var arena identifier.Arena[chunkFamily, string]
	k0 := arena.Add("a")
	k1 := arena.Add("b")
	require.Equal(t, "a", *arena.Get(k0))
	require.Equal(t, "b", *arena.Get(k1))
	require.Equal(t, 2, arena.Len())

	var seen []string
	arena.All(func(k identifier.Ukey[chunkFamily], v *string) bool {
		seen = append(seen, *v)
		return true
	})
	require.Equal(t, []string{"a", "b"}, seen)
}

func TestInternerOrdinalsStable(t *testing.T) {
	in := identifier.NewInterner()
	id := identifier.Identifier([]string{"loader-a", "loader-b"}, "/src/foo.ts")
	require.Equal(t, identifier.ModuleIdentifier("loader-a!loader-b!/src/foo.ts"), id)

	first := in.Ordinal(id)
	second := in.Ordinal(id)
	require.Equal(t, first, second)

	other := in.Ordinal(identifier.Identifier(nil, "/src/bar.ts"))
	require.NotEqual(t, first, other)
	require.Equal(t, uint32(2), in.Len())
}
