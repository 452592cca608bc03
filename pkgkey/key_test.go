package pkgkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		"https://x.example/repo/packages/foo#stable",
		"https://x.example/repo/sub/path/packages/bar#beta",
	}

	for _, s := range cases {
		k, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, k.String())

		// Round-trip through the parsed form again: parse(serialise(k)) == k.
		k2, err := Parse(k.String())
		require.NoError(t, err)
		assert.True(t, k.Equal(k2))
	}
}

func TestParseS3Scenario(t *testing.T) {
	k, err := Parse("https://x.example/repo/packages/foo#stable")
	require.NoError(t, err)
	assert.Equal(t, Key{BaseURL: "https://x.example/repo/", ID: "foo", Channel: "stable"}, k)
}

func TestParseMissingChannel(t *testing.T) {
	_, err := Parse("https://x.example/repo/packages/foo")
	assert.Error(t, err)
}

func TestParseMissingPackagesSegment(t *testing.T) {
	_, err := Parse("https://x.example/repo/foo#stable")
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	a := New("https://x.example/repo/", "foo", "stable")
	b := New("https://x.example/repo", "foo", "stable")
	assert.True(t, a.Equal(b), "trailing slash normalization should make these equal")

	c := New("https://x.example/repo/", "foo", "beta")
	assert.False(t, a.Equal(c))
}

func TestMarshalUnmarshalText(t *testing.T) {
	k := New("https://x.example/repo/", "foo", "stable")
	text, err := k.MarshalText()
	require.NoError(t, err)

	var k2 Key
	require.NoError(t, k2.UnmarshalText(text))
	assert.True(t, k.Equal(k2))
}
