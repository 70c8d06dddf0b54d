package mime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMediaType(t *testing.T) {
	mt, ok := Parse("text/html")
	require.True(t, ok)
	assert.Equal(t, TextHTML, mt)

	mt, ok = Parse("Text/HTML; charset=utf-8")
	require.True(t, ok)
	assert.Equal(t, TextHTML, mt)

	for _, bad := range []string{"", "text", "/html", "text/", "*/html", "a b/c"} {
		_, ok := Parse(bad)
		assert.False(t, ok, "expected %q to fail", bad)
	}
}

func TestIncludes(t *testing.T) {
	assert.True(t, All.Includes(ApplicationJSON))
	assert.True(t, MediaType{"text", "*"}.Includes(TextPlain))
	assert.False(t, MediaType{"text", "*"}.Includes(ApplicationJSON))
	assert.True(t, TextHTML.Includes(TextHTML))
	assert.False(t, TextHTML.Includes(TextPlain))
}

func TestParseQValue(t *testing.T) {
	cases := map[string]QValue{"1": 1000, "1.0": 1000, "0.8": 800, "0.05": 50, "0": 0, "0.875": 875}
	for in, want := range cases {
		q, ok := ParseQValue(in)
		require.True(t, ok, in)
		assert.Equal(t, want, q, in)
	}
	for _, bad := range []string{"", "2", "1.5", "0.8765", "-1", "x"} {
		_, ok := ParseQValue(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseAccept(t *testing.T) {
	list := ParseAccept("text/html, application/json;q=0.9, */*;q=0.1")
	require.Len(t, list, 3)
	assert.Equal(t, TextHTML, list[0].Range)
	assert.Equal(t, QMax, list[0].Q)
	assert.Equal(t, QValue(900), list[1].Q)
	assert.Equal(t, All, list[2].Range)

	assert.Nil(t, ParseAccept("not a mime"))
	assert.Nil(t, ParseAccept("text/html;q=nope"))
	assert.Nil(t, ParseAccept(""))
}

func TestAcceptHeaderValueRoundTrip(t *testing.T) {
	in := "text/html, application/json;q=0.9"
	assert.Equal(t, in, AcceptHeaderValue(ParseAccept(in)))
}

func TestBestMatch(t *testing.T) {
	accept := ParseAccept("application/json;q=0.8, text/html")

	// Highest q wins among produced types.
	best, ok := BestMatch(accept, []MediaType{ApplicationJSON, TextHTML})
	require.True(t, ok)
	assert.Equal(t, TextHTML, best)

	// Declaration order breaks q ties.
	accept = ParseAccept("*/*")
	best, ok = BestMatch(accept, []MediaType{TextPlain, TextHTML})
	require.True(t, ok)
	assert.Equal(t, TextPlain, best)

	// q=0 means not acceptable.
	accept = ParseAccept("text/plain;q=0")
	_, ok = BestMatch(accept, []MediaType{TextPlain})
	assert.False(t, ok)

	// Nothing intersects.
	accept = ParseAccept("application/json")
	_, ok = BestMatch(accept, []MediaType{TextPlain})
	assert.False(t, ok)

	// The most specific range decides the weight.
	accept = ParseAccept("text/*;q=0.5, text/plain;q=0.1")
	best, ok = BestMatch(accept, []MediaType{TextPlain, TextCSS})
	require.True(t, ok)
	assert.Equal(t, TextCSS, best)
}
