package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttrs(t *testing.T) {
	testCases := []struct {
		name     string
		in       string
		expected Attrs
	}{
		{"double quoted", `name="nav" from="lib"`, Attrs{"name": "nav", "from": "lib"}},
		{"single quoted", `name='nav'`, Attrs{"name": "nav"}},
		{"unquoted", `name=nav`, Attrs{"name": "nav"}},
		{"quoted spaces kept inside", `params="a b  c"`, Attrs{"params": "a b  c"}},
		{"trimmed", `name=" nav  "`, Attrs{"name": "nav"}},
		{"bare key", `disabled name=x`, Attrs{"disabled": "", "name": "x"}},
		{"extra whitespace", "\n\tname=a\t  alias=b\n", Attrs{"name": "a", "alias": "b"}},
		{"equals in value", `params="a=b"`, Attrs{"params": "a=b"}},
		{"duplicate last wins", `name=a name=b`, Attrs{"name": "b"}},
		{"empty", ``, Attrs{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseAttrs(tc.in))
		})
	}
}

func TestScanTags(t *testing.T) {
	text := `a <x-include name="one"> b <x-includes name="no"> <x-content/> <x-include name='two' from=lib /> <x-other>`

	tags, err := ScanTags(text, TagInclude, TagContent)
	require.NoError(t, err)
	require.Len(t, tags, 3)

	assert.Equal(t, TagInclude, tags[0].Name)
	assert.Equal(t, Attrs{"name": "one"}, tags[0].Attrs)
	assert.Equal(t, `<x-include name="one">`, text[tags[0].Start:tags[0].End])

	assert.Equal(t, TagContent, tags[1].Name)
	assert.Empty(t, tags[1].Attrs)

	assert.Equal(t, Attrs{"name": "two", "from": "lib"}, tags[2].Attrs)
}

func TestScanTags_QuotedBracket(t *testing.T) {
	tags, err := ScanTags(`<x-include name="a" params="x>y">rest`, TagInclude)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "x>y", tags[0].Attrs["params"])
}

func TestScanTags_Unterminated(t *testing.T) {
	_, err := ScanTags(`<x-include name="a"`, TagInclude)
	assert.Error(t, err)

	// Unwanted tags are never parsed, so they cannot fail.
	tags, err := ScanTags(`<x-other name="a"`, TagInclude)
	assert.NoError(t, err)
	assert.Empty(t, tags)
}

func TestAttrsGet(t *testing.T) {
	attrs := Attrs{"name": "", "alias": "lib"}
	assert.Equal(t, "main", attrs.Get("name", "main"))
	assert.Equal(t, "lib", attrs.Get("alias", "x"))
	assert.Equal(t, "d", attrs.Get("missing", "d"))
}
