package source

import (
	"testing"

	xterrors "github.com/conneroisu/xtpl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, text, id string) *RawSource {
	t.Helper()
	raw, err := NewParser(DefaultOptions()).Parse(text, id)
	require.NoError(t, err)
	return raw
}

func TestParse_NoDirectives(t *testing.T) {
	text := "  <p>Hello <x-include name=\"nav\"></p>\n"
	raw := parse(t, text, "plain.html")

	assert.Equal(t, map[string]string{"main": text}, raw.Partials)
	assert.Empty(t, raw.IncludeDeps)
	assert.Empty(t, raw.ExternalDeps)
	assert.Empty(t, raw.ExtendsAlias)
}

func TestParse_TemplatesAndWrappers(t *testing.T) {
	text := `
<x-template>
  main body
</x-template>
<x-template name="card" wrapper="box">Card</x-template>
<x-wrapper name="box"><div><x-content></div></x-wrapper>
<x-wrapper>plain</x-wrapper>`

	raw := parse(t, text, "page.html")

	assert.Equal(t, map[string]string{"main": "main body", "card": "Card"}, raw.Partials)
	assert.Equal(t, map[string]string{"box": "<div><x-content></div>", "main": "plain"}, raw.Wrappers)
	assert.Equal(t, map[string]string{"card": "box"}, raw.WrapMap)
}

func TestParse_LastBlockWins(t *testing.T) {
	text := `<x-template name="a" wrapper="w">first</x-template>
<x-template name="a">second</x-template>
<x-wrapper name="w">one</x-wrapper>
<x-wrapper name="w">two</x-wrapper>`

	raw := parse(t, text, "dup.html")

	assert.Equal(t, "second", raw.Partials["a"])
	assert.Equal(t, "two", raw.Wrappers["w"])
	assert.NotContains(t, raw.WrapMap, "a")
}

func TestParse_Requires(t *testing.T) {
	text := `<x-require path="widgets/nav">
<x-require path="./lib" alias="lib" module="xt">
<x-require path="jquery" alias="$" module="require">
<x-require path="../styles/site.css" alias="css" module="css">
<x-template>body</x-template>`

	raw := parse(t, text, "pages/home.html")

	assert.Equal(t, []Dep{
		{Alias: "widgets/nav", Path: "widgets/nav.html"},
		{Alias: "lib", Path: "pages/lib.html"},
	}, raw.IncludeDeps)
	assert.Equal(t, []Dep{
		{Alias: "$", Path: "jquery"},
		{Alias: "css", Path: "css!styles/site.css"},
	}, raw.ExternalDeps)
}

func TestParse_Extend(t *testing.T) {
	text := `<x-extend path="../layouts/base">
<x-extend path="other" alias="ignored">
<x-template name="footer">child footer</x-template>`

	raw := parse(t, text, "pages/child.html")

	assert.Equal(t, "super", raw.ExtendsAlias)
	assert.Equal(t, []Dep{{Alias: "super", Path: "layouts/base.html"}}, raw.IncludeDeps)

	id, ok := raw.ExtendsID()
	require.True(t, ok)
	assert.Equal(t, "layouts/base.html", id)
}

func TestParse_ExtendAlias(t *testing.T) {
	raw := parse(t, `<x-extend path="base.tpl" alias="lib"><x-template>x</x-template>`, "a.html")

	assert.Equal(t, "lib", raw.ExtendsAlias)
	assert.Equal(t, []Dep{{Alias: "lib", Path: "base.tpl"}}, raw.IncludeDeps)
}

func TestParse_ExtendOnlyFile(t *testing.T) {
	raw := parse(t, `<x-extend path="base">`, "child.html")

	assert.Empty(t, raw.Partials)
	assert.Equal(t, "super", raw.ExtendsAlias)
}

func TestParse_DuplicateAliasLastWins(t *testing.T) {
	text := `<x-require path="one" alias="lib">
<x-require path="two" alias="lib">
<x-require path="three" alias="lib" module="require">
<x-require path="four" alias="lib">
<x-template>x</x-template>`

	raw := parse(t, text, "a.html")

	assert.Equal(t, []Dep{{Alias: "lib", Path: "four.html"}}, raw.IncludeDeps)
	assert.Empty(t, raw.ExternalDeps)
}

func TestParse_DirectivesAfterFirstBlockIgnored(t *testing.T) {
	text := `<x-template>a</x-template>
<x-require path="late">
<x-extend path="late-base">`

	raw := parse(t, text, "a.html")

	assert.Empty(t, raw.IncludeDeps)
	assert.Empty(t, raw.ExtendsAlias)
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name string
		text string
		code string
	}{
		{"unterminated block", `<x-template name="a">never closed`, xterrors.ErrCodeUnterminatedTag},
		{"unterminated tag", `<x-require path="a"`, xterrors.ErrCodeUnterminatedTag},
		{"require without path", `<x-require alias="a"><x-template>x</x-template>`, xterrors.ErrCodeMissingAttribute},
		{"extend without path", `<x-extend alias="a"><x-template>x</x-template>`, xterrors.ErrCodeMissingAttribute},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewParser(DefaultOptions()).Parse(tc.text, "bad.html")
			require.Error(t, err)
			assert.True(t, xterrors.IsParseReference(err))
			assert.Equal(t, tc.code, xterrors.CodeOf(err))
			assert.Contains(t, err.Error(), "bad.html")
		})
	}
}

func TestParse_CustomModuleID(t *testing.T) {
	opts := DefaultOptions()
	opts.ModuleID = "tpl"
	text := `<x-require path="a" module="tpl"><x-require path="b" module="xt"><x-template>x</x-template>`

	raw, err := NewParser(opts).Parse(text, "f.html")
	require.NoError(t, err)

	assert.Equal(t, []Dep{{Alias: "a", Path: "a.html"}}, raw.IncludeDeps)
	assert.Equal(t, []Dep{{Alias: "b", Path: "xt!b"}}, raw.ExternalDeps)
}

func TestParse_NonRelativePluginPathUnchanged(t *testing.T) {
	text := `<x-require path="https://cdn.example.com/a.css" module="css" alias="cdn">
<x-require path="assets//b.css" module="css" alias="b">
<x-template>x</x-template>`

	raw := parse(t, text, "pages/home.html")

	assert.Equal(t, []Dep{
		{Alias: "cdn", Path: "css!https://cdn.example.com/a.css"},
		{Alias: "b", Path: "css!assets//b.css"},
	}, raw.ExternalDeps)
}
