package compose

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/xtpl/internal/compiler"
	xterrors "github.com/conneroisu/xtpl/internal/errors"
	"github.com/conneroisu/xtpl/internal/resolved"
	"github.com/conneroisu/xtpl/internal/source"
)

// build parses text as id and finalizes it against already resolved
// includes; the parent is looked up by the parsed extend alias.
func build(t *testing.T, e *Engine, id, text string, includes map[string]*resolved.Template) *resolved.Template {
	t.Helper()
	tpl, err := tryBuild(e, id, text, includes, nil)
	require.NoError(t, err)
	return tpl
}

func tryBuild(e *Engine, id, text string, includes map[string]*resolved.Template, deps map[string]any) (*resolved.Template, error) {
	raw, err := source.NewParser(e.Options()).Parse(text, id)
	if err != nil {
		return nil, err
	}
	var parent *resolved.Template
	if raw.ExtendsAlias != "" {
		parent = includes[raw.ExtendsAlias]
	}
	return e.Finalize(raw, parent, includes, deps)
}

func compiled(t *testing.T, tpl *resolved.Template, name string) string {
	t.Helper()
	a, err := tpl.Artifact(name)
	require.NoError(t, err)
	return a.(compiler.Text).String()
}

func newEngine(options ...Option) *Engine {
	return New(source.DefaultOptions(), options...)
}

func TestFinalize_UntaggedFile(t *testing.T) {
	text := "<p>whole file</p>\n"
	tpl := build(t, newEngine(), "plain.html", text, nil)

	assert.Equal(t, text, compiled(t, tpl, "main"))
	assert.Len(t, tpl.Compiled, 1)
	assert.Nil(t, tpl.Inherits)
}

func TestContent_Wrapper(t *testing.T) {
	tpl := build(t, newEngine(), "w.html", `
<x-template name="greet" wrapper="box">Hi</x-template>
<x-wrapper name="box"><div><x-content></div></x-wrapper>`, nil)

	text, err := newEngine().Content(tpl, "greet", nil)
	require.NoError(t, err)
	assert.Equal(t, "<div>Hi</div>", text)
	assert.Equal(t, "<div>Hi</div>", compiled(t, tpl, "greet"))
}

func TestContent_IncludeSameFile(t *testing.T) {
	tpl := build(t, newEngine(), "page.html", `
<x-template>A <x-include name="nav"> B <x-include name="nav"/></x-template>
<x-template name="nav"><nav><x-include name="link"></nav></x-template>
<x-template name="link">L</x-template>`, nil)

	assert.Equal(t, "A <nav>L</nav> B <nav>L</nav>", compiled(t, tpl, "main"))
	assert.Equal(t, "<nav>L</nav>", compiled(t, tpl, "nav"))
}

func TestContent_IncludeFromAlias(t *testing.T) {
	e := newEngine()
	lib := build(t, e, "lib.html", `<x-template name="item"><li>item</li></x-template>`, nil)
	page := build(t, e, "page.html", `<x-require path="lib" alias="lib">
<x-template><ul><x-include name="item" from="lib"></ul></x-template>`,
		map[string]*resolved.Template{"lib": lib})

	assert.Equal(t, "<ul><li>item</li></ul>", compiled(t, page, "main"))
}

func TestContent_IncludeSplicesAtMarkerPosition(t *testing.T) {
	// The replacement contains a marker-like string; it must not be
	// re-expanded or shift later replacements.
	tpl := build(t, newEngine(), "page.html", `
<x-template><x-include name="a">|<x-include name="b"></x-template>
<x-template name="a">&lt;x-include name="b"&gt;</x-template>
<x-template name="b">B</x-template>`, nil)

	assert.Equal(t, `&lt;x-include name="b"&gt;|B`, compiled(t, tpl, "main"))
}

func TestFinalize_ExtendOverridesAndInherits(t *testing.T) {
	e := newEngine()
	base := build(t, e, "base.html", `
<x-template name="header">base header</x-template>
<x-template name="footer">base footer</x-template>
<x-template>[<x-include name="header">|<x-include name="footer">]</x-template>`, nil)

	child := build(t, e, "child.html", `<x-extend path="base">
<x-template name="footer">child footer</x-template>`,
		map[string]*resolved.Template{"super": base})

	assert.Equal(t, "child footer", compiled(t, child, "footer"))
	assert.Equal(t, "base header", compiled(t, child, "header"))
	assert.Equal(t, "[base header|child footer]", compiled(t, child, "main"))
	assert.Equal(t, "[base header|base footer]", compiled(t, base, "main"), "the parent is never modified")

	require.NotNil(t, child.Inherits)
	assert.Equal(t, resolved.Inherits{Alias: "super", ParentID: "base.html"}, *child.Inherits)
	assert.Len(t, child.Compiled, 3)
}

func TestContent_SuperKeepsOriginalContext(t *testing.T) {
	e := newEngine()
	lib1 := build(t, e, "lib1.html", `<x-template name="x">one</x-template>`, nil)
	lib2 := build(t, e, "lib2.html", `<x-template name="x">two</x-template>`, nil)

	base := build(t, e, "base.html", `<x-require path="lib1" alias="lib">
<x-template><x-include name="x" from="lib"></x-template>`,
		map[string]*resolved.Template{"lib": lib1})

	child := build(t, e, "child.html", `<x-extend path="base">
<x-require path="lib2" alias="lib">
<x-template>(<x-include name="main" from="super">)</x-template>`,
		map[string]*resolved.Template{"super": base, "lib": lib2})

	assert.Equal(t, "one", compiled(t, base, "main"))
	assert.Equal(t, "(two)", compiled(t, child, "main"))
}

func TestContent_OtherAliasSwitchesContext(t *testing.T) {
	e := newEngine()
	lib := build(t, e, "lib.html", `<x-template name="x">from widget's lib</x-template>`, nil)
	widget := build(t, e, "widget.html", `<x-require path="lib" alias="lib">
<x-template name="item"><x-include name="x" from="lib"></x-template>`,
		map[string]*resolved.Template{"lib": lib})

	page := build(t, e, "page.html", `<x-require path="widget" alias="w">
<x-template><x-include name="item" from="w"></x-template>`,
		map[string]*resolved.Template{"w": widget})

	assert.Equal(t, "from widget's lib", compiled(t, page, "main"))
}

func TestContent_InheritedWrapper(t *testing.T) {
	e := newEngine()
	base := build(t, e, "base.html", `
<x-template name="card" wrapper="box">base card</x-template>
<x-wrapper name="box"><section><x-content></section></x-wrapper>`, nil)

	child := build(t, e, "child.html", `<x-extend path="base">
<x-template name="card">child card</x-template>`,
		map[string]*resolved.Template{"super": base})

	assert.Equal(t, "<section>child card</section>", compiled(t, child, "card"))
}

func TestContent_Errors(t *testing.T) {
	e := newEngine()
	lib := build(t, e, "lib.html", `<x-template name="item">i</x-template>`, nil)
	includes := map[string]*resolved.Template{"lib": lib}

	testCases := []struct {
		name     string
		text     string
		code     string
		contains []string
	}{
		{
			name:     "unknown partial",
			text:     `<x-template><x-include name="nope"></x-template>`,
			code:     xterrors.ErrCodeUnknownPartial,
			contains: []string{"nope", "page.html"},
		},
		{
			name:     "unknown partial from alias",
			text:     `<x-require path="lib" alias="lib"><x-template><x-include name="nope" from="lib"></x-template>`,
			code:     xterrors.ErrCodeUnknownPartial,
			contains: []string{"nope", "lib.html", "page.html"},
		},
		{
			name:     "unknown alias",
			text:     `<x-template><x-include name="item" from="other"></x-template>`,
			code:     xterrors.ErrCodeUnknownAlias,
			contains: []string{"other"},
		},
		{
			name: "missing name",
			text: `<x-template><x-include from="lib"></x-template>`,
			code: xterrors.ErrCodeMissingAttribute,
		},
		{
			name:     "unknown wrapper",
			text:     `<x-template wrapper="ghost">x</x-template>`,
			code:     xterrors.ErrCodeUnknownWrapper,
			contains: []string{"ghost"},
		},
		{
			name: "wrapper without placeholder",
			text: `<x-template wrapper="w">x</x-template><x-wrapper name="w"><div></div></x-wrapper>`,
			code: xterrors.ErrCodeWrapperPlaceholder,
		},
		{
			name: "wrapper with two placeholders",
			text: `<x-template wrapper="w">x</x-template><x-wrapper name="w"><x-content><x-content></x-wrapper>`,
			code: xterrors.ErrCodeWrapperPlaceholder,
		},
		{
			name: "include cycle",
			text: `<x-template name="a"><x-include name="b"></x-template><x-template name="b"><x-include name="a"></x-template>`,
			code: xterrors.ErrCodeIncludeCycle,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tryBuild(e, "page.html", tc.text, includes, nil)
			require.Error(t, err)
			assert.True(t, xterrors.IsParseReference(err), err.Error())
			assert.Equal(t, tc.code, xterrors.CodeOf(err))
			for _, s := range tc.contains {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}

func TestContent_UnknownPartialDirect(t *testing.T) {
	tpl := build(t, newEngine(), "page.html", `<x-template>x</x-template>`, nil)

	_, err := newEngine().Content(tpl, "missing", nil)
	require.Error(t, err)

	var xe *xterrors.Error
	require.True(t, errors.As(err, &xe))
	assert.Equal(t, "missing", xe.Name)
	assert.Equal(t, "page.html", xe.File)
}

func TestIncludeHook(t *testing.T) {
	var requests []IncludeRequest
	e := newEngine(WithInclude(func(e *Engine, req IncludeRequest) (string, error) {
		requests = append(requests, req)
		text, err := e.Include(req)
		return fmt.Sprintf("<!-- %s -->%s", req.Params, text), err
	}))

	tpl := build(t, e, "page.html", `
<x-template><x-include name="nav" params="active=home"></x-template>
<x-template name="nav">N</x-template>`, nil)

	assert.Equal(t, "<!-- active=home -->N", compiled(t, tpl, "main"))
	require.NotEmpty(t, requests)
	assert.Equal(t, "nav", requests[0].Name)
	assert.Equal(t, "main", requests[0].TargetName)
	assert.Same(t, tpl, requests[0].Target)
	assert.Same(t, tpl, requests[0].Source)
}

func TestFinalize_CompileError(t *testing.T) {
	e := newEngine(WithCompiler(compiler.GoTemplate(nil)))

	_, err := tryBuild(e, "bad.html", `<x-template name="broken">{{ if }}</x-template>`, nil, nil)
	require.Error(t, err)
	assert.True(t, xterrors.IsCompile(err))
	assert.Contains(t, err.Error(), "broken")
	assert.Contains(t, err.Error(), "bad.html")
}

func TestFinalize_CompilesEachPartialOnce(t *testing.T) {
	counts := map[string]int{}
	e := newEngine(WithCompiler(func(text, name string, tpl *resolved.Template) (resolved.Artifact, error) {
		counts[name]++
		return compiler.Text(text), nil
	}))

	base := build(t, e, "base.html", `<x-template name="a">a</x-template><x-template name="b">b</x-template>`, nil)
	counts = map[string]int{}
	child := build(t, e, "child.html", `<x-extend path="base"><x-template name="b">B</x-template><x-template name="c">c</x-template>`,
		map[string]*resolved.Template{"super": base})

	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1}, counts)
	assert.Equal(t, []string{"a", "b", "c"}, child.Names())
	assert.Len(t, child.Compiled, 3)
}

func TestFinalize_RegisterHooks(t *testing.T) {
	e := newEngine(WithRegister(ExposeDeps))
	base, err := tryBuild(e, "base.html", `<x-template>b</x-template>`, nil, map[string]any{"site": "docs", "theme": "dark"})
	require.NoError(t, err)

	child, err := tryBuild(e, "child.html", `<x-extend path="base">`,
		map[string]*resolved.Template{"super": base}, map[string]any{"theme": "light"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"site": "docs", "theme": "light"}, child.Data)
	assert.Equal(t, map[string]any{"site": "docs", "theme": "dark"}, base.Data)

	failing := newEngine(WithRegister(func(*resolved.Template, map[string]any) error {
		return errors.New("register failed")
	}))
	_, err = tryBuild(failing, "x.html", `x`, nil, nil)
	assert.EqualError(t, err, "register failed")
}

func TestFinalize_Deterministic(t *testing.T) {
	text := `<x-template><x-include name="a"><x-include name="b"></x-template>
<x-template name="a" wrapper="w">A</x-template><x-template name="b">B</x-template>
<x-wrapper name="w">[<x-content>]</x-wrapper>`

	first := build(t, newEngine(), "d.html", text, nil)
	second := build(t, newEngine(), "d.html", text, nil)

	assert.Equal(t, first.Compiled, second.Compiled)
	assert.Equal(t, "[A]B", compiled(t, first, "main"))
}
