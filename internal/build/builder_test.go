package build

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/xtpl/internal/compiler"
	"github.com/conneroisu/xtpl/internal/compose"
	xterrors "github.com/conneroisu/xtpl/internal/errors"
	"github.com/conneroisu/xtpl/internal/fetch"
	"github.com/conneroisu/xtpl/internal/loader"
	"github.com/conneroisu/xtpl/internal/source"
	"github.com/conneroisu/xtpl/internal/testutils"
)

func newBuilder(root, out string, opts Options) (*Builder, *compiler.Recorder) {
	recorder := compiler.NewRecorder()
	engine := compose.New(source.DefaultOptions(), compose.WithCompiler(recorder.Wrap(compiler.Identity)))
	l := loader.New(fetch.Dir(root), engine)
	opts.OutputDir = out
	return New(l, os.DirFS(root), opts, WithRecorder(recorder)), recorder
}

func TestBuilder_Build(t *testing.T) {
	root := testutils.WriteTree(t, map[string]string{
		"layouts/base.html": `<x-template name="title">Site</x-template>
<x-template><h1><x-include name="title"></h1></x-template>`,
		"pages/about.html": `<x-extend path="layouts/base">
<x-template name="title">About</x-template>`,
		"pages/home.html": `<x-extend path="layouts/base">
<x-template name="title">Home</x-template>`,
		"styles/site.css": "body{}",
		".git/config":     "ignored",
	})
	out := filepath.Join(t.TempDir(), "dist")

	b, _ := newBuilder(root, out, Options{
		Patterns:    []string{"pages/*.html"},
		Concurrency: 2,
		Manifest:    "manifest.json",
	})

	result, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, result.Err())
	require.Len(t, result.Files, 2)

	home, err := os.ReadFile(filepath.Join(out, "pages", "home.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>Home</h1>", string(home))

	about, err := os.ReadFile(filepath.Join(out, "pages", "about.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>About</h1>", string(about))

	_, err = os.Stat(filepath.Join(out, "layouts", "base.html"))
	assert.True(t, os.IsNotExist(err), "only matching files are written")

	data, err := os.ReadFile(filepath.Join(out, "manifest.json"))
	require.NoError(t, err)
	var manifest Manifest
	require.NoError(t, json.Unmarshal(data, &manifest))

	require.Len(t, manifest.Files, 2)
	assert.Equal(t, "pages/about.html", manifest.Files[0].ID)
	assert.Equal(t, []string{"main", "title"}, manifest.Files[0].Partials)
	assert.Equal(t, []string{"layouts/base.html"}, manifest.Files[0].Dependencies)
	assert.Contains(t, manifest.Sources, compiler.Source{ID: "pages/home.html", Partial: "main", Text: "<h1>Home</h1>"})

	snapshot := b.Metrics().Snapshot()
	assert.Equal(t, int64(2), snapshot.Files)
	assert.Equal(t, int64(2), snapshot.Written)
	assert.Equal(t, int64(len("<h1>About</h1>")+len("<h1>Home</h1>")), snapshot.Bytes)
}

func TestBuilder_CollectsFailures(t *testing.T) {
	root := testutils.WriteTree(t, map[string]string{
		"pages/good.html":   `good`,
		"pages/broken.html": `<x-template><x-include name="missing"></x-template>`,
		"pages/orphan.html": `<x-extend path="nowhere"><x-template>x</x-template>`,
	})
	out := t.TempDir()

	b, _ := newBuilder(root, out, Options{Patterns: []string{"**/*.html"}, Concurrency: 4})

	result, err := b.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"pages/broken.html", "pages/orphan.html"}, result.Errors.Files())
	assert.True(t, xterrors.IsParseReference(result.Errors.Get("pages/broken.html")))
	assert.True(t, xterrors.IsTransport(result.Errors.Get("pages/orphan.html")))
	assert.Error(t, result.Err())

	good, err := os.ReadFile(filepath.Join(out, "pages", "good.html"))
	require.NoError(t, err)
	assert.Equal(t, "good", string(good))

	_, err = os.Stat(filepath.Join(out, "manifest.json"))
	assert.True(t, os.IsNotExist(err), "no manifest unless configured")

	assert.Equal(t, int64(2), b.Metrics().Snapshot().Failed)
}

func TestBuilder_RendersWithData(t *testing.T) {
	root := testutils.WriteTree(t, map[string]string{"hello.html": `<x-template>Hello {{ .Name }}</x-template>`})
	out := t.TempDir()

	engine := compose.New(source.DefaultOptions(), compose.WithCompiler(compiler.GoTemplate(nil)))
	l := loader.New(fetch.Dir(root), engine)
	b := New(l, os.DirFS(root), Options{
		OutputDir: out,
		Patterns:  []string{"*.html"},
		Data:      map[string]string{"Name": "xtpl"},
	})

	result, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, result.Err())

	text, err := os.ReadFile(filepath.Join(out, "hello.html"))
	require.NoError(t, err)
	assert.Equal(t, "Hello xtpl", string(text))
}

func TestBuilder_CanceledContext(t *testing.T) {
	root := testutils.WriteTree(t, map[string]string{"a.html": "a"})
	b, _ := newBuilder(root, t.TempDir(), Options{Patterns: []string{"*.html"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Build(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiscover(t *testing.T) {
	fsys := fstest.MapFS{
		"index.html":            {},
		"pages/home.html":       {},
		"pages/blog/post.html":  {},
		"pages/notes.txt":       {},
		".hidden/secret.html":   {},
		"partials/nav.html":     {},
		"partials/nav.html.bak": {},
	}

	testCases := []struct {
		name     string
		patterns []string
		expected []string
	}{
		{"recursive", []string{"**/*.html"}, []string{"index.html", "pages/blog/post.html", "pages/home.html", "partials/nav.html"}},
		{"single directory", []string{"pages/*.html"}, []string{"pages/home.html"}},
		{"nested recursive", []string{"pages/**/*.html"}, []string{"pages/blog/post.html", "pages/home.html"}},
		{"several patterns", []string{"index.html", "partials/*"}, []string{"index.html", "partials/nav.html", "partials/nav.html.bak"}},
		{"no match", []string{"*.xt"}, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ids, err := Discover(fsys, tc.patterns)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ids)
		})
	}
}

func TestMatch(t *testing.T) {
	assert.True(t, Match("**", "a/b/c.html"))
	assert.True(t, Match("a/**/c.html", "a/c.html"))
	assert.True(t, Match("a/**/c.html", "a/x/y/c.html"))
	assert.False(t, Match("a/*.html", "a/b/c.html"))
	assert.False(t, Match("[", "["))
}

func TestBuildMetrics(t *testing.T) {
	metrics := NewBuildMetrics()
	assert.Equal(t, 0.0, metrics.Snapshot().SuccessRate())
	assert.Equal(t, time.Duration(0), metrics.Snapshot().AverageDuration())

	metrics.Record(FileResult{ID: "a", Duration: 10 * time.Millisecond, Reused: true, Partials: []string{"main", "title"}, Bytes: 5})
	metrics.Record(FileResult{ID: "b", Duration: 30 * time.Millisecond, Error: assert.AnError})

	snapshot := metrics.Snapshot()
	assert.Equal(t, int64(2), snapshot.Files)
	assert.Equal(t, int64(1), snapshot.Failed)
	assert.Equal(t, int64(2), snapshot.Partials)
	assert.Equal(t, int64(5), snapshot.Bytes)
	assert.Equal(t, 20*time.Millisecond, snapshot.AverageDuration())
	assert.Equal(t, 50.0, snapshot.SuccessRate())
	assert.Equal(t, 50.0, snapshot.ReuseRate())

	metrics.Reset()
	assert.Equal(t, Snapshot{}, metrics.Snapshot())
}
