package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/xtpl/internal/resolved"
)

func template(id string, includes ...*resolved.Template) *resolved.Template {
	t := resolved.New(id, nil)
	for i, inc := range includes {
		t.Includes.Set(fmt.Sprintf("dep%d", i), inc)
	}
	return t
}

func TestNew(t *testing.T) {
	registry := New()

	assert.NotNil(t, registry)
	assert.Equal(t, 0, registry.Count())
	assert.Empty(t, registry.IDs())
}

func TestTemplateRegistry_StoreAndLoad(t *testing.T) {
	registry := New()
	page := template("pages/home.html")

	registry.Store(page)

	loaded, ok := registry.Load("pages/home.html")
	require.True(t, ok)
	assert.Same(t, page, loaded)

	entry, ok := registry.Entry("pages/home.html")
	require.True(t, ok)
	assert.Same(t, page, entry.Template)
	assert.False(t, entry.ResolvedAt.IsZero())

	_, ok = registry.Load("pages/missing.html")
	assert.False(t, ok)
	_, ok = registry.Entry("pages/missing.html")
	assert.False(t, ok)
}

func TestTemplateRegistry_IDsSorted(t *testing.T) {
	registry := New()
	for _, id := range []string{"c.html", "a.html", "b.html"} {
		registry.Store(template(id))
	}

	assert.Equal(t, []string{"a.html", "b.html", "c.html"}, registry.IDs())
	assert.Equal(t, 3, registry.Count())
}

func TestTemplateRegistry_Events(t *testing.T) {
	registry := New()
	events := registry.Watch()

	first := template("a.html")
	registry.Store(first)
	registry.Store(template("a.html"))

	expected := []EventType{EventTypeAdded, EventTypeUpdated}
	for _, want := range expected {
		event := <-events
		assert.Equal(t, want, event.Type)
		assert.Equal(t, "a.html", event.ID)
		assert.False(t, event.Timestamp.IsZero())
	}
	assert.Empty(t, events)

	registry.UnWatch(events)
	_, open := <-events
	assert.False(t, open)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "added", EventTypeAdded.String())
	assert.Equal(t, "updated", EventTypeUpdated.String())
	assert.Equal(t, "unknown", EventType(42).String())
}

func TestTemplateRegistry_FullWatcherDoesNotBlock(t *testing.T) {
	registry := New()
	_ = registry.Watch()

	for i := 0; i < 150; i++ {
		registry.Store(template(fmt.Sprintf("t%d.html", i)))
	}
	assert.Equal(t, 150, registry.Count())
}

func TestTemplateRegistry_Concurrent(t *testing.T) {
	registry := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("t%d.html", i%5)
			registry.Store(template(id))
			_, _ = registry.Load(id)
			_ = registry.IDs()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, registry.Count())
}

func TestDependents(t *testing.T) {
	registry := New()
	base := template("base.html")
	nav := template("nav.html")
	layout := template("layout.html", base, nav)
	home := template("home.html", layout)
	about := template("about.html", nav)
	for _, tmpl := range []*resolved.Template{base, nav, layout, home, about} {
		registry.Store(tmpl)
	}

	assert.Equal(t, []string{"base.html", "nav.html"}, Dependencies(layout))
	assert.Equal(t, []string{"home.html", "layout.html"}, registry.Dependents("base.html"))
	assert.Equal(t, []string{"about.html", "home.html", "layout.html"}, registry.Dependents("nav.html"))
	assert.Empty(t, registry.Dependents("home.html"))

	graph := registry.DependencyGraph()
	assert.Equal(t, []string{"layout.html"}, graph["home.html"])
	assert.Empty(t, graph["base.html"])
}

func TestDependencies_InheritedIncludes(t *testing.T) {
	base := template("base.html", template("nav.html"))
	child := resolved.New("child.html", base)
	child.Includes.Set("super", base)

	assert.Equal(t, []string{"base.html", "nav.html"}, Dependencies(child))
}
