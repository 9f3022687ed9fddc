//go:build property

package compose

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/xtpl/internal/compiler"
	"github.com/conneroisu/xtpl/internal/resolved"
)

func text(tpl *resolved.Template, name string) string {
	a, err := tpl.Artifact(name)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return a.(compiler.Text).String()
}

// uniqueNames drops duplicates and the default partial name.
func uniqueNames(names []string) []string {
	seen := map[string]bool{"main": true}
	var out []string
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// TestComposeProperties tests invariant properties of composition
func TestComposeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Property 1: finalizing the same source twice compiles identical text
	properties.Property("composition is deterministic", prop.ForAll(
		func(names []string, body string) bool {
			names = uniqueNames(names)
			var b strings.Builder
			b.WriteString("<x-template>")
			for _, name := range names {
				fmt.Fprintf(&b, `<x-include name="%s">|`, name)
			}
			b.WriteString("</x-template>")
			for _, name := range names {
				fmt.Fprintf(&b, `<x-template name="%s">%s-%s</x-template>`, name, name, body)
			}

			e := newEngine()
			first, err1 := tryBuild(e, "f.html", b.String(), nil, nil)
			second, err2 := tryBuild(e, "f.html", b.String(), nil, nil)
			if err1 != nil || err2 != nil {
				return false
			}
			for _, name := range first.Names() {
				if text(first, name) != text(second, name) {
					return false
				}
			}
			return len(first.Compiled) == len(names)+1
		},
		gen.SliceOf(gen.Identifier()),
		gen.AlphaString(),
	))

	// Property 2: an override in the child reaches content inherited from the
	// parent, and never leaks into the parent
	properties.Property("child overrides win without touching the parent", prop.ForAll(
		func(name, parentBody, childBody string) bool {
			if name == "main" {
				return true
			}
			e := newEngine()
			parent, err := tryBuild(e, "base.html", fmt.Sprintf(
				`<x-template name="%s">%s</x-template><x-template>[<x-include name="%s">]</x-template>`,
				name, parentBody, name), nil, nil)
			if err != nil {
				return false
			}
			child, err := tryBuild(e, "child.html", fmt.Sprintf(
				`<x-extend path="base"><x-template name="%s">%s</x-template>`, name, childBody),
				map[string]*resolved.Template{"super": parent}, nil)
			if err != nil {
				return false
			}
			return text(child, "main") == "["+childBody+"]" &&
				text(parent, "main") == "["+parentBody+"]" &&
				text(child, name) == childBody
		},
		gen.Identifier(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	// Property 3: a wrapper places the partial exactly at its placeholder
	properties.Property("wrapping substitutes at the placeholder", prop.ForAll(
		func(prefix, suffix, body string) bool {
			tpl, err := tryBuild(newEngine(), "w.html", fmt.Sprintf(
				`<x-wrapper name="w">%s<x-content>%s</x-wrapper><x-template wrapper="w">%s</x-template>`,
				prefix, suffix, body), nil, nil)
			if err != nil {
				return false
			}
			return text(tpl, "main") == prefix+body+suffix
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	// Property 4: composing is idempotent on text without include markers
	properties.Property("content without markers is unchanged", prop.ForAll(
		func(body string) bool {
			tpl, err := tryBuild(newEngine(), "p.html", "<x-template>"+body+"</x-template>", nil, nil)
			if err != nil {
				return false
			}
			content, err := newEngine().Content(tpl, "main", nil)
			return err == nil && content == body && text(tpl, "main") == body
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
