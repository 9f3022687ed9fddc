//go:build property
// +build property

package source

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestParserProperties tests invariant properties of the source parser
func TestParserProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property 1: parsing the same text twice yields identical sources
	properties.Property("parser determinism", prop.ForAll(
		func(names []string, body string) bool {
			text := ""
			for _, name := range names {
				text += fmt.Sprintf("<x-template name=%q>%s</x-template>\n", name, body)
			}

			p := NewParser(DefaultOptions())
			first, err1 := p.Parse(text, "f.html")
			second, err2 := p.Parse(text, "f.html")
			if (err1 == nil) != (err2 == nil) {
				return false
			}
			return reflect.DeepEqual(first, second)
		},
		gen.SliceOf(gen.Identifier()),
		gen.AlphaString(),
	))

	// Property 2: quoted attribute values survive parsing unchanged
	properties.Property("attribute round trip", prop.ForAll(
		func(key, value string) bool {
			attrs := ParseAttrs(fmt.Sprintf(`%s="%s"`, key, value))
			return attrs[key] == value
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	// Property 3: text without directives is one untouched partial
	properties.Property("untagged text is the default partial", prop.ForAll(
		func(text string) bool {
			raw, err := NewParser(DefaultOptions()).Parse(text, "plain.html")
			return err == nil && len(raw.Partials) == 1 && raw.Partials["main"] == text
		},
		gen.AnyString(),
	))

	// Property 4: the last block with a given name wins
	properties.Property("last block wins", prop.ForAll(
		func(name string, bodies []string) bool {
			if len(bodies) == 0 {
				return true
			}
			text := ""
			for _, body := range bodies {
				text += fmt.Sprintf("<x-template name=%q>%s</x-template>", name, body)
			}
			raw, err := NewParser(DefaultOptions()).Parse(text, "f.html")
			return err == nil && raw.Partials[name] == bodies[len(bodies)-1]
		},
		gen.Identifier(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
