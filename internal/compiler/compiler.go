// Package compiler provides the hooks that turn the composed text of a
// partial into its consumer-facing artifact.
//
// A compiler must be deterministic: compiling the same text twice yields
// equivalent artifacts. The identity compiler returns the text unchanged and
// is the default.
package compiler

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/conneroisu/xtpl/internal/resolved"
)

// Func compiles the composed text of the partial name of template t.
type Func func(text, name string, t *resolved.Template) (resolved.Artifact, error)

// Text is an artifact that renders its text verbatim and ignores data.
type Text string

// Execute writes the text to w.
func (t Text) Execute(_ context.Context, w io.Writer, _ any) error {
	_, err := io.WriteString(w, string(t))
	return err
}

// String returns the text.
func (t Text) String() string {
	return string(t)
}

// Identity is the default compiler.
func Identity(text, _ string, _ *resolved.Template) (resolved.Artifact, error) {
	return Text(text), nil
}

// Names of the built-in compilers.
const (
	NameIdentity   = "identity"
	NameHTML       = "html"
	NameGoTemplate = "gotemplate"
)

var builtin = map[string]func() Func{
	NameIdentity:   func() Func { return Identity },
	NameHTML:       func() Func { return HTML },
	NameGoTemplate: func() Func { return GoTemplate(nil) },
}

// Lookup returns the built-in compiler registered under name. The empty name
// selects the identity compiler.
func Lookup(name string) (Func, error) {
	if name == "" {
		name = NameIdentity
	}
	factory, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("unknown compiler %q (available: %v)", name, Names())
	}
	return factory(), nil
}

// Names lists the built-in compilers.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
