// Package resolved holds the finalized form of a template file: its partials,
// wrappers and included files merged with everything inherited through
// extend, and the compiled artifact of every partial.
package resolved

import (
	"context"
	"fmt"
	"io"

	xterrors "github.com/conneroisu/xtpl/internal/errors"
)

// Artifact is the consumer-facing result of compiling one partial.
type Artifact interface {
	Execute(ctx context.Context, w io.Writer, data any) error
}

// Inherits records the parent of a template that extends another.
type Inherits struct {
	Alias    string
	ParentID string
}

// Template is one resolved file. It is built once by the composer and never
// modified afterwards, so it can be shared freely between goroutines.
type Template struct {
	ID       string
	Partials *Layer[string]
	Includes *Layer[*Template]
	Wrappers *Layer[string]
	WrapMap  *Layer[string]
	Compiled map[string]Artifact
	Inherits *Inherits
	// Data is set by register hooks that publish external dependencies.
	Data map[string]any
}

// New creates an empty template. With a parent, every layer falls back to the
// parent's corresponding layer.
func New(id string, parent *Template) *Template {
	t := &Template{
		ID:       id,
		Compiled: make(map[string]Artifact),
	}
	if parent == nil {
		t.Partials = NewLayer[string](nil)
		t.Includes = NewLayer[*Template](nil)
		t.Wrappers = NewLayer[string](nil)
		t.WrapMap = NewLayer[string](nil)
		return t
	}
	t.Partials = NewLayer(parent.Partials)
	t.Includes = NewLayer(parent.Includes)
	t.Wrappers = NewLayer(parent.Wrappers)
	t.WrapMap = NewLayer(parent.WrapMap)
	return t
}

// InheritsAlias returns the alias of the parent, or "" for a root template.
func (t *Template) InheritsAlias() string {
	if t.Inherits == nil {
		return ""
	}
	return t.Inherits.Alias
}

// Artifact returns the compiled artifact of the named partial.
func (t *Template) Artifact(name string) (Artifact, error) {
	a, ok := t.Compiled[name]
	if !ok {
		return nil, xterrors.NewParseReferenceError(xterrors.ErrCodeUnknownPartial, t.ID, name,
			fmt.Sprintf("requested template %q is not defined", name))
	}
	return a, nil
}

// Names returns the names of all compiled partials, sorted.
func (t *Template) Names() []string {
	return t.Partials.Keys()
}
