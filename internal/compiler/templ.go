package compiler

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/conneroisu/xtpl/internal/resolved"
)

// Component adapts an artifact bound to data into a templ component, so
// compiled partials can be rendered wherever templ components are accepted.
func Component(a resolved.Artifact, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return a.Execute(ctx, w, data)
	})
}
