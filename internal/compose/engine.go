// Package compose turns parsed sources into resolved templates.
//
// Finalize merges a file with the template it extends and the files it
// includes, then composes and compiles every partial. Content composes a
// single partial: it applies the partial's wrapper and replaces each
// <x-include> marker with the fully composed content of the named partial.
//
// Included content is composed against a context template. Including from the
// parent alias keeps the original context, so includes inside inherited
// content still resolve against the file that was requested; including from
// any other alias switches the context to that file.
package compose

import (
	"fmt"
	"strings"

	"github.com/conneroisu/xtpl/internal/compiler"
	xterrors "github.com/conneroisu/xtpl/internal/errors"
	"github.com/conneroisu/xtpl/internal/resolved"
	"github.com/conneroisu/xtpl/internal/source"
)

// DefaultMaxDepth bounds include nesting.
const DefaultMaxDepth = 64

// IncludeRequest describes one <x-include> marker being replaced.
type IncludeRequest struct {
	// Source is the file the included partial is taken from.
	Source *resolved.Template
	// Alias is the from attribute, empty for includes from the same file.
	Alias string
	// Name is the included partial.
	Name string
	// Target and TargetName identify the partial containing the marker.
	Target     *resolved.Template
	TargetName string
	// Context resolves aliases inside the included content.
	Context *resolved.Template
	// Params is the raw params attribute.
	Params string

	depth int
}

// IncludeFunc produces the replacement text of an include marker.
type IncludeFunc func(e *Engine, req IncludeRequest) (string, error)

// RegisterFunc runs once per template after all its partials are compiled.
type RegisterFunc func(t *resolved.Template, deps map[string]any) error

// Engine composes and compiles templates.
type Engine struct {
	opts     source.Options
	compile  compiler.Func
	include  IncludeFunc
	register RegisterFunc
	maxDepth int
}

// Option configures an Engine.
type Option func(*Engine)

// WithCompiler sets the compile hook.
func WithCompiler(fn compiler.Func) Option {
	return func(e *Engine) { e.compile = fn }
}

// WithInclude sets the include hook.
func WithInclude(fn IncludeFunc) Option {
	return func(e *Engine) { e.include = fn }
}

// WithRegister sets the register hook.
func WithRegister(fn RegisterFunc) Option {
	return func(e *Engine) { e.register = fn }
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) { e.maxDepth = depth }
}

// New creates an engine. Without options it compiles with the identity
// compiler, includes through Engine.Include and registers nothing.
func New(opts source.Options, options ...Option) *Engine {
	e := &Engine{
		opts:     opts,
		compile:  compiler.Identity,
		include:  DefaultInclude,
		register: NopRegister,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Options returns the naming conventions of the engine.
func (e *Engine) Options() source.Options {
	return e.opts
}

// DefaultInclude composes the included partial under the request context.
func DefaultInclude(e *Engine, req IncludeRequest) (string, error) {
	return e.Include(req)
}

// NopRegister does nothing.
func NopRegister(*resolved.Template, map[string]any) error {
	return nil
}

// ExposeDeps publishes the external dependencies of a template, on top of
// those of its parent, as the template's Data.
func ExposeDeps(t *resolved.Template, deps map[string]any) error {
	data := make(map[string]any)
	if t.Inherits != nil {
		if parent, ok := t.Includes.Get(t.Inherits.Alias); ok {
			for k, v := range parent.Data {
				data[k] = v
			}
		}
	}
	for k, v := range deps {
		data[k] = v
	}
	t.Data = data
	return nil
}

// Include composes the partial named by req from its source under its
// context. Custom include hooks call it to get the default replacement.
func (e *Engine) Include(req IncludeRequest) (string, error) {
	return e.content(req.Source, req.Name, req.Context, req.depth+1)
}

// Content returns the fully composed text of the partial name of t, using
// ctx to resolve include aliases. A nil ctx means t itself.
func (e *Engine) Content(t *resolved.Template, name string, ctx *resolved.Template) (string, error) {
	if ctx == nil {
		ctx = t
	}
	return e.content(t, name, ctx, 0)
}

func (e *Engine) content(t *resolved.Template, name string, ctx *resolved.Template, depth int) (string, error) {
	if depth > e.maxDepth {
		return "", xterrors.NewParseReferenceError(xterrors.ErrCodeIncludeCycle, t.ID, name,
			fmt.Sprintf("includes nested deeper than %d levels while composing template %q", e.maxDepth, name))
	}

	body, ok := t.Partials.Get(name)
	if !ok {
		return "", xterrors.NewParseReferenceError(xterrors.ErrCodeUnknownPartial, t.ID, name,
			fmt.Sprintf("template %q is not defined", name))
	}

	body, err := e.wrap(t, name, body)
	if err != nil {
		return "", err
	}

	markers, err := source.ScanTags(body, source.TagInclude)
	if err != nil {
		return "", withFile(err, t.ID)
	}
	if len(markers) == 0 {
		return body, nil
	}

	var b strings.Builder
	last := 0
	for _, marker := range markers {
		replacement, err := e.expand(t, name, ctx, marker, depth)
		if err != nil {
			return "", err
		}
		b.WriteString(body[last:marker.Start])
		b.WriteString(replacement)
		last = marker.End
	}
	b.WriteString(body[last:])
	return b.String(), nil
}

// wrap substitutes body into the placeholder of the partial's wrapper, if it
// has one.
func (e *Engine) wrap(t *resolved.Template, name, body string) (string, error) {
	wrapperName, ok := t.WrapMap.Get(name)
	if !ok {
		return body, nil
	}
	wrapper, ok := t.Wrappers.Get(wrapperName)
	if !ok {
		return "", xterrors.NewParseReferenceError(xterrors.ErrCodeUnknownWrapper, t.ID, wrapperName,
			fmt.Sprintf("wrapper %q is used for template %q but not defined", wrapperName, name))
	}

	placeholders, err := source.ScanTags(wrapper, source.TagContent)
	if err != nil {
		return "", withFile(err, t.ID)
	}
	if len(placeholders) != 1 {
		return "", xterrors.NewParseReferenceError(xterrors.ErrCodeWrapperPlaceholder, t.ID, wrapperName,
			fmt.Sprintf("wrapper %q must contain exactly one <x-content>, found %d", wrapperName, len(placeholders)))
	}
	p := placeholders[0]
	return wrapper[:p.Start] + body + wrapper[p.End:], nil
}

// expand computes the replacement of one include marker found in the partial
// name of t.
func (e *Engine) expand(t *resolved.Template, name string, ctx *resolved.Template, marker source.Tag, depth int) (string, error) {
	partial := marker.Attrs["name"]
	if partial == "" {
		return "", xterrors.NewParseReferenceError(xterrors.ErrCodeMissingAttribute, t.ID, name,
			fmt.Sprintf("undefined name for x-include (template %q)", name))
	}

	from := marker.Attrs["from"]
	src, incCtx := t, ctx
	if from != "" {
		inc, ok := ctx.Includes.Get(from)
		if !ok {
			return "", xterrors.NewParseReferenceError(xterrors.ErrCodeUnknownAlias, t.ID, from,
				fmt.Sprintf("undefined filename %q is used for x-include (template %q)", from, name))
		}
		src = inc
		if from != t.InheritsAlias() {
			incCtx = inc
		}
	}

	if !src.Partials.Has(partial) {
		msg := fmt.Sprintf("undefined template %q is used for x-include (template %q)", partial, name)
		if from != "" {
			msg = fmt.Sprintf("undefined template %q (from %q, file %s) is used for x-include (template %q)",
				partial, from, src.ID, name)
		}
		return "", xterrors.NewParseReferenceError(xterrors.ErrCodeUnknownPartial, t.ID, partial, msg)
	}

	return e.include(e, IncludeRequest{
		Source:     src,
		Alias:      from,
		Name:       partial,
		Target:     t,
		TargetName: name,
		Context:    incCtx,
		Params:     marker.Attrs["params"],
		depth:      depth,
	})
}

func withFile(err error, id string) error {
	if e, ok := err.(*xterrors.Error); ok && e.File == "" {
		e.File = id
	}
	return err
}
