// Package source parses template files into their structural parts: named
// partials and wrappers, the files they include, the external modules they
// require and the file they extend.
//
// Directives are only recognized where they are expected. require and extend
// tags are read from the header, the text before the first template or
// wrapper block; template and wrapper blocks are read from the rest. A file
// without any directive is a single partial holding the whole text.
package source

import (
	"strings"

	xterrors "github.com/conneroisu/xtpl/internal/errors"
)

// Directive tag names.
const (
	TagRequire  = "require"
	TagExtend   = "extend"
	TagTemplate = "template"
	TagWrapper  = "wrapper"
	TagInclude  = "include"
	TagContent  = "content"
)

// ModuleRequire marks a require whose path is a plain module specifier.
const ModuleRequire = "require"

// Dep binds an alias to an included file id or an external module specifier.
type Dep struct {
	Alias string
	Path  string
}

// RawSource is the parsed, not yet resolved, content of one file.
type RawSource struct {
	ID           string
	Partials     map[string]string
	Wrappers     map[string]string
	WrapMap      map[string]string
	IncludeDeps  []Dep
	ExternalDeps []Dep
	// ExtendsAlias is the include alias of the parent file, empty when the
	// file extends nothing.
	ExtendsAlias string
}

// ExtendsID returns the id of the parent file, if any.
func (r *RawSource) ExtendsID() (string, bool) {
	if r.ExtendsAlias == "" {
		return "", false
	}
	for _, dep := range r.IncludeDeps {
		if dep.Alias == r.ExtendsAlias {
			return dep.Path, true
		}
	}
	return "", false
}

// Parser extracts RawSources from text.
type Parser struct {
	opts Options
}

// NewParser creates a parser using opts.
func NewParser(opts Options) *Parser {
	return &Parser{opts: opts}
}

// Parse extracts the directives of the file id from text.
func (p *Parser) Parse(text, id string) (*RawSource, error) {
	raw := &RawSource{
		ID:       id,
		Partials: make(map[string]string),
		Wrappers: make(map[string]string),
		WrapMap:  make(map[string]string),
	}

	if !hasDirective(text) {
		raw.Partials[p.opts.DefaultPartial] = text
		return raw, nil
	}

	split := len(text)
	if first, ok, err := nextTag(text, 0, []string{TagTemplate, TagWrapper}); err != nil {
		return nil, withFile(err, id)
	} else if ok {
		split = first.Start
	}

	if err := p.parseHeader(raw, text[:split]); err != nil {
		return nil, withFile(err, id)
	}
	if err := p.parseBody(raw, text[split:]); err != nil {
		return nil, withFile(err, id)
	}
	return raw, nil
}

func (p *Parser) parseHeader(raw *RawSource, header string) error {
	tags, err := ScanTags(header, TagRequire, TagExtend)
	if err != nil {
		return err
	}

	extended := false
	for _, tag := range tags {
		target := tag.Attrs["path"]

		switch tag.Name {
		case TagRequire:
			if target == "" {
				return missingAttr(tag, "path")
			}
			alias := tag.Attrs.Get("alias", target)
			module := tag.Attrs["module"]

			switch {
			case module == "" || module == p.opts.ModuleID:
				raw.addDep(false, alias, p.opts.NormalizeID(ResolvePath(raw.ID, target)))
			case module == ModuleRequire:
				raw.addDep(true, alias, target)
			default:
				raw.addDep(true, alias, module+"!"+ResolvePath(raw.ID, target))
			}

		case TagExtend:
			if extended {
				continue
			}
			extended = true
			if target == "" {
				return missingAttr(tag, "path")
			}
			alias := tag.Attrs.Get("alias", p.opts.SuperAlias)
			raw.addDep(false, alias, p.opts.NormalizeID(ResolvePath(raw.ID, target)))
			raw.ExtendsAlias = alias
		}
	}
	return nil
}

func (p *Parser) parseBody(raw *RawSource, body string) error {
	for pos := 0; ; {
		tag, ok, err := nextTag(body, pos, []string{TagTemplate, TagWrapper})
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		closeStart, closeEnd, ok := findClose(body, tag.Name, tag.End)
		if !ok {
			return xterrors.NewParseReferenceError(xterrors.ErrCodeUnterminatedTag, "", tag.Name,
				"unterminated <x-"+tag.Name+"> block").WithContext("offset", tag.Start)
		}
		content := strings.TrimSpace(body[tag.End:closeStart])
		name := tag.Attrs.Get("name", p.opts.DefaultPartial)

		if tag.Name == TagTemplate {
			raw.Partials[name] = content
			if wrapper := tag.Attrs["wrapper"]; wrapper != "" {
				raw.WrapMap[name] = wrapper
			} else {
				delete(raw.WrapMap, name)
			}
		} else {
			raw.Wrappers[name] = content
		}
		pos = closeEnd
	}
}

// addDep binds alias, dropping any earlier binding of the same alias so the
// last occurrence in the document wins.
func (r *RawSource) addDep(external bool, alias, target string) {
	r.IncludeDeps = dropAlias(r.IncludeDeps, alias)
	r.ExternalDeps = dropAlias(r.ExternalDeps, alias)
	if external {
		if alias == r.ExtendsAlias {
			r.ExtendsAlias = ""
		}
		r.ExternalDeps = append(r.ExternalDeps, Dep{Alias: alias, Path: target})
	} else {
		r.IncludeDeps = append(r.IncludeDeps, Dep{Alias: alias, Path: target})
	}
}

func dropAlias(deps []Dep, alias string) []Dep {
	out := deps[:0]
	for _, dep := range deps {
		if dep.Alias != alias {
			out = append(out, dep)
		}
	}
	return out
}

func hasDirective(text string) bool {
	_, ok, err := nextTag(text, 0, []string{TagRequire, TagExtend, TagTemplate, TagWrapper})
	return ok || err != nil
}

func missingAttr(tag Tag, attr string) error {
	return xterrors.NewParseReferenceError(xterrors.ErrCodeMissingAttribute, "", tag.Name,
		"<x-"+tag.Name+"> requires a "+attr+" attribute")
}

func withFile(err error, id string) error {
	if e, ok := err.(*xterrors.Error); ok && e.File == "" {
		e.File = id
	}
	return err
}
