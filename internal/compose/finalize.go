package compose

import (
	"sort"

	xterrors "github.com/conneroisu/xtpl/internal/errors"
	"github.com/conneroisu/xtpl/internal/resolved"
	"github.com/conneroisu/xtpl/internal/source"
)

// Finalize builds the resolved template of raw. parent is the resolved file
// raw extends, or nil; includes maps every include alias of raw, the parent's
// included, to its resolved file; deps maps external aliases to their values.
//
// Every partial of the merged template is composed and compiled exactly once
// before the register hook runs. The returned template is never modified
// again.
func (e *Engine) Finalize(raw *source.RawSource, parent *resolved.Template, includes map[string]*resolved.Template, deps map[string]any) (*resolved.Template, error) {
	t := resolved.New(raw.ID, parent)
	if parent != nil {
		t.Inherits = &resolved.Inherits{Alias: raw.ExtendsAlias, ParentID: parent.ID}
	}

	for name, body := range raw.Partials {
		t.Partials.Set(name, body)
	}
	for name, body := range raw.Wrappers {
		t.Wrappers.Set(name, body)
	}
	for name, wrapper := range raw.WrapMap {
		t.WrapMap.Set(name, wrapper)
	}
	aliases := make([]string, 0, len(includes))
	for alias := range includes {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		t.Includes.Set(alias, includes[alias])
	}

	for _, name := range t.Partials.Keys() {
		text, err := e.Content(t, name, t)
		if err != nil {
			return nil, err
		}
		artifact, err := e.compile(text, name, t)
		if err != nil {
			if xterrors.IsCompile(err) {
				return nil, err
			}
			return nil, xterrors.NewCompileError(t.ID, name, err)
		}
		t.Compiled[name] = artifact
	}

	if err := e.register(t, deps); err != nil {
		return nil, err
	}
	return t, nil
}
