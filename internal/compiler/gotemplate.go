package compiler

import (
	"context"
	"html/template"
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/xtpl/internal/resolved"
)

// goTemplate is an artifact backed by html/template.
type goTemplate struct {
	tpl *template.Template
}

// Execute runs the template with data.
func (g *goTemplate) Execute(_ context.Context, w io.Writer, data any) error {
	return g.tpl.Execute(w, data)
}

// GoTemplate returns a compiler that parses every composed partial as an
// html/template. Besides extra, templates can call title, upper and lower,
// and dep to read an external dependency published on the resolved template.
func GoTemplate(extra template.FuncMap) Func {
	return func(text, name string, t *resolved.Template) (resolved.Artifact, error) {
		funcs := template.FuncMap{
			// Casers keep state, so each call gets its own.
			"title": func(s string) string { return cases.Title(language.Und).String(s) },
			"upper": func(s string) string { return cases.Upper(language.Und).String(s) },
			"lower": func(s string) string { return cases.Lower(language.Und).String(s) },
			"dep": func(alias string) any {
				if t == nil {
					return nil
				}
				return t.Data[alias]
			},
		}
		for k, v := range extra {
			funcs[k] = v
		}

		id := name
		if t != nil {
			id = t.ID + ":" + name
		}
		tpl, err := template.New(id).Funcs(funcs).Parse(text)
		if err != nil {
			return nil, err
		}
		return &goTemplate{tpl: tpl}, nil
	}
}
