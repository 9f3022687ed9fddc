package compiler

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/xtpl/internal/resolved"
)

// HTML compiles a partial into its normalized markup: the composed text is
// parsed as HTML and rendered back, closing open elements and quoting
// attributes consistently.
func HTML(text, _ string, _ *resolved.Template) (resolved.Artifact, error) {
	out, err := NormalizeHTML(text)
	if err != nil {
		return nil, err
	}
	return Text(out), nil
}

// NormalizeHTML parses text as a full document when it starts with a doctype
// or an html element, and as a body fragment otherwise.
func NormalizeHTML(text string) (string, error) {
	var buf bytes.Buffer

	head := strings.ToLower(strings.TrimSpace(text))
	if strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html") {
		doc, err := html.Parse(strings.NewReader(text))
		if err != nil {
			return "", err
		}
		if err := html.Render(&buf, doc); err != nil {
			return "", err
		}
		return buf.String(), nil
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(text), body)
	if err != nil {
		return "", err
	}
	for _, node := range nodes {
		if err := html.Render(&buf, node); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
