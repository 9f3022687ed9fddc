package modules

import (
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/xtpl/internal/fetch"
)

// Stylesheet is the value of a css! dependency.
type Stylesheet struct {
	Path   string
	Source string
}

// String returns the stylesheet source.
func (s Stylesheet) String() string {
	return s.Source
}

// TextPlugin loads a file as a string.
func TextPlugin(f fetch.Fetcher) Plugin {
	return PluginFunc(func(ctx context.Context, path string) (any, error) {
		return f.Fetch(ctx, path)
	})
}

// CSSPlugin loads a stylesheet.
func CSSPlugin(f fetch.Fetcher) Plugin {
	return PluginFunc(func(ctx context.Context, path string) (any, error) {
		text, err := f.Fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		return Stylesheet{Path: path, Source: text}, nil
	})
}

// JSONPlugin loads and decodes a JSON document.
func JSONPlugin(f fetch.Fetcher) Plugin {
	return PluginFunc(func(ctx context.Context, path string) (any, error) {
		text, err := f.Fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		return v, nil
	})
}

// YAMLPlugin loads and decodes a YAML document.
func YAMLPlugin(f fetch.Fetcher) Plugin {
	return PluginFunc(func(ctx context.Context, path string) (any, error) {
		text, err := f.Fetch(ctx, path)
		if err != nil {
			return nil, err
		}
		var v any
		if err := yaml.Unmarshal([]byte(text), &v); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		return v, nil
	})
}

// NewDefaultHost creates a host with the text, css, json and yaml plugins
// reading through f.
func NewDefaultHost(f fetch.Fetcher) *Host {
	h := NewHost()
	h.Register("text", TextPlugin(f))
	h.Register("css", CSSPlugin(f))
	h.Register("json", JSONPlugin(f))
	h.Register("yaml", YAMLPlugin(f))
	return h
}
