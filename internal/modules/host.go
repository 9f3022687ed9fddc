// Package modules is the host module system that resolves the external
// dependencies of template files.
//
// A specifier is either a plain module name, looked up among the values
// defined on the host, or "plugin!path", which asks the named plugin to load
// path. Resolved values are cached for the lifetime of the host.
package modules

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	xterrors "github.com/conneroisu/xtpl/internal/errors"
)

// Resolver resolves module specifiers into values, preserving order.
type Resolver interface {
	Resolve(ctx context.Context, specs []string) ([]any, error)
}

// Plugin loads the resource behind the path part of "plugin!path".
type Plugin interface {
	Load(ctx context.Context, path string) (any, error)
}

// PluginFunc adapts a function to the Plugin interface.
type PluginFunc func(ctx context.Context, path string) (any, error)

// Load calls f.
func (f PluginFunc) Load(ctx context.Context, path string) (any, error) {
	return f(ctx, path)
}

// Host is a Resolver backed by defined values and named plugins.
type Host struct {
	mu      sync.RWMutex
	defined map[string]any
	plugins map[string]Plugin
	cache   map[string]any
}

// NewHost creates a host without plugins or values.
func NewHost() *Host {
	return &Host{
		defined: make(map[string]any),
		plugins: make(map[string]Plugin),
		cache:   make(map[string]any),
	}
}

// Define makes value available under the plain specifier name.
func (h *Host) Define(name string, value any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.defined[name] = value
}

// Register installs plugin under name, replacing any previous one.
func (h *Host) Register(name string, plugin Plugin) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.plugins[name] = plugin
}

// Plugins lists the registered plugin names.
func (h *Host) Plugins() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.plugins))
	for name := range h.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve resolves all specs concurrently. The first failure fails the batch.
func (h *Host) Resolve(ctx context.Context, specs []string) ([]any, error) {
	values := make([]any, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			v, err := h.resolve(gctx, spec)
			if err != nil {
				return err
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

func (h *Host) resolve(ctx context.Context, spec string) (any, error) {
	h.mu.RLock()
	if v, ok := h.cache[spec]; ok {
		h.mu.RUnlock()
		return v, nil
	}
	h.mu.RUnlock()

	name, path, isPlugin := strings.Cut(spec, "!")
	var (
		v   any
		err error
	)
	if isPlugin {
		v, err = h.load(ctx, name, path)
	} else {
		h.mu.RLock()
		val, ok := h.defined[spec]
		h.mu.RUnlock()
		if !ok {
			err = fmt.Errorf("module %q is not defined", spec)
		}
		v = val
	}
	if err != nil {
		return nil, xterrors.NewDependencyError(xterrors.ErrCodeModuleFailed, "", spec, err)
	}

	h.mu.Lock()
	h.cache[spec] = v
	h.mu.Unlock()
	return v, nil
}

func (h *Host) load(ctx context.Context, name, path string) (any, error) {
	h.mu.RLock()
	plugin, ok := h.plugins[name]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no plugin registered for %q", name)
	}
	return plugin.Load(ctx, path)
}
