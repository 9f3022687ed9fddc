// Package loader resolves template files into resolved templates.
//
// A Loader fetches the text of a file, parses it, resolves the files it
// includes or extends and the external modules it requires, then hands
// everything to the compose engine. Completed templates are kept in a Store
// for the lifetime of the loader. At most one resolution per id is in flight;
// concurrent requests for the same id wait for that single execution.
//
// Inheritance or include cycles would make an execution wait on itself. The
// loader tracks which in-flight execution waits on which and fails such a
// wait with a dependency error instead.
package loader

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/xtpl/internal/compose"
	xterrors "github.com/conneroisu/xtpl/internal/errors"
	"github.com/conneroisu/xtpl/internal/fetch"
	"github.com/conneroisu/xtpl/internal/logging"
	"github.com/conneroisu/xtpl/internal/modules"
	"github.com/conneroisu/xtpl/internal/registry"
	"github.com/conneroisu/xtpl/internal/resolved"
	"github.com/conneroisu/xtpl/internal/source"
)

// Store keeps completed templates by id.
type Store interface {
	Load(id string) (*resolved.Template, bool)
	Store(t *resolved.Template)
	IDs() []string
}

// Loader resolves templates. It is safe for concurrent use.
type Loader struct {
	fetcher fetch.Fetcher
	modules modules.Resolver
	engine  *compose.Engine
	parser  *source.Parser
	store   Store
	logger  logging.Logger

	graph *waitGraph
}

// Option configures a Loader.
type Option func(*Loader)

// WithModules sets the resolver of external dependencies. The default is a
// modules.Host with the built-in plugins reading through the loader's
// fetcher.
func WithModules(r modules.Resolver) Option {
	return func(l *Loader) { l.modules = r }
}

// WithStore sets the store of completed templates. The default is an empty
// registry.TemplateRegistry.
func WithStore(s Store) Option {
	return func(l *Loader) { l.store = s }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New creates a loader reading files through fetcher and composing them with
// engine.
func New(fetcher fetch.Fetcher, engine *compose.Engine, options ...Option) *Loader {
	l := &Loader{
		fetcher: fetcher,
		engine:  engine,
		parser:  source.NewParser(engine.Options()),
		logger:  logging.Nop(),
		graph:   newWaitGraph(),
	}
	for _, opt := range options {
		opt(l)
	}
	if l.modules == nil {
		l.modules = modules.NewDefaultHost(fetcher)
	}
	if l.store == nil {
		l.store = registry.New()
	}
	l.logger = l.logger.WithComponent("loader")
	return l
}

// Engine returns the compose engine of the loader.
func (l *Loader) Engine() *compose.Engine {
	return l.engine
}

// Store returns the store of completed templates.
func (l *Loader) Store() Store {
	return l.store
}

// IDs returns the ids of all completed templates.
func (l *Loader) IDs() []string {
	return l.store.IDs()
}

// Template returns the completed template stored under id.
func (l *Loader) Template(id string) (*resolved.Template, bool) {
	return l.store.Load(l.engine.Options().NormalizeID(id))
}

// Resolve resolves ids concurrently and returns their templates in the same
// order. Any failure fails the whole batch.
func (l *Loader) Resolve(ctx context.Context, ids []string) ([]*resolved.Template, error) {
	normalized := make([]string, len(ids))
	for i, id := range ids {
		normalized[i] = l.engine.Options().NormalizeID(id)
		if normalized[i] == "" {
			return nil, xterrors.NewValidationError(xterrors.ErrCodeInvalidPath, fmt.Sprintf("invalid template path %q", id))
		}
	}
	return l.resolve(ctx, nil, normalized)
}

// Fetch resolves the file at path and returns the artifact of partial. An
// empty partial means the default partial.
func (l *Loader) Fetch(ctx context.Context, path, partial string) (resolved.Artifact, error) {
	templates, err := l.Resolve(ctx, []string{path})
	if err != nil {
		return nil, err
	}
	if partial == "" {
		partial = l.engine.Options().DefaultPartial
	}
	return templates[0].Artifact(partial)
}

// Load resolves a request of the form "<path>:<partial>".
func (l *Loader) Load(ctx context.Context, name string) (resolved.Artifact, error) {
	id, partial := l.engine.Options().ParseName(name)
	return l.Fetch(ctx, id, partial)
}

// Get returns the artifact of an already resolved file without loading
// anything.
func (l *Loader) Get(id, partial string) (resolved.Artifact, error) {
	id = l.engine.Options().NormalizeID(id)
	t, ok := l.store.Load(id)
	if !ok {
		return nil, xterrors.NewParseReferenceError(xterrors.ErrCodeUnresolved, id, id,
			"template file has not been resolved")
	}
	if partial == "" {
		partial = l.engine.Options().DefaultPartial
	}
	return t.Artifact(partial)
}

// resolve resolves ids on behalf of the in-flight call from, nil for
// external callers.
func (l *Loader) resolve(ctx context.Context, from *call, ids []string) ([]*resolved.Template, error) {
	templates := make([]*resolved.Template, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			t, err := l.acquire(gctx, from, id)
			if err != nil {
				return err
			}
			templates[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return templates, nil
}

// acquire returns the completed template of id, starting its resolution or
// joining the one in flight.
func (l *Loader) acquire(ctx context.Context, from *call, id string) (*resolved.Template, error) {
	if t, ok := l.store.Load(id); ok {
		l.logger.Debug(ctx, "Template cache hit", "id", id)
		return t, nil
	}

	c, started, err := l.graph.join(l.store, from, id)
	if err != nil {
		l.logger.Warn(ctx, err, "Dependency cycle detected", "id", id)
		return nil, err
	}
	if c == nil {
		t, _ := l.store.Load(id)
		return t, nil
	}
	if from != nil {
		defer l.graph.leave(from, c)
	}
	if started {
		go l.run(context.WithoutCancel(ctx), c)
	}

	select {
	case <-c.done:
		return c.template, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) run(ctx context.Context, c *call) {
	op := logging.StartOperation(l.logger, "resolve", "id", c.id)

	t, err := l.load(ctx, c)
	if err == nil {
		l.store.Store(t)
		op.End(ctx)
	} else {
		op.EndWithError(ctx, err)
	}
	l.graph.finish(c, t, err)
}

func (l *Loader) load(ctx context.Context, c *call) (*resolved.Template, error) {
	l.logger.Debug(ctx, "Fetching template", "id", c.id)
	text, err := l.fetcher.Fetch(ctx, c.id)
	if err != nil {
		return nil, err
	}
	raw, err := l.parser.Parse(text, c.id)
	if err != nil {
		return nil, err
	}
	return l.process(ctx, c, raw)
}

// process resolves the external and internal dependencies of raw
// concurrently, then finalizes it.
func (l *Loader) process(ctx context.Context, c *call, raw *source.RawSource) (*resolved.Template, error) {
	deps := make(map[string]any, len(raw.ExternalDeps))
	includes := make(map[string]*resolved.Template, len(raw.IncludeDeps))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(raw.ExternalDeps) == 0 {
			return nil
		}
		specs := make([]string, len(raw.ExternalDeps))
		for i, dep := range raw.ExternalDeps {
			specs[i] = dep.Path
		}
		values, err := l.modules.Resolve(gctx, specs)
		if err != nil {
			if xterrors.IsDependency(err) || xterrors.IsTransport(err) {
				return err
			}
			return xterrors.NewDependencyError(xterrors.ErrCodeModuleFailed, raw.ID, fmt.Sprint(specs), err)
		}
		for i, dep := range raw.ExternalDeps {
			deps[dep.Alias] = values[i]
		}
		return nil
	})
	g.Go(func() error {
		if len(raw.IncludeDeps) == 0 {
			return nil
		}
		ids := make([]string, len(raw.IncludeDeps))
		for i, dep := range raw.IncludeDeps {
			ids[i] = dep.Path
		}
		templates, err := l.resolve(gctx, c, ids)
		if err != nil {
			return err
		}
		for i, dep := range raw.IncludeDeps {
			includes[dep.Alias] = templates[i]
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var parent *resolved.Template
	if _, ok := raw.ExtendsID(); ok {
		parent = includes[raw.ExtendsAlias]
	}

	t, err := l.engine.Finalize(raw, parent, includes, deps)
	if err != nil {
		return nil, err
	}
	l.logger.Debug(ctx, "Template finalized", "id", t.ID, "partials", len(t.Compiled))
	return t, nil
}
