package xt

import (
	"context"
	"io/fs"
	"os"
	"sync"

	"github.com/conneroisu/xtpl/internal/compiler"
	"github.com/conneroisu/xtpl/internal/compose"
	"github.com/conneroisu/xtpl/internal/fetch"
	"github.com/conneroisu/xtpl/internal/loader"
	"github.com/conneroisu/xtpl/internal/logging"
	"github.com/conneroisu/xtpl/internal/modules"
	"github.com/conneroisu/xtpl/internal/resolved"
	"github.com/conneroisu/xtpl/internal/source"
)

// Artifact is a compiled partial.
type Artifact = resolved.Artifact

// Options configures the process-wide loader.
type Options struct {
	// FS holds the template files; nil means the current directory.
	FS fs.FS
	// Source sets the naming conventions; the zero value means
	// source.DefaultOptions.
	Source source.Options
	// Compiler names a built-in compiler; empty means identity.
	Compiler string
	// ExposeDeps publishes external dependencies as template data.
	ExposeDeps bool
	// Modules holds the values of plain module="require" specifiers.
	Modules map[string]any
	Logger  logging.Logger
}

var (
	mu            sync.Mutex
	defaultLoader *loader.Loader
)

// Default returns the process-wide loader, creating it on first use.
func Default() *loader.Loader {
	mu.Lock()
	defer mu.Unlock()

	if defaultLoader == nil {
		l, err := newLoader(Options{})
		if err != nil {
			// The zero options always name a built-in compiler.
			panic(err)
		}
		defaultLoader = l
	}
	return defaultLoader
}

// Configure replaces the process-wide loader. Templates resolved by the
// previous loader are dropped.
func Configure(opts Options) error {
	l, err := newLoader(opts)
	if err != nil {
		return err
	}

	mu.Lock()
	defaultLoader = l
	mu.Unlock()
	return nil
}

func newLoader(opts Options) (*loader.Loader, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = os.DirFS(".")
	}
	srcOpts := opts.Source
	if srcOpts == (source.Options{}) {
		srcOpts = source.DefaultOptions()
	}

	compile, err := compiler.Lookup(opts.Compiler)
	if err != nil {
		return nil, err
	}
	engineOpts := []compose.Option{compose.WithCompiler(compile)}
	if opts.ExposeDeps {
		engineOpts = append(engineOpts, compose.WithRegister(compose.ExposeDeps))
	}

	fetcher := fetch.NewFS(fsys)
	host := modules.NewDefaultHost(fetcher)
	for name, value := range opts.Modules {
		host.Define(name, value)
	}

	loaderOpts := []loader.Option{loader.WithModules(host)}
	if opts.Logger != nil {
		loaderOpts = append(loaderOpts, loader.WithLogger(opts.Logger))
	}
	return loader.New(fetcher, compose.New(srcOpts, engineOpts...), loaderOpts...), nil
}

// Fetch resolves the file at path and returns its named partial, or the
// default partial when partial is empty.
func Fetch(ctx context.Context, path, partial string) (Artifact, error) {
	return Default().Fetch(ctx, path, partial)
}

// Load is Fetch with a "<path>:<partial>" name.
func Load(ctx context.Context, name string) (Artifact, error) {
	return Default().Load(ctx, name)
}

// Get returns a partial of a file that has already been resolved.
func Get(id, partial string) (Artifact, error) {
	return Default().Get(id, partial)
}
