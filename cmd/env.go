package cmd

import (
	"fmt"

	"github.com/conneroisu/xtpl/internal/compiler"
	"github.com/conneroisu/xtpl/internal/compose"
	"github.com/conneroisu/xtpl/internal/config"
	"github.com/conneroisu/xtpl/internal/fetch"
	"github.com/conneroisu/xtpl/internal/loader"
	"github.com/conneroisu/xtpl/internal/logging"
	"github.com/conneroisu/xtpl/internal/modules"
	"github.com/conneroisu/xtpl/internal/registry"
)

// environment holds what every command builds from the configuration.
type environment struct {
	cfg     *config.Config
	logger  logging.Logger
	fetcher fetch.Fetcher
	engine  *compose.Engine
}

// newEnvironment loads the configuration and builds the fetcher and engine.
// A non-nil recorder wraps the configured compiler.
func newEnvironment(recorder *compiler.Recorder) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LoggerConfig())

	var fetcher fetch.Fetcher
	if cfg.Source.BaseURL != "" {
		h, err := fetch.NewHTTP(cfg.Source.BaseURL, nil)
		if err != nil {
			return nil, err
		}
		fetcher = h
	} else {
		fetcher = fetch.Dir(cfg.Source.Root)
	}

	compile, err := compiler.Lookup(cfg.Engine.Compiler)
	if err != nil {
		return nil, err
	}
	if recorder != nil {
		compile = recorder.Wrap(compile)
	}

	options := []compose.Option{compose.WithCompiler(compile)}
	if cfg.Engine.ExposeDeps {
		options = append(options, compose.WithRegister(compose.ExposeDeps))
	}

	return &environment{
		cfg:     cfg,
		logger:  logger,
		fetcher: fetcher,
		engine:  compose.New(cfg.SourceOptions(), options...),
	}, nil
}

// newLoader creates a loader with its own store, so templates resolved by a
// previous loader are never reused.
func (e *environment) newLoader() *loader.Loader {
	return e.newLoaderWithStore(registry.New())
}

func (e *environment) newLoaderWithStore(store loader.Store) *loader.Loader {
	return loader.New(e.fetcher, e.engine,
		loader.WithStore(store),
		loader.WithModules(e.newHost()),
		loader.WithLogger(e.logger))
}

// newHost creates a module host with the built-in plugins and the plain
// modules of the configuration.
func (e *environment) newHost() *modules.Host {
	host := modules.NewDefaultHost(e.fetcher)
	for name, value := range e.cfg.Modules {
		host.Define(name, value)
	}
	return host
}
