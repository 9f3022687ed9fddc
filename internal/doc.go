// Package internal contains the core implementation packages for xtpl.
//
// This package follows Go's internal package convention. The public entry
// points are the xtpl CLI and pkg/xt.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - source: tag scanner, directive parser and path resolution
//   - resolved: resolved templates, partial layers and artifacts
//   - compiler: compilers turning composed partial text into artifacts
//   - compose: the engine that merges includes, extends and wrappers
//   - fetch: file system and HTTP template fetchers
//   - modules: x-require host modules and the plugin registry
//   - loader: concurrent resolution with de-duplication and cycle detection
//   - registry: resolved template store and dependency graph
//   - build: static build of a template tree with a manifest
//   - server: preview server with WebSocket live reload
//   - watcher: debounced file system monitoring
//   - config, errors, logging, validation, version: ambient support
//
// # Inter-Package Communication
//
// A file flows through the packages in one direction:
//
//   - fetch reads the raw text of a path
//   - source parses it into directives and partial bodies
//   - loader resolves the file's extend, include and require targets first
//   - compose finalizes the file against its resolved dependencies
//   - registry stores the result and reports who depends on it
//
// The server and the watch command drop the loader after a change and let
// the next request resolve again from the source.
package internal
