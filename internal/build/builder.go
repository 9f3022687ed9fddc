// Package build renders every template file matching a set of patterns into
// an output directory and writes a manifest of what was produced.
package build

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/xtpl/internal/compiler"
	xterrors "github.com/conneroisu/xtpl/internal/errors"
	"github.com/conneroisu/xtpl/internal/loader"
	"github.com/conneroisu/xtpl/internal/logging"
	"github.com/conneroisu/xtpl/internal/registry"
)

// Options configures a build.
type Options struct {
	OutputDir   string
	Patterns    []string
	Concurrency int
	// Manifest is the manifest file name inside OutputDir; empty disables it.
	Manifest string
	// Data is passed to every artifact when rendering.
	Data any
}

// FileResult is the outcome of building one file.
type FileResult struct {
	ID           string        `json:"id"`
	Output       string        `json:"output,omitempty"`
	Partials     []string      `json:"partials,omitempty"`
	Dependencies []string      `json:"dependencies,omitempty"`
	Duration     time.Duration `json:"-"`
	Bytes        int           `json:"bytes,omitempty"`
	Reused       bool          `json:"-"`
	Error        error         `json:"-"`
}

// Result is the outcome of a build.
type Result struct {
	Files    []FileResult
	Errors   *xterrors.ErrorCollector
	Duration time.Duration
}

// Err returns the joined errors of all failed files.
func (r *Result) Err() error {
	return r.Errors.Err()
}

// Manifest is the JSON document written next to the build output.
type Manifest struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Files       []FileResult      `json:"files"`
	Sources     []compiler.Source `json:"sources,omitempty"`
}

// Builder renders template files through a loader.
type Builder struct {
	loader   *loader.Loader
	fsys     fs.FS
	opts     Options
	recorder *compiler.Recorder
	logger   logging.Logger
	metrics  *BuildMetrics
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder includes the composed sources recorded by r in the manifest.
// r must wrap the compiler of the loader's engine.
func WithRecorder(r *compiler.Recorder) Option {
	return func(b *Builder) { b.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// New creates a builder that discovers files in fsys and resolves them with l.
func New(l *loader.Loader, fsys fs.FS, opts Options, options ...Option) *Builder {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	b := &Builder{
		loader:  l,
		fsys:    fsys,
		opts:    opts,
		logger:  logging.Nop(),
		metrics: NewBuildMetrics(),
	}
	for _, opt := range options {
		opt(b)
	}
	b.logger = b.logger.WithComponent("build")
	return b
}

// Metrics returns the metrics accumulated over all builds.
func (b *Builder) Metrics() *BuildMetrics {
	return b.metrics
}

// Build renders every file matching the configured patterns. A file that
// fails does not stop the others; its error is collected in the result.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()

	ids, err := Discover(b.fsys, b.opts.Patterns)
	if err != nil {
		return nil, fmt.Errorf("discovering templates: %w", err)
	}
	b.logger.Info(ctx, "Building templates", "files", len(ids), "output", b.opts.OutputDir)

	result := &Result{
		Files:  make([]FileResult, len(ids)),
		Errors: xterrors.NewErrorCollector(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			file := b.buildFile(gctx, id)
			b.metrics.Record(file)
			result.Files[i] = file
			if file.Error != nil {
				result.Errors.Add(id, file.Error)
				b.logger.Warn(gctx, file.Error, "Template build failed", "id", id)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if b.opts.Manifest != "" {
		if err := b.writeManifest(result); err != nil {
			return nil, err
		}
	}

	result.Duration = time.Since(start)
	b.logger.Info(ctx, "Build finished",
		"files", len(ids),
		"failed", len(result.Errors.Files()),
		"duration", result.Duration)
	return result, nil
}

func (b *Builder) buildFile(ctx context.Context, id string) FileResult {
	start := time.Now()
	file := FileResult{ID: id}
	_, file.Reused = b.loader.Template(id)

	templates, err := b.loader.Resolve(ctx, []string{id})
	if err != nil {
		file.Error = err
		file.Duration = time.Since(start)
		return file
	}
	t := templates[0]
	file.Partials = t.Names()
	file.Dependencies = registry.Dependencies(t)

	artifact, err := b.loader.Get(t.ID, "")
	if err != nil {
		file.Error = err
		file.Duration = time.Since(start)
		return file
	}

	var buf bytes.Buffer
	if err := artifact.Execute(ctx, &buf, b.opts.Data); err != nil {
		file.Error = xterrors.NewCompileError(t.ID, "", err)
		file.Duration = time.Since(start)
		return file
	}

	file.Output = path.Clean(t.ID)
	file.Bytes = buf.Len()
	if err := writeFile(filepath.Join(b.opts.OutputDir, filepath.FromSlash(file.Output)), buf.Bytes()); err != nil {
		file.Error = err
	}
	file.Duration = time.Since(start)
	return file
}

func (b *Builder) writeManifest(result *Result) error {
	manifest := Manifest{GeneratedAt: time.Now().UTC()}
	for _, file := range result.Files {
		if file.Error == nil {
			manifest.Files = append(manifest.Files, file)
		}
	}
	sort.Slice(manifest.Files, func(i, j int) bool { return manifest.Files[i].ID < manifest.Files[j].ID })
	if b.recorder != nil {
		manifest.Sources = b.recorder.Sources()
	}

	return writeJSONFile(filepath.Join(b.opts.OutputDir, b.opts.Manifest), manifest)
}

func writeFile(name string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// writeJSONFile writes data as indented JSON to a file.
func writeJSONFile(name string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return writeFile(name, jsonData)
}
