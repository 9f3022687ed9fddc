package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/xtpl/internal/build"
	"github.com/conneroisu/xtpl/internal/compiler"
)

var buildCmd = &cobra.Command{
	Use:     "build [patterns...]",
	Aliases: []string{"b"},
	Short:   "Render every matching template into the output directory",
	Long: `Resolve every template file under the template root that matches the
build patterns and write its rendered main partial to the output directory.
A manifest listing each file's partials, dependencies and composed sources is
written next to the output.

Patterns are slash-separated globs relative to the root; "**" matches any
number of directories. Patterns given as arguments replace build.patterns.

Examples:
  xtpl build                       # Build build.patterns into build.output_dir
  xtpl build "pages/**/*.html"     # Build only pages
  xtpl build --output-dir public   # Build to a specific directory`,
	RunE: runBuild,
}

var buildFlags *StandardFlags

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().String("output-dir", "dist", "Output directory")
	buildCmd.Flags().Int("concurrency", 4, "Files built in parallel")
	buildCmd.Flags().String("manifest", "manifest.json", "Manifest file name (empty disables)")
	buildFlags = AddStandardFlags(buildCmd, "data")

	_ = viper.BindPFlag("build.output_dir", buildCmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("build.concurrency", buildCmd.Flags().Lookup("concurrency"))
	_ = viper.BindPFlag("build.manifest", buildCmd.Flags().Lookup("manifest"))
}

func runBuild(cmd *cobra.Command, args []string) error {
	data, err := buildFlags.ParseData()
	if err != nil {
		return err
	}

	recorder := compiler.NewRecorder()
	env, err := newEnvironment(recorder)
	if err != nil {
		return err
	}
	cfg := env.cfg

	patterns := cfg.Build.Patterns
	if len(args) > 0 {
		patterns = args
	}

	builder := build.New(env.newLoader(), os.DirFS(cfg.Source.Root), build.Options{
		OutputDir:   cfg.Build.OutputDir,
		Patterns:    patterns,
		Concurrency: cfg.Build.Concurrency,
		Manifest:    cfg.Build.Manifest,
		Data:        data,
	}, build.WithRecorder(recorder), build.WithLogger(env.logger))

	result, err := builder.Build(cmd.Context())
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if result.Errors.HasErrors() {
		fmt.Fprintln(out, result.Errors.Summary())
		return fmt.Errorf("%d of %d templates failed to build", len(result.Errors.Files()), len(result.Files))
	}

	snapshot := builder.Metrics().Snapshot()
	fmt.Fprintf(out, "Built %d templates (%d partials, %d bytes) into %s in %v\n",
		snapshot.Written, snapshot.Partials, snapshot.Bytes, cfg.Build.OutputDir, result.Duration)
	return nil
}
