package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/xtpl/internal/compiler"
)

var renderCmd = &cobra.Command{
	Use:     "render NAME",
	Aliases: []string{"r"},
	Short:   "Render one partial to stdout",
	Long: `Resolve a template file and render one of its partials.

NAME is "<path>[:<partial>]". The path is relative to the template root and
gets the default extension when it has none; without a partial the default
partial is rendered.

Examples:
  xtpl render pages/home                      # main partial of pages/home.html
  xtpl render pages/home:title                # the title partial
  xtpl render pages/home -d user=Ada          # with data (gotemplate compiler)
  xtpl render pages/home --json-data ctx.json # data from a JSON file`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var renderFlags *StandardFlags

func init() {
	rootCmd.AddCommand(renderCmd)

	renderFlags = AddStandardFlags(renderCmd, "data")
}

func runRender(cmd *cobra.Command, args []string) error {
	data, err := renderFlags.ParseData()
	if err != nil {
		return err
	}

	env, err := newEnvironment(nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	artifact, err := env.newLoader().Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", args[0], err)
	}

	if err := compiler.Component(artifact, data).Render(ctx, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to render %s: %w", args[0], err)
	}
	return nil
}
