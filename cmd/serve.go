package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/xtpl/internal/server"
	"github.com/conneroisu/xtpl/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the preview server with live reload",
	Long: `Start a development server that renders template partials on request and
reloads connected browsers whenever a template under the root changes.

Routes:
  /                          index of resolved templates
  /render/<path>?partial=    render one partial, other query values are data
  /api/templates             resolved templates as JSON
  /ws                        live reload WebSocket

Examples:
  xtpl serve                 # Serve on localhost:8080
  xtpl serve -p 3000         # Serve on another port
  xtpl serve --no-reload     # Serve without watching for changes`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().Bool("no-reload", false, "Disable file watching and live reload")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
}

func runServe(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(nil)
	if err != nil {
		return err
	}
	cfg := env.cfg

	if noReload, _ := cmd.Flags().GetBool("no-reload"); noReload {
		cfg.Development.HotReload = false
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, env.newLoader, env.logger)

	if cfg.Development.HotReload {
		if cfg.Source.BaseURL != "" {
			env.logger.Info(ctx, "Live reload disabled for remote templates", "base_url", cfg.Source.BaseURL)
		} else {
			fileWatcher, err := newTemplateWatcher(ctx, env, srv.HandleChanges)
			if err != nil {
				return err
			}
			defer fileWatcher.Stop()
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at http://%s\n", cfg.Source.Root, cfg.Addr())
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// newTemplateWatcher calls handler with every debounced batch of changes to
// template files under the template root.
func newTemplateWatcher(ctx context.Context, env *environment, handler watcher.ChangeHandler) (*watcher.FileWatcher, error) {
	cfg := env.cfg
	fileWatcher, err := watcher.NewFileWatcher(cfg.Source.Root, cfg.Development.Debounce, env.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fileWatcher.AddFilter(watcher.ExtensionFilter("." + cfg.Engine.Extension))
	fileWatcher.AddFilter(watcher.NoHiddenFilter)
	fileWatcher.AddFilter(watcher.NoVendorFilter)
	fileWatcher.AddHandler(handler)

	if err := fileWatcher.AddRecursive(); err != nil {
		fileWatcher.Stop()
		return nil, fmt.Errorf("failed to watch %s: %w", cfg.Source.Root, err)
	}
	if err := fileWatcher.Start(ctx); err != nil {
		fileWatcher.Stop()
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}
	return fileWatcher, nil
}
