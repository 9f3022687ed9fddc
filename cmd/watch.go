package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/xtpl/internal/build"
	xterrors "github.com/conneroisu/xtpl/internal/errors"
	"github.com/conneroisu/xtpl/internal/registry"
	"github.com/conneroisu/xtpl/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Resolve templates again whenever they change",
	Long: `Watch the template root and resolve every template matching build.patterns
again after each change, reporting which templates were affected and which
fail to resolve. Nothing is written to disk.

Examples:
  xtpl watch              # Report changes and failures
  xtpl watch --verbose    # Also list every template resolved`,
	RunE: runWatch,
}

var watchVerbose bool

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Verbose output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(nil)
	if err != nil {
		return err
	}
	if env.cfg.Source.BaseURL != "" {
		return fmt.Errorf("watch needs a local template root, not source.base_url")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := &watchSession{env: env, out: cmd.OutOrStdout(), verbose: watchVerbose}
	session.resolveAll(ctx)

	fileWatcher, err := newTemplateWatcher(ctx, env, session.handleChanges)
	if err != nil {
		return err
	}
	defer fileWatcher.Stop()

	fmt.Fprintf(session.out, "Watching %s (press Ctrl+C to stop)\n", env.cfg.Source.Root)
	<-ctx.Done()
	return nil
}

// watchSession resolves the template tree from scratch after every change.
type watchSession struct {
	env      *environment
	out      io.Writer
	verbose  bool
	registry *registry.TemplateRegistry
}

func (s *watchSession) handleChanges(ctx context.Context, events []watcher.ChangeEvent) error {
	for _, event := range events {
		fmt.Fprintf(s.out, "%s: %s\n", event.Type, event.ID)
		if s.verbose && s.registry != nil {
			for _, dependent := range s.registry.Dependents(event.ID) {
				fmt.Fprintf(s.out, "  affects %s\n", dependent)
			}
		}
	}

	s.resolveAll(ctx)
	return nil
}

// resolveAll resolves every template matching the build patterns with a
// fresh loader and reports the failures.
func (s *watchSession) resolveAll(ctx context.Context) {
	cfg := s.env.cfg
	ids, err := build.Discover(os.DirFS(cfg.Source.Root), cfg.Build.Patterns)
	if err != nil {
		fmt.Fprintf(s.out, "Failed to discover templates: %v\n", err)
		return
	}

	reg := registry.New()
	var events <-chan registry.TemplateEvent
	done := make(chan struct{})
	if s.verbose {
		events = reg.Watch()
		go func() {
			defer close(done)
			for event := range events {
				fmt.Fprintf(s.out, "  %s %s\n", event.Type, event.ID)
			}
		}()
	}

	l := s.env.newLoaderWithStore(reg)
	failures := xterrors.NewErrorCollector()
	for _, id := range ids {
		if _, err := l.Resolve(ctx, []string{id}); err != nil {
			failures.Add(id, err)
		}
	}
	s.registry = reg

	if events != nil {
		reg.UnWatch(events)
		<-done
	}

	if failures.HasErrors() {
		fmt.Fprintln(s.out, failures.Summary())
		return
	}
	fmt.Fprintf(s.out, "Resolved %d templates\n", len(ids))
}
