package commands

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/schemawatch/schemawatch/internal/watch"
)

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a directory of snapshot files and report drift",
		Long: `Watch follows snapshot files (.json, .yaml, .yml) in a directory tree.
Whenever a file changes, its schema is diffed against the content the
file last held and any drift is printed.

Without an argument the configured watch directory is used, falling
back to the snapshots directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runWatch(cmd, dir, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 0, "Delay before re-reading a changed file")

	return cmd
}

func runWatch(cmd *cobra.Command, dir string, opts *WatchOptions) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)

	if dir == "" {
		dir = cmdCtx.Cfg.GetWatchDir()
	}

	w, err := watch.New(watch.Config{
		Dir:      dir,
		Debounce: opts.Debounce,
		Logger:   cmdCtx.Logger,
		OnDrift: func(event watch.Event) {
			label := filepath.Base(event.Path)
			if err := renderDiff(cmdCtx.Renderer, label+" (previous)", label, event.Diff); err != nil {
				cmdCtx.Logger.Error("render drift", "path", event.Path, "error", err)
			}
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
