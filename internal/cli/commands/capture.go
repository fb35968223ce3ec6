package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/schemawatch/schemawatch/internal/capture"
	"github.com/schemawatch/schemawatch/internal/config"
	"github.com/schemawatch/schemawatch/internal/snapfile"
	"github.com/schemawatch/schemawatch/internal/state"
	"github.com/schemawatch/schemawatch/pkg/schema"
)

// CaptureOptions holds options for the capture command.
type CaptureOptions struct {
	All     bool
	Out     string
	NoStore bool
}

// NewCaptureCommand creates the capture command.
func NewCaptureCommand() *cobra.Command {
	opts := &CaptureOptions{}

	cmd := &cobra.Command{
		Use:   "capture [database...]",
		Short: "Capture schema snapshots of configured databases",
		Long: `Connect to one or more configured databases, introspect their
schemas, and store the normalized snapshots.

Snapshots land in the local state database unless --no-store is given.
With --out the snapshot is additionally written to a file; the format
follows the file extension (.json, .yaml, .yml).`,
		Example: `  # Capture the sole configured database
  schemawatch capture

  # Capture a specific database
  schemawatch capture analytics

  # Capture every configured database concurrently
  schemawatch capture --all

  # Capture into a file without touching the store
  schemawatch capture analytics --out analytics.json --no-store`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "Capture every configured database")
	cmd.Flags().StringVar(&opts.Out, "out", "", "Write the snapshot to a file (single database only)")
	cmd.Flags().BoolVar(&opts.NoStore, "no-store", false, "Skip saving to the state database")

	return cmd
}

func runCapture(cmd *cobra.Command, args []string, opts *CaptureOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	names, err := selectDatabases(cmdCtx.Cfg, args, opts.All)
	if err != nil {
		return err
	}
	if opts.Out != "" && len(names) > 1 {
		return fmt.Errorf("--out works with a single database, got %d", len(names))
	}

	type result struct {
		name string
		rec  *state.SnapshotRecord
	}

	results := make([]result, len(names))
	eg, ctx := errgroup.WithContext(cmd.Context())
	for i, name := range names {
		eg.Go(func() error {
			dbCfg, err := cmdCtx.Cfg.Database(name)
			if err != nil {
				return err
			}
			snap, err := captureDatabase(ctx, dbCfg)
			if err != nil {
				return fmt.Errorf("capture %s: %w", name, err)
			}
			results[i] = result{name: name, rec: &state.SnapshotRecord{
				Database: name,
				Snapshot: snap,
			}}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	r := cmdCtx.Renderer
	for _, res := range results {
		if !opts.NoStore {
			if err := cmdCtx.Store.SaveSnapshot(res.rec); err != nil {
				return err
			}
		}
		if opts.Out != "" {
			if err := snapfile.Save(opts.Out, res.rec.Snapshot); err != nil {
				return err
			}
		}

		cmdCtx.Logger.Debug("captured snapshot",
			"database", res.name,
			"tables", res.rec.Snapshot.TableCount(),
			"hash", res.rec.Snapshot.Fingerprint())

		switch {
		case opts.NoStore && opts.Out != "":
			r.Success(fmt.Sprintf("Captured %s (%d tables) -> %s", res.name, res.rec.Snapshot.TableCount(), opts.Out))
		case opts.NoStore:
			r.Success(fmt.Sprintf("Captured %s (%d tables)", res.name, res.rec.Snapshot.TableCount()))
		default:
			r.Success(fmt.Sprintf("Captured %s (%d tables) as %s", res.name, res.rec.Snapshot.TableCount(), res.rec.ID))
		}
	}
	return nil
}

// selectDatabases resolves the capture targets from args and flags.
func selectDatabases(cfg *config.Config, args []string, all bool) ([]string, error) {
	if all {
		names := cfg.DatabaseNames()
		if len(names) == 0 {
			return nil, fmt.Errorf("no databases configured - add a databases section to %s", config.FileName)
		}
		return names, nil
	}
	if len(args) > 0 {
		for _, name := range args {
			if _, err := cfg.Database(name); err != nil {
				return nil, err
			}
		}
		return args, nil
	}

	name, _, err := cfg.DefaultDatabase()
	if err != nil {
		return nil, err
	}
	return []string{name}, nil
}

// captureDatabase connects, introspects, and normalizes one database.
func captureDatabase(ctx context.Context, dbCfg *config.DatabaseConfig) (*schema.Snapshot, error) {
	captor, err := capture.New(dbCfg.CaptureConfig())
	if err != nil {
		return nil, err
	}
	if err := captor.Connect(ctx, dbCfg.CaptureConfig()); err != nil {
		return nil, err
	}
	defer func() { _ = captor.Close() }()

	raw, err := captor.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return schema.NormalizeAt(raw, time.Now().UTC()), nil
}
