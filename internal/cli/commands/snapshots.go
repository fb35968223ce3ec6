package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemawatch/schemawatch/internal/cli/output"
	"github.com/schemawatch/schemawatch/internal/state"
)

// NewSnapshotsCommand creates the snapshots command group.
func NewSnapshotsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Manage stored schema snapshots",
	}

	cmd.AddCommand(newSnapshotsListCommand())
	cmd.AddCommand(newSnapshotsShowCommand())
	cmd.AddCommand(newSnapshotsRmCommand())
	cmd.AddCommand(newSnapshotsPruneCommand())

	return cmd
}

func newSnapshotsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [database]",
		Short: "List stored snapshots, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			database := ""
			if len(args) == 1 {
				database = args[0]
			}

			records, err := cmdCtx.Store.ListSnapshots(database)
			if err != nil {
				return err
			}
			return renderSnapshotList(cmdCtx.Renderer, records)
		},
	}
}

func newSnapshotsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			rec, err := cmdCtx.Store.GetSnapshot(args[0])
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(rec)
			}

			r.Header("Snapshot " + rec.ID)
			r.KeyValue("Database", rec.Database)
			r.KeyValue("Captured", rec.CapturedAt.Format("2006-01-02 15:04:05 MST"))
			r.KeyValue("Stored", rec.CreatedAt.Format("2006-01-02 15:04:05 MST"))
			r.KeyValue("Content hash", rec.ContentHash)
			r.KeyValue("Schemas", len(rec.Snapshot.Schemas))
			r.KeyValue("Tables", rec.Snapshot.TableCount())
			return nil
		},
	}
}

func newSnapshotsRmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete one stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cmdCtx.Store.DeleteSnapshot(args[0]); err != nil {
				return err
			}
			cmdCtx.Renderer.Success("Deleted " + args[0])
			return nil
		},
	}
}

func newSnapshotsPruneCommand() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune <database>",
		Short: "Delete all but the newest snapshots of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			pruned, err := cmdCtx.Store.PruneSnapshots(args[0], keep)
			if err != nil {
				return err
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("Pruned %d snapshots of %s, kept %d", pruned, args[0], keep))
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 10, "Number of snapshots to keep")

	return cmd
}

func renderSnapshotList(r *output.Renderer, records []*state.SnapshotRecord) error {
	if r.EffectiveMode() == output.ModeJSON {
		if records == nil {
			records = []*state.SnapshotRecord{}
		}
		return r.JSON(records)
	}

	if len(records) == 0 {
		r.Println("No snapshots stored.")
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		hash := rec.ContentHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		rows = append(rows, []string{
			rec.ID,
			rec.Database,
			rec.CapturedAt.Format("2006-01-02 15:04:05"),
			hash,
		})
	}
	r.Table([]string{"id", "database", "captured", "hash"}, rows)
	return nil
}
