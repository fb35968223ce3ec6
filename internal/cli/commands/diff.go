package commands

import (
	"github.com/spf13/cobra"

	"github.com/schemawatch/schemawatch/pkg/diff"
)

// DiffOptions holds options for the diff command.
type DiffOptions struct {
	ExitCode bool
}

// driftFoundError is returned by diff --exit-code when the snapshots
// differ. The CLI maps it to exit status 1.
type driftFoundError struct{}

func (driftFoundError) Error() string { return "schema drift found" }

// NewDiffCommand creates the diff command.
func NewDiffCommand() *cobra.Command {
	opts := &DiffOptions{}

	cmd := &cobra.Command{
		Use:   "diff <previous> <next>",
		Short: "Compare two schema snapshots",
		Long: `Compare two snapshots and report every added, removed, and changed
table, column, index, and foreign key.

Each snapshot argument is a file path or a stored-snapshot reference:

  snapshot.json      a snapshot file (json or yaml)
  id:<uuid>          a stored snapshot by id
  db:<name>          the latest stored snapshot of a database
  db:<name>~1        the snapshot before the latest`,
		Example: `  # Diff two snapshot files
  schemawatch diff before.json after.json

  # Diff the two most recent captures of a database
  schemawatch diff db:analytics~1 db:analytics

  # Fail a CI job when drift exists
  schemawatch diff db:analytics~1 db:analytics --exit-code`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.ExitCode, "exit-code", false, "Exit with status 1 when drift is found")

	return cmd
}

func runDiff(cmd *cobra.Command, previousArg, nextArg string, opts *DiffOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	previous, previousLabel, err := resolveSnapshotArg(previousArg, cmdCtx.Store)
	if err != nil {
		return err
	}
	next, nextLabel, err := resolveSnapshotArg(nextArg, cmdCtx.Store)
	if err != nil {
		return err
	}

	d := diff.Snapshots(previous, next)
	if err := renderDiff(cmdCtx.Renderer, previousLabel, nextLabel, d); err != nil {
		return err
	}

	if opts.ExitCode && d.HasChanges() {
		return driftFoundError{}
	}
	return nil
}
