package commands

import (
	"github.com/spf13/cobra"

	"github.com/schemawatch/schemawatch/pkg/graph"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <snapshot>",
		Short: "Show the foreign-key dependency graph of a snapshot",
		Long: `Derive the table dependency graph of one snapshot. Every foreign
key becomes a directed edge from the owning table to the referenced
table; references to tables missing from the snapshot are listed as
unresolved.

The snapshot argument accepts the same forms as diff: a file path,
id:<uuid>, db:<name>, or db:<name>~N.`,
		Example: `  # Graph of a snapshot file
  schemawatch graph snapshot.json

  # Graph of the latest stored capture
  schemawatch graph db:analytics

  # Machine-readable edge list
  schemawatch graph db:analytics --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, args[0])
		},
	}
	return cmd
}

func runGraph(cmd *cobra.Command, arg string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	snap, label, err := resolveSnapshotArg(arg, cmdCtx.Store)
	if err != nil {
		return err
	}

	return renderGraph(cmdCtx.Renderer, label, graph.Build(snap))
}
