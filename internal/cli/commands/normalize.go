package commands

import (
	"github.com/spf13/cobra"

	"github.com/schemawatch/schemawatch/internal/snapfile"
	"github.com/schemawatch/schemawatch/pkg/schema"
)

// NormalizeOptions holds options for the normalize command.
type NormalizeOptions struct {
	Out string
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand() *cobra.Command {
	opts := &NormalizeOptions{}

	cmd := &cobra.Command{
		Use:   "normalize <file>",
		Short: "Normalize a raw schema payload into canonical form",
		Long: `Read a raw schema payload file and print the canonical snapshot.

Both the envelope shape ({"schemas": [...]}) and the legacy map shape
({"schemaName": {...}}) are accepted. Malformed entries are dropped
rather than failing the whole payload.`,
		Example: `  # Print the canonical form of a raw payload
  schemawatch normalize raw-export.json

  # Write the canonical snapshot to a file
  schemawatch normalize raw-export.json -O canonical.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out-file", "O", "", "Write the snapshot to a file instead of stdout")

	return cmd
}

func runNormalize(cmd *cobra.Command, path string, opts *NormalizeOptions) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)

	raw, err := snapfile.LoadRaw(path)
	if err != nil {
		return err
	}
	snap := schema.Normalize(raw)

	if opts.Out != "" {
		if err := snapfile.Save(opts.Out, snap); err != nil {
			return err
		}
		cmdCtx.Renderer.Success("Wrote " + opts.Out)
		return nil
	}
	return cmdCtx.Renderer.JSON(snap)
}
