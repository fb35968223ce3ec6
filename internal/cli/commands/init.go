package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/schemawatch/schemawatch/internal/config"
)

const configTemplate = `# schemawatch project configuration
#
# state_path:    SQLite database holding captured snapshots
# snapshots_dir: directory for snapshot files written with --out
# output:        auto | text | markdown | json

state_path: .schemawatch/state.db
snapshots_dir: snapshots
output: auto

databases:
  # analytics:
  #   type: postgres
  #   host: localhost
  #   port: 5432
  #   database: analytics
  #   user: ${PGUSER}
  #   password: ${PGPASSWORD}
  #   schema: public
  #
  # warehouse:
  #   type: duckdb
  #   path: warehouse.duckdb
  #
  # app:
  #   type: sqlite
  #   path: app.db

# server:
#   host: 127.0.0.1
#   port: 8844

# watch:
#   dir: snapshots
`

// InitOptions holds options for the init command.
type InitOptions struct {
	Force bool
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	opts := &InitOptions{}

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Scaffold a schemawatch.yaml config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, dir, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, opts *InitOptions) error {
	cmdCtx := NewCommandContextWithoutStore(cmd)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}

	path := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(path); err == nil && !opts.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	cmdCtx.Renderer.Success("Created " + path)
	cmdCtx.Renderer.Println("Add your databases to the databases section, then run: schemawatch capture")
	return nil
}
