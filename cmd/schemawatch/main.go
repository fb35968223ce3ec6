// Command schemawatch captures database schema snapshots, diffs them,
// and builds foreign-key dependency graphs.
package main

import (
	"os"

	"github.com/schemawatch/schemawatch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
