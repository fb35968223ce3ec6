package config

// Config file names, searched in order.
const (
	FileName    = "schemawatch.yaml"
	FileNameAlt = "schemawatch.yml"
)

// Default configuration values.
const (
	DefaultStateFile    = ".schemawatch/state.db"
	DefaultSnapshotsDir = "snapshots"
	DefaultOutput       = "auto" // auto-detect: TTY=text, non-TTY=markdown
	DefaultServerHost   = "127.0.0.1"
	DefaultServerPort   = 8844
)
