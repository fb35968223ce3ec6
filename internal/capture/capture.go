// Package capture connects to live databases and extracts raw schema
// payloads for normalization. Each supported engine ships as a Captor
// that registers itself by driver name; captors emit loose envelope
// payloads and leave all cleanup to the normalizer.
package capture

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Config holds the configuration for connecting to a capture target.
type Config struct {
	// Type specifies the database type (e.g., "postgres", "duckdb", "sqlite")
	Type string

	// Path is the file path for file-based databases (DuckDB, SQLite).
	// Use ":memory:" for in-memory databases
	Path string

	// Host is the hostname for network-based databases
	Host string

	// Port is the port number for network-based databases
	Port int

	// Database is the database name
	Database string

	// Username for authentication
	Username string

	// Password for authentication
	Password string

	// Schema limits the capture to one schema when set
	Schema string

	// Options contains additional driver-specific options
	Options map[string]string

	// Params carries extra captor settings, decoded into Options via
	// DecodeOptions
	Params map[string]any
}

// Options are the decoded captor settings from Config.Params.
type Options struct {
	// Schemas limits the capture to the named schemas. Empty means all
	// user schemas, or Config.Schema when that is set.
	Schemas []string `mapstructure:"schemas"`

	// IncludeViews controls whether view definitions are captured.
	IncludeViews bool `mapstructure:"include_views"`

	// IncludeRoutines controls whether functions and procedures are
	// captured.
	IncludeRoutines bool `mapstructure:"include_routines"`
}

// DecodeOptions decodes the free-form params block of a database entry.
// Unset keys keep their defaults: views and routines are captured
// unless switched off.
func DecodeOptions(params map[string]any) (Options, error) {
	opts := Options{IncludeViews: true, IncludeRoutines: true}
	if len(params) == 0 {
		return opts, nil
	}
	if err := mapstructure.Decode(params, &opts); err != nil {
		return Options{}, fmt.Errorf("decode capture options: %w", err)
	}
	return opts, nil
}

// schemaFilter resolves the schema selection for a connect call.
func schemaFilter(cfg Config, opts Options) []string {
	if len(opts.Schemas) > 0 {
		return opts.Schemas
	}
	if cfg.Schema != "" {
		return []string{cfg.Schema}
	}
	return nil
}

// Captor defines the interface every capture backend implements. A
// captor introspects one database engine and returns the raw payload
// in envelope form, ready for schema.Normalize.
type Captor interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Snapshot introspects the connected database into a raw envelope
	// payload.
	Snapshot(ctx context.Context) (map[string]any, error)

	// DriverName returns the registry name of this captor.
	DriverName() string
}
