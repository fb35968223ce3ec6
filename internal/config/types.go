// Package config loads schemawatch configuration from the project
// config file, environment variables, and command-line flags.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/schemawatch/schemawatch/internal/capture"
)

// DatabaseConfig describes one capture target from the databases
// section of schemawatch.yaml.
type DatabaseConfig struct {
	Type string `koanf:"type"` // postgres, duckdb, sqlite

	// File-based databases (DuckDB, SQLite)
	Path string `koanf:"path"` // file path, or ":memory:"

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Schema limits the capture to a single schema
	Schema string `koanf:"schema"`

	// Options contains additional driver-specific options (e.g. sslmode)
	Options map[string]string `koanf:"options"`

	// Params holds captor-specific settings (schema filters, view and
	// routine toggles), decoded by capture.DecodeOptions
	Params map[string]any `koanf:"params"`
}

// CaptureConfig converts the entry into the capture package's config.
func (d *DatabaseConfig) CaptureConfig() capture.Config {
	return capture.Config{
		Type:     strings.ToLower(d.Type),
		Path:     d.Path,
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		Username: d.User,
		Password: d.Password,
		Schema:   d.Schema,
		Options:  d.Options,
		Params:   d.Params,
	}
}

// Validate checks that the entry names a registered captor type.
func (d *DatabaseConfig) Validate() error {
	if d.Type == "" {
		return fmt.Errorf("database type is required")
	}
	if !capture.IsRegistered(strings.ToLower(d.Type)) {
		return &capture.UnknownCaptorError{
			Type:      d.Type,
			Available: capture.ListCaptors(),
		}
	}
	return nil
}

// ServerConfig holds settings for the HTTP facade.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// WatchConfig holds settings for the snapshot-directory watcher.
type WatchConfig struct {
	Dir string `koanf:"dir"`
}

// Config holds all schemawatch configuration options.
type Config struct {
	StatePath    string                     `koanf:"state_path"`
	SnapshotsDir string                     `koanf:"snapshots_dir"`
	OutputFormat string                     `koanf:"output"`
	Verbose      bool                       `koanf:"verbose"`
	Databases    map[string]*DatabaseConfig `koanf:"databases"`
	Server       *ServerConfig              `koanf:"server"`
	Watch        *WatchConfig               `koanf:"watch"`

	// ProjectRoot is the directory all relative paths resolve against.
	// Set by the loader, never read from the file.
	ProjectRoot string `koanf:"-"`
}

// Database returns the named entry from the databases section.
func (c *Config) Database(name string) (*DatabaseConfig, error) {
	db, ok := c.Databases[name]
	if !ok {
		return nil, fmt.Errorf("database %q not configured (available: %s)",
			name, strings.Join(c.DatabaseNames(), ", "))
	}
	return db, nil
}

// DatabaseNames returns the configured database names in sorted order.
func (c *Config) DatabaseNames() []string {
	names := make([]string, 0, len(c.Databases))
	for name := range c.Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultDatabase returns the sole configured database, or an error
// when zero or several entries exist and the caller gave no name.
func (c *Config) DefaultDatabase() (string, *DatabaseConfig, error) {
	switch len(c.Databases) {
	case 0:
		return "", nil, fmt.Errorf("no databases configured - add a databases section to %s", FileName)
	case 1:
		for name, db := range c.Databases {
			return name, db, nil
		}
	}
	return "", nil, fmt.Errorf("several databases configured (%s) - pass the database name",
		strings.Join(c.DatabaseNames(), ", "))
}

// GetServer returns the server config with defaults applied.
func (c *Config) GetServer() *ServerConfig {
	srv := c.Server
	if srv == nil {
		srv = &ServerConfig{}
	}
	if srv.Host == "" {
		srv.Host = DefaultServerHost
	}
	if srv.Port == 0 {
		srv.Port = DefaultServerPort
	}
	return srv
}

// GetWatchDir returns the watch directory, falling back to the
// snapshots directory.
func (c *Config) GetWatchDir() string {
	if c.Watch != nil && c.Watch.Dir != "" {
		return c.Watch.Dir
	}
	return c.SnapshotsDir
}

// Validate checks every configured database entry.
func (c *Config) Validate() error {
	for _, name := range c.DatabaseNames() {
		if err := c.Databases[name].Validate(); err != nil {
			return fmt.Errorf("database %q: %w", name, err)
		}
	}
	return nil
}
