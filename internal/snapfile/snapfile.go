// Package snapfile reads and writes schema snapshot files. The format
// is chosen by file extension: JSON by default, YAML for .yaml/.yml.
package snapfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/schemawatch/schemawatch/pkg/schema"
)

// IsSnapshotFile reports whether path carries a snapshot extension.
func IsSnapshotFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// LoadRaw reads the file at path and decodes it into a raw payload
// without normalizing. Decode errors are returned as-is so callers can
// tell a broken file from an empty schema.
func LoadRaw(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	var raw any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse yaml snapshot %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse json snapshot %s: %w", path, err)
		}
	}
	return raw, nil
}

// Load reads and normalizes the snapshot stored at path.
func Load(path string) (*schema.Snapshot, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	return schema.Normalize(raw), nil
}

// Save writes snap to path. JSON files use two-space indentation and a
// trailing newline. YAML output goes through a JSON round trip first so
// the keys match the canonical wire names instead of Go field names.
func Save(path string, snap *schema.Snapshot) error {
	data, err := encode(path, snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	return nil
}

func encode(path string, snap *schema.Snapshot) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		encoded, err := json.Marshal(snap)
		if err != nil {
			return nil, err
		}
		var payload any
		if err := json.Unmarshal(encoded, &payload); err != nil {
			return nil, err
		}
		return yaml.Marshal(payload)
	default:
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}
