// Package schema defines the canonical model for database schema
// snapshots and the normalizer that produces it from raw
// introspection payloads.
//
// A Snapshot is a plain value. Once built it shares no mutable state
// with the payload it came from, and nothing in this package performs
// I/O or reads the wall clock.
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Snapshot is a point-in-time description of every schema in one database.
type Snapshot struct {
	// CapturedAt records when the snapshot was taken. The zero time
	// means the capture moment is unknown.
	CapturedAt time.Time `json:"capturedAt,omitzero"`

	// Schemas holds the normalized schemas. Always non-nil, possibly empty.
	Schemas []Schema `json:"schemas"`
}

// Schema groups the objects that live under one database schema.
type Schema struct {
	Name       string    `json:"name"`
	Tables     []Table   `json:"tables,omitempty"`
	Views      []View    `json:"views,omitempty"`
	Functions  []Routine `json:"functions,omitempty"`
	Procedures []Routine `json:"procedures,omitempty"`
}

// Table describes one table and the objects attached to it.
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns,omitempty"`
	Constraints []Constraint `json:"constraints,omitempty"`
	Indexes     []Index      `json:"indexes,omitempty"`
	ForeignKeys []ForeignKey `json:"foreignKeys,omitempty"`
}

// Column describes one table column.
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}

// Constraint describes a table constraint such as a primary key,
// unique, check, or exclusion rule. Type carries the constraint kind
// the way the source database reports it, for example "PRIMARY KEY".
type Constraint struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Columns    []string `json:"columns,omitempty"`
	Definition string   `json:"definition,omitempty"`
}

// Index describes one index on a table.
type Index struct {
	Name      string   `json:"name"`
	Columns   []string `json:"columns,omitempty"`
	Unique    bool     `json:"unique"`
	Primary   bool     `json:"primary"`
	Method    string   `json:"method,omitempty"`
	Predicate string   `json:"predicate,omitempty"`
}

// ForeignKey describes a foreign key owned by a table. The referenced
// side is recorded by name only; resolution against the rest of the
// snapshot happens in the graph package.
type ForeignKey struct {
	Name              string   `json:"name"`
	Columns           []string `json:"columns,omitempty"`
	ReferencedSchema  string   `json:"referencedSchema,omitempty"`
	ReferencedTable   string   `json:"referencedTable,omitempty"`
	ReferencedColumns []string `json:"referencedColumns,omitempty"`
	OnUpdate          string   `json:"onUpdate,omitempty"`
	OnDelete          string   `json:"onDelete,omitempty"`
}

// View describes one view.
type View struct {
	Name       string `json:"name"`
	Definition string `json:"definition,omitempty"`
}

// Routine describes a stored function or procedure. Kind is "function"
// or "procedure" when known.
type Routine struct {
	Name       string `json:"name"`
	Kind       string `json:"kind,omitempty"`
	Signature  string `json:"signature,omitempty"`
	ReturnType string `json:"returnType,omitempty"`
	Language   string `json:"language,omitempty"`
}

// Schema returns the first schema with the given name.
func (s *Snapshot) Schema(name string) (Schema, bool) {
	for _, sc := range s.Schemas {
		if sc.Name == name {
			return sc, true
		}
	}
	return Schema{}, false
}

// Table returns the named table within the named schema.
func (s *Snapshot) Table(schemaName, tableName string) (Table, bool) {
	sc, ok := s.Schema(schemaName)
	if !ok {
		return Table{}, false
	}
	for _, t := range sc.Tables {
		if t.Name == tableName {
			return t, true
		}
	}
	return Table{}, false
}

// TableCount returns the number of tables across all schemas.
func (s *Snapshot) TableCount() int {
	n := 0
	for _, sc := range s.Schemas {
		n += len(sc.Tables)
	}
	return n
}

// Fingerprint returns a stable hex digest of the snapshot's schema
// content. Snapshots with identical normalized schemas share a
// fingerprint regardless of when they were captured, which makes the
// digest usable as a cache and deduplication key.
func (s *Snapshot) Fingerprint() string {
	payload, _ := json.Marshal(s.Schemas)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
