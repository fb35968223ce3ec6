// Package diff compares two schema snapshots and classifies every
// difference as added, removed, or changed.
//
// Entities are matched by logical identity, not by position: tables by
// schema and name, and columns, indexes, and foreign keys by name
// within their table. When several entities share a name inside one
// scope, occurrences are matched pairwise in encounter order and the
// later ones are reported under suffixed names ("idx", "idx#2", ...).
package diff

import (
	"sort"

	"github.com/schemawatch/schemawatch/pkg/schema"
)

// Kind classifies a single change.
type Kind string

const (
	Added   Kind = "added"
	Removed Kind = "removed"
	Changed Kind = "changed"
)

// kindRank orders added before removed before changed when every other
// sort key ties.
func kindRank(k Kind) int {
	switch k {
	case Added:
		return 0
	case Removed:
		return 1
	case Changed:
		return 2
	default:
		return 3
	}
}

// TableChange records a table that appeared, vanished, or whose
// constraint set changed. The constraint slices carry both sides of a
// change; only one side is set for added and removed tables.
type TableChange struct {
	SchemaName          string              `json:"schemaName"`
	TableName           string              `json:"tableName"`
	Kind                Kind                `json:"kind"`
	PreviousConstraints []schema.Constraint `json:"previousConstraints,omitempty"`
	NextConstraints     []schema.Constraint `json:"nextConstraints,omitempty"`
}

// ColumnChange records one column difference.
type ColumnChange struct {
	SchemaName string         `json:"schemaName"`
	TableName  string         `json:"tableName"`
	ColumnName string         `json:"columnName"`
	Kind       Kind           `json:"kind"`
	Previous   *schema.Column `json:"previous,omitempty"`
	Next       *schema.Column `json:"next,omitempty"`
}

// IndexChange records one index difference.
type IndexChange struct {
	SchemaName string        `json:"schemaName"`
	TableName  string        `json:"tableName"`
	IndexName  string        `json:"indexName"`
	Kind       Kind          `json:"kind"`
	Previous   *schema.Index `json:"previous,omitempty"`
	Next       *schema.Index `json:"next,omitempty"`
}

// ForeignKeyChange records one foreign-key difference.
type ForeignKeyChange struct {
	SchemaName     string             `json:"schemaName"`
	TableName      string             `json:"tableName"`
	ForeignKeyName string             `json:"foreignKeyName"`
	Kind           Kind               `json:"kind"`
	Previous       *schema.ForeignKey `json:"previous,omitempty"`
	Next           *schema.ForeignKey `json:"next,omitempty"`
}

// Diff is the full classified drift between two snapshots. Every list
// is sorted by schema name, table name, entity name, and kind.
type Diff struct {
	Tables      []TableChange      `json:"tables"`
	Columns     []ColumnChange     `json:"columns"`
	Indexes     []IndexChange      `json:"indexes"`
	ForeignKeys []ForeignKeyChange `json:"foreignKeys"`
}

// Summary counts changes by entity kind and by change kind.
type Summary struct {
	Tables      int `json:"tables"`
	Columns     int `json:"columns"`
	Indexes     int `json:"indexes"`
	ForeignKeys int `json:"foreignKeys"`
	Added       int `json:"added"`
	Removed     int `json:"removed"`
	Changed     int `json:"changed"`
}

// Snapshots computes the drift from previous to next. Nil snapshots
// are treated as empty, so diffing against nil reports everything on
// the other side as added or removed. The result is deterministic:
// input ordering never changes the outcome.
func Snapshots(previous, next *schema.Snapshot) *Diff {
	d := &Diff{}

	prevTables, prevOrder := collectTables(previous)
	nextTables, nextOrder := collectTables(next)

	for _, key := range prevOrder {
		prevTable := prevTables[key]
		nextTable, present := nextTables[key]
		if !present {
			d.appendTable(key, prevTable, Removed)
			continue
		}
		d.compareTables(key, prevTable, nextTable)
	}
	for _, key := range nextOrder {
		if _, present := prevTables[key]; present {
			continue
		}
		d.appendTable(key, nextTables[key], Added)
	}

	d.sort()
	return d
}

// compareTables handles a table present on both sides.
func (d *Diff) compareTables(key tableKey, previous, next schema.Table) {
	if constraintFingerprint(previous.Constraints) != constraintFingerprint(next.Constraints) {
		d.Tables = append(d.Tables, TableChange{
			SchemaName:          key.schemaName,
			TableName:           key.tableName,
			Kind:                Changed,
			PreviousConstraints: previous.Constraints,
			NextConstraints:     next.Constraints,
		})
	}
	d.compareColumns(key, previous.Columns, next.Columns)
	d.compareIndexes(key, previous.Indexes, next.Indexes)
	d.compareForeignKeys(key, previous.ForeignKeys, next.ForeignKeys)
}

// appendTable emits the record for a table present on one side only,
// plus one synthetic entry for every entity the table owns.
func (d *Diff) appendTable(key tableKey, t schema.Table, kind Kind) {
	change := TableChange{SchemaName: key.schemaName, TableName: key.tableName, Kind: kind}
	if kind == Removed {
		change.PreviousConstraints = t.Constraints
	} else {
		change.NextConstraints = t.Constraints
	}
	d.Tables = append(d.Tables, change)

	for _, e := range keyedColumns(t.Columns) {
		c := ColumnChange{SchemaName: key.schemaName, TableName: key.tableName, ColumnName: e.key, Kind: kind}
		if kind == Removed {
			c.Previous = ref(e.value)
		} else {
			c.Next = ref(e.value)
		}
		d.Columns = append(d.Columns, c)
	}
	for _, e := range keyedIndexes(t.Indexes) {
		c := IndexChange{SchemaName: key.schemaName, TableName: key.tableName, IndexName: e.key, Kind: kind}
		if kind == Removed {
			c.Previous = ref(e.value)
		} else {
			c.Next = ref(e.value)
		}
		d.Indexes = append(d.Indexes, c)
	}
	for _, e := range keyedForeignKeys(t.ForeignKeys) {
		c := ForeignKeyChange{SchemaName: key.schemaName, TableName: key.tableName, ForeignKeyName: e.key, Kind: kind}
		if kind == Removed {
			c.Previous = ref(e.value)
		} else {
			c.Next = ref(e.value)
		}
		d.ForeignKeys = append(d.ForeignKeys, c)
	}
}

func (d *Diff) compareColumns(key tableKey, previous, next []schema.Column) {
	prevOrder := keyedColumns(previous)
	nextOrder := keyedColumns(next)
	nextByKey := byKey(nextOrder)
	prevByKey := byKey(prevOrder)

	for _, e := range prevOrder {
		nextCol, present := nextByKey[e.key]
		if !present {
			d.Columns = append(d.Columns, ColumnChange{
				SchemaName: key.schemaName, TableName: key.tableName, ColumnName: e.key,
				Kind: Removed, Previous: ref(e.value),
			})
			continue
		}
		if !columnsEqual(e.value, nextCol) {
			d.Columns = append(d.Columns, ColumnChange{
				SchemaName: key.schemaName, TableName: key.tableName, ColumnName: e.key,
				Kind: Changed, Previous: ref(e.value), Next: ref(nextCol),
			})
		}
	}
	for _, e := range nextOrder {
		if _, present := prevByKey[e.key]; !present {
			d.Columns = append(d.Columns, ColumnChange{
				SchemaName: key.schemaName, TableName: key.tableName, ColumnName: e.key,
				Kind: Added, Next: ref(e.value),
			})
		}
	}
}

func (d *Diff) compareIndexes(key tableKey, previous, next []schema.Index) {
	prevOrder := keyedIndexes(previous)
	nextOrder := keyedIndexes(next)
	nextByKey := byKey(nextOrder)
	prevByKey := byKey(prevOrder)

	for _, e := range prevOrder {
		nextIdx, present := nextByKey[e.key]
		if !present {
			d.Indexes = append(d.Indexes, IndexChange{
				SchemaName: key.schemaName, TableName: key.tableName, IndexName: e.key,
				Kind: Removed, Previous: ref(e.value),
			})
			continue
		}
		if !indexesEqual(e.value, nextIdx) {
			d.Indexes = append(d.Indexes, IndexChange{
				SchemaName: key.schemaName, TableName: key.tableName, IndexName: e.key,
				Kind: Changed, Previous: ref(e.value), Next: ref(nextIdx),
			})
		}
	}
	for _, e := range nextOrder {
		if _, present := prevByKey[e.key]; !present {
			d.Indexes = append(d.Indexes, IndexChange{
				SchemaName: key.schemaName, TableName: key.tableName, IndexName: e.key,
				Kind: Added, Next: ref(e.value),
			})
		}
	}
}

func (d *Diff) compareForeignKeys(key tableKey, previous, next []schema.ForeignKey) {
	prevOrder := keyedForeignKeys(previous)
	nextOrder := keyedForeignKeys(next)
	nextByKey := byKey(nextOrder)
	prevByKey := byKey(prevOrder)

	for _, e := range prevOrder {
		nextFK, present := nextByKey[e.key]
		if !present {
			d.ForeignKeys = append(d.ForeignKeys, ForeignKeyChange{
				SchemaName: key.schemaName, TableName: key.tableName, ForeignKeyName: e.key,
				Kind: Removed, Previous: ref(e.value),
			})
			continue
		}
		if !foreignKeysEqual(e.value, nextFK) {
			d.ForeignKeys = append(d.ForeignKeys, ForeignKeyChange{
				SchemaName: key.schemaName, TableName: key.tableName, ForeignKeyName: e.key,
				Kind: Changed, Previous: ref(e.value), Next: ref(nextFK),
			})
		}
	}
	for _, e := range nextOrder {
		if _, present := prevByKey[e.key]; !present {
			d.ForeignKeys = append(d.ForeignKeys, ForeignKeyChange{
				SchemaName: key.schemaName, TableName: key.tableName, ForeignKeyName: e.key,
				Kind: Added, Next: ref(e.value),
			})
		}
	}
}

func (d *Diff) sort() {
	sort.Slice(d.Tables, func(i, j int) bool {
		a, b := d.Tables[i], d.Tables[j]
		return lessEntry(a.SchemaName, a.TableName, a.TableName, a.Kind, b.SchemaName, b.TableName, b.TableName, b.Kind)
	})
	sort.Slice(d.Columns, func(i, j int) bool {
		a, b := d.Columns[i], d.Columns[j]
		return lessEntry(a.SchemaName, a.TableName, a.ColumnName, a.Kind, b.SchemaName, b.TableName, b.ColumnName, b.Kind)
	})
	sort.Slice(d.Indexes, func(i, j int) bool {
		a, b := d.Indexes[i], d.Indexes[j]
		return lessEntry(a.SchemaName, a.TableName, a.IndexName, a.Kind, b.SchemaName, b.TableName, b.IndexName, b.Kind)
	})
	sort.Slice(d.ForeignKeys, func(i, j int) bool {
		a, b := d.ForeignKeys[i], d.ForeignKeys[j]
		return lessEntry(a.SchemaName, a.TableName, a.ForeignKeyName, a.Kind, b.SchemaName, b.TableName, b.ForeignKeyName, b.Kind)
	})
}

func lessEntry(aSchema, aTable, aName string, aKind Kind, bSchema, bTable, bName string, bKind Kind) bool {
	if aSchema != bSchema {
		return aSchema < bSchema
	}
	if aTable != bTable {
		return aTable < bTable
	}
	if aName != bName {
		return aName < bName
	}
	return kindRank(aKind) < kindRank(bKind)
}

// HasChanges reports whether the diff contains any entry at all.
func (d *Diff) HasChanges() bool {
	return d.Count() > 0
}

// Count returns the total number of entries across all lists.
func (d *Diff) Count() int {
	return len(d.Tables) + len(d.Columns) + len(d.Indexes) + len(d.ForeignKeys)
}

// Summarize tallies the diff by entity kind and change kind.
func (d *Diff) Summarize() Summary {
	s := Summary{
		Tables:      len(d.Tables),
		Columns:     len(d.Columns),
		Indexes:     len(d.Indexes),
		ForeignKeys: len(d.ForeignKeys),
	}
	bump := func(k Kind) {
		switch k {
		case Added:
			s.Added++
		case Removed:
			s.Removed++
		case Changed:
			s.Changed++
		}
	}
	for _, c := range d.Tables {
		bump(c.Kind)
	}
	for _, c := range d.Columns {
		bump(c.Kind)
	}
	for _, c := range d.Indexes {
		bump(c.Kind)
	}
	for _, c := range d.ForeignKeys {
		bump(c.Kind)
	}
	return s
}

// ref copies v onto the heap so entries never alias caller slices.
func ref[T any](v T) *T {
	return &v
}
