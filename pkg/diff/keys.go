package diff

import (
	"fmt"

	"github.com/schemawatch/schemawatch/pkg/schema"
)

// tableKey is the cross-snapshot identity of one table occurrence.
type tableKey struct {
	schemaName string
	tableName  string
}

// entry pairs an occurrence key with its entity. The key equals the
// entity name for the first occurrence and gains a "#N" suffix for the
// Nth duplicate, so repeated names still match pairwise and every
// reported name stays unique within its scope.
type entry[T any] struct {
	key   string
	value T
}

// keyed assigns occurrence keys to items in encounter order.
func keyed[T any](items []T, name func(T) string) []entry[T] {
	counts := make(map[string]int, len(items))
	ordered := make([]entry[T], 0, len(items))
	for _, item := range items {
		n := name(item)
		counts[n]++
		key := n
		if counts[n] > 1 {
			key = fmt.Sprintf("%s#%d", n, counts[n])
		}
		ordered = append(ordered, entry[T]{key: key, value: item})
	}
	return ordered
}

// byKey indexes keyed entries for lookup from the other side.
func byKey[T any](entries []entry[T]) map[string]T {
	m := make(map[string]T, len(entries))
	for _, e := range entries {
		m[e.key] = e.value
	}
	return m
}

func keyedColumns(items []schema.Column) []entry[schema.Column] {
	return keyed(items, func(c schema.Column) string { return c.Name })
}

func keyedIndexes(items []schema.Index) []entry[schema.Index] {
	return keyed(items, func(i schema.Index) string { return i.Name })
}

func keyedForeignKeys(items []schema.ForeignKey) []entry[schema.ForeignKey] {
	return keyed(items, func(fk schema.ForeignKey) string { return fk.Name })
}

// collectTables flattens a snapshot into table occurrences keyed by
// schema and table name, returning both the lookup map and the
// encounter order.
func collectTables(snap *schema.Snapshot) (map[tableKey]schema.Table, []tableKey) {
	tables := make(map[tableKey]schema.Table)
	var order []tableKey
	if snap == nil {
		return tables, order
	}
	counts := make(map[tableKey]int)
	for _, sc := range snap.Schemas {
		for _, t := range sc.Tables {
			base := tableKey{schemaName: sc.Name, tableName: t.Name}
			counts[base]++
			key := base
			if counts[base] > 1 {
				key.tableName = fmt.Sprintf("%s#%d", t.Name, counts[base])
			}
			tables[key] = t
			order = append(order, key)
		}
	}
	return tables, order
}
