package diff

import (
	"slices"
	"sort"
	"strings"

	"github.com/schemawatch/schemawatch/pkg/schema"
)

// normalizeText lowercases s and collapses whitespace runs into single
// spaces, so "TIMESTAMP  WITH TIME ZONE" and "timestamp with time zone"
// compare equal. The empty string stays empty, which makes absent and
// blank values interchangeable.
func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func columnsEqual(a, b schema.Column) bool {
	return normalizeText(a.DataType) == normalizeText(b.DataType) &&
		a.Nullable == b.Nullable &&
		normalizeText(a.Default) == normalizeText(b.Default)
}

// indexesEqual compares index flags, the normalized access method, and
// the column list in order. Column order is significant for indexes.
func indexesEqual(a, b schema.Index) bool {
	return a.Unique == b.Unique &&
		a.Primary == b.Primary &&
		normalizeText(a.Method) == normalizeText(b.Method) &&
		slices.Equal(a.Columns, b.Columns)
}

func foreignKeysEqual(a, b schema.ForeignKey) bool {
	return a.Name == b.Name &&
		a.ReferencedSchema == b.ReferencedSchema &&
		a.ReferencedTable == b.ReferencedTable &&
		normalizeText(a.OnUpdate) == normalizeText(b.OnUpdate) &&
		normalizeText(a.OnDelete) == normalizeText(b.OnDelete) &&
		slices.Equal(a.Columns, b.Columns) &&
		slices.Equal(a.ReferencedColumns, b.ReferencedColumns)
}

// constraintFingerprint serializes a constraint set into an
// order-insensitive signature. Each constraint becomes one sortable
// line; the sorted lines identify the set.
func constraintFingerprint(constraints []schema.Constraint) string {
	lines := make([]string, len(constraints))
	for i, c := range constraints {
		lines[i] = c.Name + "::" + c.Type + "::" + c.Definition + "::" + strings.Join(c.Columns, "|")
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
