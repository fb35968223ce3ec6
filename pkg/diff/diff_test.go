package diff

import (
	"testing"

	"github.com/schemawatch/schemawatch/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snap(schemas ...schema.Schema) *schema.Snapshot {
	return &schema.Snapshot{Schemas: schemas}
}

// commerce returns a snapshot with a users table and an orders table
// referencing it. Mutate the copy each test builds for its variant.
func commerce() *schema.Snapshot {
	return snap(schema.Schema{
		Name: "public",
		Tables: []schema.Table{
			{
				Name: "users",
				Columns: []schema.Column{
					{Name: "id", DataType: "BIGINT", Nullable: false},
					{Name: "email", DataType: "TEXT", Nullable: false},
				},
				Constraints: []schema.Constraint{
					{Name: "users_pkey", Type: "PRIMARY KEY", Columns: []string{"id"}},
				},
				Indexes: []schema.Index{
					{Name: "users_email_idx", Columns: []string{"email"}, Unique: true, Method: "btree"},
				},
			},
			{
				Name: "orders",
				Columns: []schema.Column{
					{Name: "id", DataType: "BIGINT", Nullable: false},
					{Name: "user_id", DataType: "BIGINT", Nullable: false},
				},
				Indexes: []schema.Index{
					{Name: "orders_user_idx", Columns: []string{"user_id"}},
				},
				ForeignKeys: []schema.ForeignKey{
					{
						Name:              "orders_user_id_fkey",
						Columns:           []string{"user_id"},
						ReferencedSchema:  "public",
						ReferencedTable:   "users",
						ReferencedColumns: []string{"id"},
						OnDelete:          "CASCADE",
					},
				},
			},
		},
	})
}

func TestSnapshots_Identity(t *testing.T) {
	s := commerce()
	d := Snapshots(s, s)

	assert.False(t, d.HasChanges())
	assert.Zero(t, d.Count())
	assert.Empty(t, d.Tables)
	assert.Empty(t, d.Columns)
	assert.Empty(t, d.Indexes)
	assert.Empty(t, d.ForeignKeys)
}

func TestSnapshots_NilTreatedAsEmpty(t *testing.T) {
	s := commerce()

	d := Snapshots(nil, s)

	require.Len(t, d.Tables, 2, "one added record per table")
	for _, tc := range d.Tables {
		assert.Equal(t, Added, tc.Kind)
		assert.Nil(t, tc.PreviousConstraints)
	}
	assert.Len(t, d.Columns, 4)
	assert.Len(t, d.Indexes, 2)
	assert.Len(t, d.ForeignKeys, 1)
	for _, c := range d.Columns {
		assert.Equal(t, Added, c.Kind)
		assert.Nil(t, c.Previous)
		assert.NotNil(t, c.Next)
	}

	reverse := Snapshots(s, nil)
	assert.Equal(t, d.Count(), reverse.Count())
	for _, tc := range reverse.Tables {
		assert.Equal(t, Removed, tc.Kind)
	}
}

func TestSnapshots_RemovedTableCascade(t *testing.T) {
	previous := commerce()
	next := snap(schema.Schema{Name: "public", Tables: previous.Schemas[0].Tables[:1]})

	d := Snapshots(previous, next)

	require.Len(t, d.Tables, 1)
	assert.Equal(t, "orders", d.Tables[0].TableName)
	assert.Equal(t, Removed, d.Tables[0].Kind)

	require.Len(t, d.Columns, 2)
	for _, c := range d.Columns {
		assert.Equal(t, "orders", c.TableName)
		assert.Equal(t, Removed, c.Kind)
		assert.NotNil(t, c.Previous)
		assert.Nil(t, c.Next)
	}
	require.Len(t, d.Indexes, 1)
	assert.Equal(t, "orders_user_idx", d.Indexes[0].IndexName)
	require.Len(t, d.ForeignKeys, 1)
	assert.Equal(t, "orders_user_id_fkey", d.ForeignKeys[0].ForeignKeyName)
	assert.Equal(t, Removed, d.ForeignKeys[0].Kind)
}

func TestSnapshots_ColumnChanges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*schema.Column)
		changed bool
	}{
		{"identical", func(c *schema.Column) {}, false},
		{"type case", func(c *schema.Column) { c.DataType = "bigint" }, false},
		{"type whitespace", func(c *schema.Column) { c.DataType = "BIGINT " }, false},
		{"type change", func(c *schema.Column) { c.DataType = "INTEGER" }, true},
		{"nullable flip", func(c *schema.Column) { c.Nullable = true }, true},
		{"default added", func(c *schema.Column) { c.Default = "0" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			previous := commerce()
			next := commerce()
			tt.mutate(&next.Schemas[0].Tables[0].Columns[0])

			d := Snapshots(previous, next)

			if !tt.changed {
				assert.False(t, d.HasChanges())
				return
			}
			require.Len(t, d.Columns, 1)
			c := d.Columns[0]
			assert.Equal(t, Changed, c.Kind)
			assert.Equal(t, "id", c.ColumnName)
			assert.Equal(t, "users", c.TableName)
			require.NotNil(t, c.Previous)
			require.NotNil(t, c.Next)
		})
	}
}

func TestSnapshots_DefaultWhitespaceInsensitive(t *testing.T) {
	previous := commerce()
	next := commerce()
	previous.Schemas[0].Tables[0].Columns[1].Default = "now() AT TIME ZONE 'utc'"
	next.Schemas[0].Tables[0].Columns[1].Default = "NOW()  at time zone 'utc'"

	assert.False(t, Snapshots(previous, next).HasChanges())
}

func TestSnapshots_IndexChanges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*schema.Index)
		changed bool
	}{
		{"method case", func(i *schema.Index) { i.Method = "BTREE" }, false},
		{"method change", func(i *schema.Index) { i.Method = "hash" }, true},
		{"unique flip", func(i *schema.Index) { i.Unique = false }, true},
		{"primary flip", func(i *schema.Index) { i.Primary = true }, true},
		{"column added", func(i *schema.Index) { i.Columns = append(i.Columns, "id") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			previous := commerce()
			next := commerce()
			tt.mutate(&next.Schemas[0].Tables[0].Indexes[0])

			d := Snapshots(previous, next)

			if !tt.changed {
				assert.False(t, d.HasChanges())
				return
			}
			require.Len(t, d.Indexes, 1)
			assert.Equal(t, Changed, d.Indexes[0].Kind)
			assert.Equal(t, "users_email_idx", d.Indexes[0].IndexName)
		})
	}
}

func TestSnapshots_IndexColumnOrderSensitive(t *testing.T) {
	previous := commerce()
	next := commerce()
	previous.Schemas[0].Tables[0].Indexes[0].Columns = []string{"email", "id"}
	next.Schemas[0].Tables[0].Indexes[0].Columns = []string{"id", "email"}

	d := Snapshots(previous, next)

	require.Len(t, d.Indexes, 1)
	assert.Equal(t, Changed, d.Indexes[0].Kind)
}

func TestSnapshots_ForeignKeyChanges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*schema.ForeignKey)
		changed bool
	}{
		{"action case", func(fk *schema.ForeignKey) { fk.OnDelete = "cascade" }, false},
		{"action change", func(fk *schema.ForeignKey) { fk.OnDelete = "SET NULL" }, true},
		{"target change", func(fk *schema.ForeignKey) { fk.ReferencedTable = "accounts" }, true},
		{"target schema change", func(fk *schema.ForeignKey) { fk.ReferencedSchema = "archive" }, true},
		{"columns change", func(fk *schema.ForeignKey) { fk.Columns = []string{"uid"} }, true},
		{"referenced columns change", func(fk *schema.ForeignKey) { fk.ReferencedColumns = []string{"uuid"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			previous := commerce()
			next := commerce()
			tt.mutate(&next.Schemas[0].Tables[1].ForeignKeys[0])

			d := Snapshots(previous, next)

			if !tt.changed {
				assert.False(t, d.HasChanges())
				return
			}
			require.Len(t, d.ForeignKeys, 1)
			assert.Equal(t, Changed, d.ForeignKeys[0].Kind)
			assert.Equal(t, "orders_user_id_fkey", d.ForeignKeys[0].ForeignKeyName)
		})
	}
}

func TestSnapshots_TableConstraintChange(t *testing.T) {
	t.Run("reorder is not a change", func(t *testing.T) {
		previous := commerce()
		next := commerce()
		extra := schema.Constraint{Name: "users_email_key", Type: "UNIQUE", Columns: []string{"email"}}
		previous.Schemas[0].Tables[0].Constraints = append(previous.Schemas[0].Tables[0].Constraints, extra)
		next.Schemas[0].Tables[0].Constraints = []schema.Constraint{
			extra,
			previous.Schemas[0].Tables[0].Constraints[0],
		}

		assert.False(t, Snapshots(previous, next).HasChanges())
	})

	t.Run("set change is reported with both sides", func(t *testing.T) {
		previous := commerce()
		next := commerce()
		next.Schemas[0].Tables[0].Constraints = append(next.Schemas[0].Tables[0].Constraints,
			schema.Constraint{Name: "users_email_key", Type: "UNIQUE", Columns: []string{"email"}})

		d := Snapshots(previous, next)

		require.Len(t, d.Tables, 1)
		tc := d.Tables[0]
		assert.Equal(t, Changed, tc.Kind)
		assert.Equal(t, "users", tc.TableName)
		assert.Len(t, tc.PreviousConstraints, 1)
		assert.Len(t, tc.NextConstraints, 2)
	})
}

func TestSnapshots_DuplicateNamesMatchPairwise(t *testing.T) {
	build := func(secondColumns []string) *schema.Snapshot {
		return snap(schema.Schema{
			Name: "public",
			Tables: []schema.Table{
				{
					Name: "t",
					Indexes: []schema.Index{
						{Name: "idx", Columns: []string{"a"}},
						{Name: "idx", Columns: secondColumns},
					},
				},
			},
		})
	}

	previous := build([]string{"b"})
	next := build([]string{"c"})

	d := Snapshots(previous, next)

	require.Len(t, d.Indexes, 1, "first occurrences are identical, only the second pair differs")
	change := d.Indexes[0]
	assert.Equal(t, "idx#2", change.IndexName)
	assert.Equal(t, Changed, change.Kind)

	removedSecond := Snapshots(previous, snap(schema.Schema{
		Name:   "public",
		Tables: []schema.Table{{Name: "t", Indexes: previous.Schemas[0].Tables[0].Indexes[:1]}},
	}))
	require.Len(t, removedSecond.Indexes, 1)
	assert.Equal(t, "idx#2", removedSecond.Indexes[0].IndexName)
	assert.Equal(t, Removed, removedSecond.Indexes[0].Kind)
}

func TestSnapshots_ComplementSymmetry(t *testing.T) {
	previous := commerce()
	next := commerce()
	// One change of every flavor.
	next.Schemas[0].Tables[0].Columns[1].DataType = "VARCHAR(320)"
	next.Schemas[0].Tables[0].Columns = append(next.Schemas[0].Tables[0].Columns,
		schema.Column{Name: "created_at", DataType: "TIMESTAMPTZ", Nullable: false})
	next.Schemas[0].Tables = append(next.Schemas[0].Tables, schema.Table{
		Name:    "invoices",
		Columns: []schema.Column{{Name: "id", DataType: "BIGINT", Nullable: false}},
	})

	forward := Snapshots(previous, next)
	backward := Snapshots(next, previous)

	assert.Equal(t, forward.Count(), backward.Count())
	assert.Equal(t, mirrored(forward), backward)
}

// mirrored swaps the direction of every entry so a forward diff can be
// compared against its backward counterpart.
func mirrored(d *Diff) *Diff {
	flip := func(k Kind) Kind {
		switch k {
		case Added:
			return Removed
		case Removed:
			return Added
		default:
			return Changed
		}
	}
	m := &Diff{}
	for _, c := range d.Tables {
		c.Kind = flip(c.Kind)
		c.PreviousConstraints, c.NextConstraints = c.NextConstraints, c.PreviousConstraints
		m.Tables = append(m.Tables, c)
	}
	for _, c := range d.Columns {
		c.Kind = flip(c.Kind)
		c.Previous, c.Next = c.Next, c.Previous
		m.Columns = append(m.Columns, c)
	}
	for _, c := range d.Indexes {
		c.Kind = flip(c.Kind)
		c.Previous, c.Next = c.Next, c.Previous
		m.Indexes = append(m.Indexes, c)
	}
	for _, c := range d.ForeignKeys {
		c.Kind = flip(c.Kind)
		c.Previous, c.Next = c.Next, c.Previous
		m.ForeignKeys = append(m.ForeignKeys, c)
	}
	m.sort()
	return m
}

func TestSnapshots_Ordering(t *testing.T) {
	previous := snap(
		schema.Schema{Name: "zeta", Tables: []schema.Table{
			{Name: "t", Columns: []schema.Column{{Name: "gone", DataType: "INT"}}},
		}},
		schema.Schema{Name: "alpha", Tables: []schema.Table{
			{Name: "b", Columns: []schema.Column{{Name: "x", DataType: "INT"}}},
		}},
	)
	next := snap(
		schema.Schema{Name: "zeta", Tables: []schema.Table{
			{Name: "t", Columns: []schema.Column{{Name: "fresh", DataType: "INT"}}},
		}},
		schema.Schema{Name: "alpha", Tables: []schema.Table{
			{Name: "a", Columns: []schema.Column{{Name: "x", DataType: "INT"}}},
			{Name: "b", Columns: []schema.Column{{Name: "x", DataType: "TEXT"}}},
		}},
	)

	d := Snapshots(previous, next)

	var got []string
	for _, c := range d.Columns {
		got = append(got, c.SchemaName+"/"+c.TableName+"/"+c.ColumnName+"/"+string(c.Kind))
	}
	want := []string{
		"alpha/a/x/added",
		"alpha/b/x/changed",
		"zeta/t/fresh/added",
		"zeta/t/gone/removed",
	}
	assert.Equal(t, want, got)
}

func TestSnapshots_DeterministicUnderShuffle(t *testing.T) {
	shuffled := commerce()
	// Reverse table and column order; identity is positional only for
	// duplicate names, so the result must not move.
	tables := shuffled.Schemas[0].Tables
	tables[0], tables[1] = tables[1], tables[0]
	cols := tables[1].Columns
	cols[0], cols[1] = cols[1], cols[0]

	next := commerce()
	next.Schemas[0].Tables[0].Columns[0].DataType = "UUID"

	fromOriginal := Snapshots(commerce(), next)
	fromShuffled := Snapshots(shuffled, next)

	assert.Equal(t, fromOriginal, fromShuffled)
}
