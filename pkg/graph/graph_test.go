package graph

import (
	"reflect"
	"testing"

	"github.com/schemawatch/schemawatch/pkg/schema"
)

func commerceSnapshot() *schema.Snapshot {
	return &schema.Snapshot{
		Schemas: []schema.Schema{
			{
				Name: "public",
				Tables: []schema.Table{
					{Name: "users"},
					{
						Name: "orders",
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
			},
		},
	}
}

func TestNewTableRef_Quoting(t *testing.T) {
	tests := []struct {
		schemaName string
		tableName  string
		wantID     string
	}{
		{"public", "users", `"public"."users"`},
		{"dotted.schema", "t", `"dotted.schema"."t"`},
		{`we"ird`, "t", `"we""ird"."t"`},
		{"", "orphan", `""."orphan"`},
	}

	for _, tt := range tests {
		ref := NewTableRef(tt.schemaName, tt.tableName)
		if ref.ID != tt.wantID {
			t.Errorf("NewTableRef(%q, %q).ID = %q, want %q", tt.schemaName, tt.tableName, ref.ID, tt.wantID)
		}
	}
}

func TestBuild_ResolvedEdge(t *testing.T) {
	g := Build(commerceSnapshot())

	if g.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes, got %d", g.NodeCount())
	}
	if g.EdgeCount() != 1 {
		t.Fatalf("expected 1 edge, got %d", g.EdgeCount())
	}

	orders, ok := g.Lookup("public", "orders")
	if !ok {
		t.Fatal("orders node missing")
	}
	if len(orders.OutgoingForeignKeys) != 1 {
		t.Fatalf("expected 1 outgoing edge on orders, got %d", len(orders.OutgoingForeignKeys))
	}
	edge := orders.OutgoingForeignKeys[0]
	wantID := `"public"."orders"->"public"."users"#orders_user_id_fkey`
	if edge.ID != wantID {
		t.Errorf("edge id = %q, want %q", edge.ID, wantID)
	}
	if len(orders.Dependencies) != 1 || orders.Dependencies[0].TableName != "users" {
		t.Errorf("orders dependencies = %v, want users", orders.Dependencies)
	}

	users, ok := g.Lookup("public", "users")
	if !ok {
		t.Fatal("users node missing")
	}
	if len(users.IncomingForeignKeys) != 1 {
		t.Fatalf("expected 1 incoming edge on users, got %d", len(users.IncomingForeignKeys))
	}
	if len(users.Dependents) != 1 || users.Dependents[0].TableName != "orders" {
		t.Errorf("users dependents = %v, want orders", users.Dependents)
	}
	if len(users.OutgoingForeignKeys) != 0 || len(users.Dependencies) != 0 {
		t.Error("users should have no outgoing side")
	}

	if len(g.Outgoing[orders.Ref.ID]) != 1 {
		t.Error("outgoing lookup map missing orders edge")
	}
	if len(g.Incoming[users.Ref.ID]) != 1 {
		t.Error("incoming lookup map missing users edge")
	}
}

func TestBuild_DanglingTarget(t *testing.T) {
	snap := &schema.Snapshot{
		Schemas: []schema.Schema{
			{
				Name: "public",
				Tables: []schema.Table{
					{
						Name: "orders",
						ForeignKeys: []schema.ForeignKey{
							{Name: "orders_archive_fkey", ReferencedSchema: "archive", ReferencedTable: "old_orders"},
						},
					},
				},
			},
		},
	}

	g := Build(snap)

	if g.NodeCount() != 1 {
		t.Fatalf("dangling target must not synthesize a node, got %d nodes", g.NodeCount())
	}
	if g.EdgeCount() != 1 {
		t.Fatalf("dangling edge must be kept, got %d edges", g.EdgeCount())
	}

	orders, _ := g.Lookup("public", "orders")
	if len(orders.Dependencies) != 1 || orders.Dependencies[0].ID != `"archive"."old_orders"` {
		t.Errorf("dangling target should still appear in dependencies, got %v", orders.Dependencies)
	}

	if len(g.Incoming) != 0 {
		t.Error("incoming map must not record dangling targets")
	}

	dangling := g.DanglingTargets()
	if len(dangling) != 1 || dangling[0].ID != `"archive"."old_orders"` {
		t.Errorf("DanglingTargets = %v", dangling)
	}
}

func TestBuild_DistinctDependencies(t *testing.T) {
	snap := &schema.Snapshot{
		Schemas: []schema.Schema{
			{
				Name: "public",
				Tables: []schema.Table{
					{Name: "users"},
					{
						Name: "audits",
						ForeignKeys: []schema.ForeignKey{
							{Name: "audits_actor_fkey", ReferencedSchema: "public", ReferencedTable: "users"},
							{Name: "audits_subject_fkey", ReferencedSchema: "public", ReferencedTable: "users"},
						},
					},
				},
			},
		},
	}

	g := Build(snap)

	audits, _ := g.Lookup("public", "audits")
	if len(audits.OutgoingForeignKeys) != 2 {
		t.Errorf("both edges must be kept, got %d", len(audits.OutgoingForeignKeys))
	}
	if len(audits.Dependencies) != 1 {
		t.Errorf("dependencies must be distinct, got %v", audits.Dependencies)
	}

	users, _ := g.Lookup("public", "users")
	if len(users.IncomingForeignKeys) != 2 {
		t.Errorf("both incoming edges must be kept, got %d", len(users.IncomingForeignKeys))
	}
	if len(users.Dependents) != 1 {
		t.Errorf("dependents must be distinct, got %v", users.Dependents)
	}
}

func TestBuild_SelfReference(t *testing.T) {
	snap := &schema.Snapshot{
		Schemas: []schema.Schema{
			{
				Name: "public",
				Tables: []schema.Table{
					{
						Name: "employees",
						ForeignKeys: []schema.ForeignKey{
							{Name: "employees_manager_fkey", ReferencedSchema: "public", ReferencedTable: "employees"},
						},
					},
				},
			},
		},
	}

	g := Build(snap)

	node, _ := g.Lookup("public", "employees")
	if len(node.OutgoingForeignKeys) != 1 || len(node.IncomingForeignKeys) != 1 {
		t.Error("self-reference must appear on both sides of the node")
	}
	if len(node.Dependencies) != 1 || node.Dependencies[0].ID != node.Ref.ID {
		t.Errorf("self dependency missing, got %v", node.Dependencies)
	}
	if len(node.Dependents) != 1 || node.Dependents[0].ID != node.Ref.ID {
		t.Errorf("self dependent missing, got %v", node.Dependents)
	}
}

func TestBuild_NilAndEmpty(t *testing.T) {
	for name, snap := range map[string]*schema.Snapshot{
		"nil":   nil,
		"empty": {Schemas: []schema.Schema{}},
	} {
		g := Build(snap)
		if g == nil || g.NodeCount() != 0 || g.EdgeCount() != 0 {
			t.Errorf("%s snapshot should build an empty graph", name)
		}
	}
}

func TestGraph_TableIDs_Sorted(t *testing.T) {
	snap := &schema.Snapshot{
		Schemas: []schema.Schema{
			{Name: "zeta", Tables: []schema.Table{{Name: "t"}}},
			{Name: "alpha", Tables: []schema.Table{{Name: "t"}}},
		},
	}

	g := Build(snap)

	want := []string{`"alpha"."t"`, `"zeta"."t"`}
	if got := g.TableIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("TableIDs = %v, want %v", got, want)
	}
}
