package commands

import (
	"fmt"
	"strings"

	"github.com/schemawatch/schemawatch/internal/cli/output"
	"github.com/schemawatch/schemawatch/pkg/diff"
	"github.com/schemawatch/schemawatch/pkg/graph"
)

// diffDocument is the JSON shape of a rendered diff: the four change
// lists plus labels and summary counts.
type diffDocument struct {
	Previous   string       `json:"previous"`
	Next       string       `json:"next"`
	HasChanges bool         `json:"hasChanges"`
	Summary    diff.Summary `json:"summary"`
	*diff.Diff
}

// renderDiff writes a diff in the renderer's mode.
func renderDiff(r *output.Renderer, previousLabel, nextLabel string, d *diff.Diff) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(diffDocument{
			Previous:   previousLabel,
			Next:       nextLabel,
			HasChanges: d.HasChanges(),
			Summary:    d.Summarize(),
			Diff:       d,
		})
	}

	r.Header(fmt.Sprintf("Schema drift: %s -> %s", previousLabel, nextLabel))

	if !d.HasChanges() {
		r.Success("No drift detected.")
		return nil
	}

	if len(d.Tables) > 0 {
		rows := make([][]string, 0, len(d.Tables))
		for _, c := range d.Tables {
			rows = append(rows, []string{c.SchemaName, c.TableName, string(c.Kind), tableDetail(c)})
		}
		r.Header("Tables")
		r.Table([]string{"schema", "table", "kind", "constraints"}, rows)
	}

	if len(d.Columns) > 0 {
		rows := make([][]string, 0, len(d.Columns))
		for _, c := range d.Columns {
			rows = append(rows, []string{c.SchemaName, c.TableName, c.ColumnName, string(c.Kind), columnDetail(c)})
		}
		r.Header("Columns")
		r.Table([]string{"schema", "table", "column", "kind", "detail"}, rows)
	}

	if len(d.Indexes) > 0 {
		rows := make([][]string, 0, len(d.Indexes))
		for _, c := range d.Indexes {
			rows = append(rows, []string{c.SchemaName, c.TableName, c.IndexName, string(c.Kind), indexDetail(c)})
		}
		r.Header("Indexes")
		r.Table([]string{"schema", "table", "index", "kind", "detail"}, rows)
	}

	if len(d.ForeignKeys) > 0 {
		rows := make([][]string, 0, len(d.ForeignKeys))
		for _, c := range d.ForeignKeys {
			rows = append(rows, []string{c.SchemaName, c.TableName, c.ForeignKeyName, string(c.Kind), foreignKeyDetail(c)})
		}
		r.Header("Foreign Keys")
		r.Table([]string{"schema", "table", "foreign key", "kind", "detail"}, rows)
	}

	s := d.Summarize()
	r.Printf("\n%d added, %d removed, %d changed\n", s.Added, s.Removed, s.Changed)
	return nil
}

func tableDetail(c diff.TableChange) string {
	switch c.Kind {
	case diff.Changed:
		return fmt.Sprintf("%d -> %d", len(c.PreviousConstraints), len(c.NextConstraints))
	case diff.Removed:
		return fmt.Sprintf("%d", len(c.PreviousConstraints))
	default:
		return fmt.Sprintf("%d", len(c.NextConstraints))
	}
}

func columnDetail(c diff.ColumnChange) string {
	switch c.Kind {
	case diff.Changed:
		return fmt.Sprintf("%s -> %s", c.Previous.DataType, c.Next.DataType)
	case diff.Removed:
		return c.Previous.DataType
	default:
		return c.Next.DataType
	}
}

func indexDetail(c diff.IndexChange) string {
	idx := c.Next
	if idx == nil {
		idx = c.Previous
	}
	detail := "(" + strings.Join(idx.Columns, ", ") + ")"
	if idx.Unique {
		detail += " unique"
	}
	return detail
}

func foreignKeyDetail(c diff.ForeignKeyChange) string {
	fk := c.Next
	if fk == nil {
		fk = c.Previous
	}
	return fmt.Sprintf("(%s) -> %s.%s(%s)",
		strings.Join(fk.Columns, ", "),
		fk.ReferencedSchema, fk.ReferencedTable,
		strings.Join(fk.ReferencedColumns, ", "))
}

// graphDocument is the JSON shape of a rendered graph. The count keys
// must not shadow the embedded graph's nodes and edges lists.
type graphDocument struct {
	Snapshot string `json:"snapshot"`
	Tables   int    `json:"tableCount"`
	Edges    int    `json:"edgeCount"`
	*graph.Graph
}

// renderGraph writes a dependency graph in the renderer's mode.
func renderGraph(r *output.Renderer, label string, g *graph.Graph) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(graphDocument{
			Snapshot: label,
			Tables:   g.NodeCount(),
			Edges:    g.EdgeCount(),
			Graph:    g,
		})
	}

	r.Header(fmt.Sprintf("Dependency graph: %s", label))

	rows := make([][]string, 0, g.NodeCount())
	for _, id := range g.TableIDs() {
		node, _ := g.Node(id)
		rows = append(rows, []string{
			node.Ref.SchemaName + "." + node.Ref.TableName,
			joinRefs(node.Dependencies),
			joinRefs(node.Dependents),
		})
	}
	r.Table([]string{"table", "depends on", "used by"}, rows)

	if dangling := g.DanglingTargets(); len(dangling) > 0 {
		r.Println()
		r.Header("Unresolved references")
		for _, ref := range dangling {
			r.Println("  " + ref.SchemaName + "." + ref.TableName)
		}
	}

	r.Printf("\n%d tables, %d foreign-key edges\n", g.NodeCount(), g.EdgeCount())
	return nil
}

func joinRefs(refs []graph.TableRef) string {
	if len(refs) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		parts = append(parts, ref.SchemaName+"."+ref.TableName)
	}
	return strings.Join(parts, ", ")
}
