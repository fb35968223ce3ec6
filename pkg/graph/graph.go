// Package graph derives the foreign-key dependency graph of a schema
// snapshot. Tables become nodes, foreign keys become directed edges
// from the owning table to the referenced table.
package graph

import (
	"sort"
	"strings"

	"github.com/schemawatch/schemawatch/pkg/schema"
)

// TableRef identifies a table by schema and name together with its
// canonical graph id.
type TableRef struct {
	SchemaName string `json:"schemaName"`
	TableName  string `json:"tableName"`
	ID         string `json:"id"`
}

// NewTableRef builds the canonical ref for a schema and table pair.
// The id quotes both parts so that dots inside identifiers cannot
// collide with the separator.
func NewTableRef(schemaName, tableName string) TableRef {
	return TableRef{
		SchemaName: schemaName,
		TableName:  tableName,
		ID:         quoteIdent(schemaName) + "." + quoteIdent(tableName),
	}
}

// quoteIdent wraps name in double quotes, doubling any embedded quote.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Edge is one foreign key resolved into graph form. Target may name a
// table that does not exist in the snapshot; such edges are kept so
// consumers can decide how to treat dangling references.
type Edge struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Source            TableRef `json:"source"`
	Target            TableRef `json:"target"`
	Columns           []string `json:"columns,omitempty"`
	ReferencedColumns []string `json:"referencedColumns,omitempty"`
	OnUpdate          string   `json:"onUpdate,omitempty"`
	OnDelete          string   `json:"onDelete,omitempty"`
}

// Node is a table together with its foreign-key neighborhood.
// Dependencies and Dependents hold distinct table refs in first-seen
// order; the edge lists keep every foreign key, duplicates included.
type Node struct {
	Ref                 TableRef   `json:"ref"`
	OutgoingForeignKeys []Edge     `json:"outgoingForeignKeys,omitempty"`
	IncomingForeignKeys []Edge     `json:"incomingForeignKeys,omitempty"`
	Dependencies        []TableRef `json:"dependencies,omitempty"`
	Dependents          []TableRef `json:"dependents,omitempty"`
}

// Graph indexes every table of one snapshot by canonical id.
type Graph struct {
	Nodes map[string]*Node `json:"nodes"`
	Edges []Edge           `json:"edges,omitempty"`

	// Outgoing and Incoming mirror the per-node edge lists for direct
	// lookup by table id. Dangling targets never appear in Incoming
	// because no node exists to receive the edge.
	Outgoing map[string][]Edge `json:"outgoingByTable,omitempty"`
	Incoming map[string][]Edge `json:"incomingByTable,omitempty"`
}

// Build derives the dependency graph for snap. A nil snapshot yields
// an empty graph. Foreign keys whose target is missing from the
// snapshot still produce edges; no node is synthesized for them.
func Build(snap *schema.Snapshot) *Graph {
	g := &Graph{
		Nodes:    make(map[string]*Node),
		Outgoing: make(map[string][]Edge),
		Incoming: make(map[string][]Edge),
	}
	if snap == nil {
		return g
	}

	for _, sc := range snap.Schemas {
		for _, t := range sc.Tables {
			ref := NewTableRef(sc.Name, t.Name)
			if _, exists := g.Nodes[ref.ID]; !exists {
				g.Nodes[ref.ID] = &Node{Ref: ref}
			}
		}
	}

	for _, sc := range snap.Schemas {
		for _, t := range sc.Tables {
			source := NewTableRef(sc.Name, t.Name)
			node := g.Nodes[source.ID]
			for _, fk := range t.ForeignKeys {
				target := NewTableRef(fk.ReferencedSchema, fk.ReferencedTable)
				edge := Edge{
					ID:                source.ID + "->" + target.ID + "#" + fk.Name,
					Name:              fk.Name,
					Source:            source,
					Target:            target,
					Columns:           fk.Columns,
					ReferencedColumns: fk.ReferencedColumns,
					OnUpdate:          fk.OnUpdate,
					OnDelete:          fk.OnDelete,
				}

				g.Edges = append(g.Edges, edge)
				node.OutgoingForeignKeys = append(node.OutgoingForeignKeys, edge)
				g.Outgoing[source.ID] = append(g.Outgoing[source.ID], edge)
				if !containsRef(node.Dependencies, target.ID) {
					node.Dependencies = append(node.Dependencies, target)
				}

				targetNode, resolved := g.Nodes[target.ID]
				if !resolved {
					continue
				}
				targetNode.IncomingForeignKeys = append(targetNode.IncomingForeignKeys, edge)
				g.Incoming[target.ID] = append(g.Incoming[target.ID], edge)
				if !containsRef(targetNode.Dependents, source.ID) {
					targetNode.Dependents = append(targetNode.Dependents, source)
				}
			}
		}
	}

	return g
}

// Node returns the node with the given canonical id.
func (g *Graph) Node(id string) (*Node, bool) {
	node, exists := g.Nodes[id]
	return node, exists
}

// Lookup returns the node for a schema and table pair.
func (g *Graph) Lookup(schemaName, tableName string) (*Node, bool) {
	return g.Node(NewTableRef(schemaName, tableName).ID)
}

// TableIDs returns every node id in sorted order.
func (g *Graph) TableIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NodeCount returns the number of tables in the graph.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of foreign-key edges, dangling included.
func (g *Graph) EdgeCount() int {
	return len(g.Edges)
}

// DanglingTargets returns the distinct refs of edge targets that no
// node resolves, sorted by id.
func (g *Graph) DanglingTargets() []TableRef {
	var dangling []TableRef
	for _, edge := range g.Edges {
		if _, resolved := g.Nodes[edge.Target.ID]; resolved {
			continue
		}
		if !containsRef(dangling, edge.Target.ID) {
			dangling = append(dangling, edge.Target)
		}
	}
	sort.Slice(dangling, func(i, j int) bool {
		return dangling[i].ID < dangling[j].ID
	})
	return dangling
}

// containsRef checks if refs already holds the given table id.
func containsRef(refs []TableRef, id string) bool {
	for _, ref := range refs {
		if ref.ID == id {
			return true
		}
	}
	return false
}
