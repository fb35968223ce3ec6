package schema

import (
	"sort"
	"strings"
	"time"
)

// Normalize converts a raw introspection payload into a canonical
// Snapshot. Two payload shapes are understood: an envelope object
// holding a "schemas" list, and a legacy object keyed by schema name.
// The envelope wins when its key is present; the legacy form is used
// otherwise, with schemas ordered by name since the source object
// carries no order of its own.
//
// Normalization is total. Entries without a usable name are dropped,
// malformed fields collapse to their fallback values, and any payload
// that is not an object at the top level yields an empty snapshot.
// Normalize never returns an error.
func Normalize(raw any) *Snapshot {
	snap := &Snapshot{Schemas: []Schema{}}
	root, ok := asMap(raw)
	if !ok {
		return snap
	}
	snap.CapturedAt = timeValue(root, "capturedAt")

	if _, isEnvelope := root["schemas"]; isEnvelope {
		for _, entry := range listItems(root, "schemas") {
			body, ok := asMap(entry)
			if !ok {
				continue
			}
			name, ok := identifier(body, "name")
			if !ok {
				continue
			}
			snap.Schemas = append(snap.Schemas, normalizeSchema(name, body))
		}
		return snap
	}

	names := make([]string, 0, len(root))
	bodies := make(map[string]map[string]any, len(root))
	for key, value := range root {
		body, ok := asMap(value)
		if !ok {
			continue
		}
		name := strings.TrimSpace(key)
		if name == "" {
			continue
		}
		names = append(names, name)
		bodies[name] = body
	}
	sort.Strings(names)
	for _, name := range names {
		snap.Schemas = append(snap.Schemas, normalizeSchema(name, bodies[name]))
	}
	return snap
}

// NormalizeAt normalizes raw and stamps the snapshot with capturedAt,
// overriding any timestamp the payload itself carries.
func NormalizeAt(raw any, capturedAt time.Time) *Snapshot {
	snap := Normalize(raw)
	snap.CapturedAt = capturedAt
	return snap
}

func normalizeSchema(name string, body map[string]any) Schema {
	sc := Schema{Name: name}

	for _, entry := range listItems(body, "tables") {
		m, ok := asMap(entry)
		if !ok {
			continue
		}
		t, ok := normalizeTable(m)
		if !ok {
			continue
		}
		sc.Tables = append(sc.Tables, t)
	}

	for _, entry := range listItems(body, "views") {
		m, ok := asMap(entry)
		if !ok {
			continue
		}
		viewName, ok := identifier(m, "name")
		if !ok {
			continue
		}
		sc.Views = append(sc.Views, View{
			Name:       viewName,
			Definition: optionalString(m, "definition"),
		})
	}

	// Schemas that spell out functions and procedures directly keep
	// that split. Only when neither key holds a list is the combined
	// routines list consulted, routed by each entry's kind.
	functions, haveFunctions := rawList(body, "functions")
	procedures, haveProcedures := rawList(body, "procedures")
	if haveFunctions || haveProcedures {
		sc.Functions = normalizeRoutines(functions, "function")
		sc.Procedures = normalizeRoutines(procedures, "procedure")
		return sc
	}
	for _, entry := range listItems(body, "routines") {
		m, ok := asMap(entry)
		if !ok {
			continue
		}
		r, ok := normalizeRoutine(m, "function")
		if !ok {
			continue
		}
		if r.Kind == "procedure" {
			sc.Procedures = append(sc.Procedures, r)
		} else {
			sc.Functions = append(sc.Functions, r)
		}
	}
	return sc
}

func normalizeTable(m map[string]any) (Table, bool) {
	name, ok := identifier(m, "name")
	if !ok {
		return Table{}, false
	}
	t := Table{Name: name}

	for _, entry := range listItems(m, "columns") {
		cm, ok := asMap(entry)
		if !ok {
			continue
		}
		columnName, ok := identifier(cm, "name")
		if !ok {
			continue
		}
		t.Columns = append(t.Columns, Column{
			Name:     columnName,
			DataType: optionalString(cm, "dataType"),
			Nullable: boolValue(cm["nullable"], true),
			Default:  optionalString(cm, "default"),
		})
	}

	for _, entry := range listItems(m, "constraints") {
		cm, ok := asMap(entry)
		if !ok {
			continue
		}
		constraintName, ok := identifier(cm, "name")
		if !ok {
			continue
		}
		t.Constraints = append(t.Constraints, Constraint{
			Name:       constraintName,
			Type:       optionalString(cm, "type"),
			Columns:    stringItems(cm["columns"]),
			Definition: optionalString(cm, "definition"),
		})
	}

	for _, entry := range listItems(m, "indexes") {
		im, ok := asMap(entry)
		if !ok {
			continue
		}
		indexName, ok := identifier(im, "name")
		if !ok {
			continue
		}
		t.Indexes = append(t.Indexes, Index{
			Name:      indexName,
			Columns:   stringItems(im["columns"]),
			Unique:    boolValue(im["unique"], false),
			Primary:   boolValue(im["primary"], false),
			Method:    optionalString(im, "method"),
			Predicate: optionalString(im, "predicate"),
		})
	}

	for _, entry := range listItems(m, "foreignKeys") {
		fm, ok := asMap(entry)
		if !ok {
			continue
		}
		fkName, ok := identifier(fm, "name")
		if !ok {
			continue
		}
		t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
			Name:              fkName,
			Columns:           stringItems(fm["columns"]),
			ReferencedSchema:  optionalString(fm, "referencedSchema"),
			ReferencedTable:   optionalString(fm, "referencedTable"),
			ReferencedColumns: stringItems(fm["referencedColumns"]),
			OnUpdate:          optionalString(fm, "onUpdate"),
			OnDelete:          optionalString(fm, "onDelete"),
		})
	}

	// A flat primaryKey column list is folded into the constraint set,
	// but never on top of a primary key the payload already declared.
	if pk := stringItems(m["primaryKey"]); len(pk) > 0 && !hasConstraintType(t.Constraints, "PRIMARY KEY") {
		synthesized := Constraint{
			Name:    name + "_pkey",
			Type:    "PRIMARY KEY",
			Columns: pk,
		}
		t.Constraints = append([]Constraint{synthesized}, t.Constraints...)
	}

	return t, true
}

func normalizeRoutines(entries []any, defaultKind string) []Routine {
	var routines []Routine
	for _, entry := range entries {
		m, ok := asMap(entry)
		if !ok {
			continue
		}
		r, ok := normalizeRoutine(m, defaultKind)
		if !ok {
			continue
		}
		routines = append(routines, r)
	}
	return routines
}

func normalizeRoutine(m map[string]any, defaultKind string) (Routine, bool) {
	name, ok := identifier(m, "name")
	if !ok {
		return Routine{}, false
	}
	kind := strings.ToLower(optionalString(m, "kind"))
	if kind == "" {
		kind = defaultKind
	}
	return Routine{
		Name:       name,
		Kind:       kind,
		Signature:  optionalString(m, "signature"),
		ReturnType: optionalString(m, "returnType"),
		Language:   optionalString(m, "language"),
	}, true
}

func hasConstraintType(constraints []Constraint, constraintType string) bool {
	for _, c := range constraints {
		if strings.EqualFold(c.Type, constraintType) {
			return true
		}
	}
	return false
}
