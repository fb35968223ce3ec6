package capture

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register("duckdb", func() Captor { return NewDuckDBCaptor() })
}

// DuckDBCaptor introspects DuckDB databases. Structural metadata comes
// from the duckdb_* catalog functions; columns come from
// information_schema, which preserves ordinal positions.
type DuckDBCaptor struct {
	db   *sql.DB
	cfg  Config
	opts Options
}

// NewDuckDBCaptor creates an unconnected DuckDB captor.
func NewDuckDBCaptor() *DuckDBCaptor {
	return &DuckDBCaptor{}
}

// Connect opens the DuckDB database at cfg.Path.
// Use ":memory:" as the path for an in-memory database.
func (c *DuckDBCaptor) Connect(ctx context.Context, cfg Config) error {
	opts, err := DecodeOptions(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	c.db = db
	c.cfg = cfg
	c.opts = opts
	return nil
}

// Close closes the DuckDB connection.
func (c *DuckDBCaptor) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// IsConnected reports whether Connect has succeeded.
func (c *DuckDBCaptor) IsConnected() bool {
	return c.db != nil
}

// DriverName returns the registry name of this captor.
func (c *DuckDBCaptor) DriverName() string {
	return "duckdb"
}

// Snapshot introspects every selected schema into a raw envelope payload.
func (c *DuckDBCaptor) Snapshot(ctx context.Context) (map[string]any, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	schemaNames, err := c.schemaNames(ctx)
	if err != nil {
		return nil, err
	}

	schemas := make([]any, 0, len(schemaNames))
	for _, name := range schemaNames {
		sc, err := c.captureSchema(ctx, name)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, sc)
	}
	return map[string]any{"schemas": schemas}, nil
}

func (c *DuckDBCaptor) schemaNames(ctx context.Context) ([]string, error) {
	if filter := schemaFilter(c.cfg, c.opts); filter != nil {
		return filter, nil
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT schema_name
		FROM duckdb_schemas()
		WHERE NOT internal AND database_name = current_database()
		ORDER BY schema_name`)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *DuckDBCaptor) captureSchema(ctx context.Context, schemaName string) (map[string]any, error) {
	sc := map[string]any{"name": schemaName}

	tableNames, err := c.tableNames(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	tables := make([]any, 0, len(tableNames))
	for _, tableName := range tableNames {
		table, err := c.captureTable(ctx, schemaName, tableName)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	if len(tables) > 0 {
		sc["tables"] = tables
	}

	if c.opts.IncludeViews {
		views, err := c.captureViews(ctx, schemaName)
		if err != nil {
			return nil, err
		}
		if len(views) > 0 {
			sc["views"] = views
		}
	}

	if c.opts.IncludeRoutines {
		routines, err := c.captureMacros(ctx, schemaName)
		if err != nil {
			return nil, err
		}
		if len(routines) > 0 {
			sc["routines"] = routines
		}
	}

	return sc, nil
}

func (c *DuckDBCaptor) tableNames(ctx context.Context, schemaName string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT table_name
		FROM duckdb_tables()
		WHERE schema_name = ? AND NOT internal
		ORDER BY table_name`, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", schemaName, err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *DuckDBCaptor) captureTable(ctx context.Context, schemaName, tableName string) (map[string]any, error) {
	table := map[string]any{"name": tableName}

	columns, err := c.captureColumns(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	if len(columns) > 0 {
		table["columns"] = columns
	}

	constraints, foreignKeys, err := c.captureConstraints(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	if len(constraints) > 0 {
		table["constraints"] = constraints
	}
	if len(foreignKeys) > 0 {
		table["foreignKeys"] = foreignKeys
	}

	indexes, err := c.captureIndexes(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	if len(indexes) > 0 {
		table["indexes"] = indexes
	}

	return table, nil
}

func (c *DuckDBCaptor) captureColumns(ctx context.Context, schemaName, tableName string) ([]any, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s.%s: %w", schemaName, tableName, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []any
	for rows.Next() {
		var (
			name, dataType, isNullable string
			columnDefault              sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &isNullable, &columnDefault); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		column := map[string]any{
			"name":     name,
			"dataType": dataType,
			"nullable": isNullable == "YES",
		}
		if columnDefault.Valid {
			column["default"] = columnDefault.String
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

// fkReferenceRe extracts the referenced relation and column list from a
// FOREIGN KEY constraint definition, e.g.
// "FOREIGN KEY (customer_id) REFERENCES customers(id)".
var fkReferenceRe = regexp.MustCompile(`REFERENCES\s+(?:"?([^"(\s.]+)"?\.)?"?([^"(\s.]+)"?\s*\(([^)]*)\)`)

// captureConstraints reads duckdb_constraints() and splits the rows
// into table constraints and foreign keys. DuckDB does not name
// constraints, so names are synthesized from the table, the constraint
// type, and the per-table constraint index.
func (c *DuckDBCaptor) captureConstraints(ctx context.Context, schemaName, tableName string) ([]any, []any, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT constraint_index, constraint_type, constraint_text, constraint_column_names
		FROM duckdb_constraints()
		WHERE schema_name = ? AND table_name = ?
		ORDER BY constraint_index`, schemaName, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("list constraints of %s.%s: %w", schemaName, tableName, err)
	}
	defer func() { _ = rows.Close() }()

	var constraints, foreignKeys []any
	for rows.Next() {
		var (
			index          int64
			kind, text     string
			rawColumnNames any
		)
		if err := rows.Scan(&index, &kind, &text, &rawColumnNames); err != nil {
			return nil, nil, fmt.Errorf("scan constraint: %w", err)
		}
		if strings.EqualFold(kind, "NOT NULL") {
			continue
		}

		name := fmt.Sprintf("%s_%s_%d", tableName, strings.ReplaceAll(strings.ToLower(kind), " ", "_"), index)
		columns := toStringList(rawColumnNames)

		if strings.EqualFold(kind, "FOREIGN KEY") {
			fk := map[string]any{
				"name":    name,
				"columns": columns,
			}
			if m := fkReferenceRe.FindStringSubmatch(text); m != nil {
				refSchema := m[1]
				if refSchema == "" {
					refSchema = schemaName
				}
				fk["referencedSchema"] = refSchema
				fk["referencedTable"] = m[2]
				fk["referencedColumns"] = splitColumnList(m[3])
			}
			foreignKeys = append(foreignKeys, fk)
			continue
		}

		constraints = append(constraints, map[string]any{
			"name":       name,
			"type":       kind,
			"definition": text,
			"columns":    columns,
		})
	}
	return constraints, foreignKeys, rows.Err()
}

// indexColumnGroupRe matches parenthesized groups in a CREATE INDEX
// statement; the last group is the column list.
var indexColumnGroupRe = regexp.MustCompile(`\(([^()]*)\)`)

func (c *DuckDBCaptor) captureIndexes(ctx context.Context, schemaName, tableName string) ([]any, error) {
	// Constraint-backed internal indexes carry no CREATE INDEX text;
	// they are already captured as constraints.
	rows, err := c.db.QueryContext(ctx, `
		SELECT index_name, is_unique, sql
		FROM duckdb_indexes()
		WHERE schema_name = ? AND table_name = ? AND sql IS NOT NULL
		ORDER BY index_name`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s.%s: %w", schemaName, tableName, err)
	}
	defer func() { _ = rows.Close() }()

	var indexes []any
	for rows.Next() {
		var (
			name      string
			unique    bool
			createSQL sql.NullString
		)
		if err := rows.Scan(&name, &unique, &createSQL); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		index := map[string]any{
			"name":   name,
			"unique": unique,
			"method": "art",
		}
		if groups := indexColumnGroupRe.FindAllStringSubmatch(createSQL.String, -1); len(groups) > 0 {
			index["columns"] = splitColumnList(groups[len(groups)-1][1])
		}
		indexes = append(indexes, index)
	}
	return indexes, rows.Err()
}

func (c *DuckDBCaptor) captureViews(ctx context.Context, schemaName string) ([]any, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT view_name, sql
		FROM duckdb_views()
		WHERE schema_name = ? AND NOT internal
		ORDER BY view_name`, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list views in %s: %w", schemaName, err)
	}
	defer func() { _ = rows.Close() }()

	var views []any
	for rows.Next() {
		var (
			name       string
			definition sql.NullString
		)
		if err := rows.Scan(&name, &definition); err != nil {
			return nil, fmt.Errorf("scan view: %w", err)
		}
		views = append(views, map[string]any{"name": name, "definition": definition.String})
	}
	return views, rows.Err()
}

// captureMacros lists user-defined macros and functions. The raw
// function_type is passed through as the routine kind.
func (c *DuckDBCaptor) captureMacros(ctx context.Context, schemaName string) ([]any, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT DISTINCT function_name, lower(function_type)
		FROM duckdb_functions()
		WHERE schema_name = ? AND NOT internal
		ORDER BY function_name`, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list macros in %s: %w", schemaName, err)
	}
	defer func() { _ = rows.Close() }()

	var routines []any
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, fmt.Errorf("scan macro: %w", err)
		}
		routines = append(routines, map[string]any{
			"name":     name,
			"kind":     kind,
			"language": "sql",
		})
	}
	return routines, rows.Err()
}

// toStringList converts a scanned list value to []string. DuckDB list
// columns arrive as []any through database/sql.
func toStringList(v any) []string {
	var out []string
	switch items := v.(type) {
	case []string:
		out = append(out, items...)
	case []any:
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// splitColumnList splits a comma-separated identifier list, trimming
// whitespace and surrounding quotes.
func splitColumnList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, `"`)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

var _ Captor = (*DuckDBCaptor)(nil)
