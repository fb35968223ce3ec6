package capture

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // sqlite driver
)

func init() {
	Register("sqlite", func() Captor { return NewSQLiteCaptor() })
}

// SQLiteCaptor introspects SQLite databases through the PRAGMA
// interface. SQLite exposes a single schema, so every snapshot carries
// one schema named "main". Primary keys surface as a column list
// rather than a named constraint.
type SQLiteCaptor struct {
	db   *sql.DB
	cfg  Config
	opts Options
}

// NewSQLiteCaptor creates an unconnected SQLite captor.
func NewSQLiteCaptor() *SQLiteCaptor {
	return &SQLiteCaptor{}
}

// Connect opens the SQLite database at cfg.Path.
// Use ":memory:" as the path for an in-memory database.
func (c *SQLiteCaptor) Connect(ctx context.Context, cfg Config) error {
	opts, err := DecodeOptions(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	c.db = db
	c.cfg = cfg
	c.opts = opts
	return nil
}

// Close closes the SQLite connection.
func (c *SQLiteCaptor) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// IsConnected reports whether Connect has succeeded.
func (c *SQLiteCaptor) IsConnected() bool {
	return c.db != nil
}

// DriverName returns the registry name of this captor.
func (c *SQLiteCaptor) DriverName() string {
	return "sqlite"
}

// Snapshot introspects the main schema into a raw envelope payload.
func (c *SQLiteCaptor) Snapshot(ctx context.Context) (map[string]any, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	sc := map[string]any{"name": "main"}

	tableNames, err := c.objectNames(ctx, "table")
	if err != nil {
		return nil, err
	}
	tables := make([]any, 0, len(tableNames))
	for _, tableName := range tableNames {
		table, err := c.captureTable(ctx, tableName)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	if len(tables) > 0 {
		sc["tables"] = tables
	}

	if c.opts.IncludeViews {
		views, err := c.captureViews(ctx)
		if err != nil {
			return nil, err
		}
		if len(views) > 0 {
			sc["views"] = views
		}
	}

	return map[string]any{"schemas": []any{sc}}, nil
}

func (c *SQLiteCaptor) objectNames(ctx context.Context, objectType string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = ? AND name NOT LIKE 'sqlite_%'
		ORDER BY name`, objectType)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", objectType, err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan %s name: %w", objectType, err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *SQLiteCaptor) captureTable(ctx context.Context, tableName string) (map[string]any, error) {
	table := map[string]any{"name": tableName}

	columns, primaryKey, err := c.captureColumns(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if len(columns) > 0 {
		table["columns"] = columns
	}
	if len(primaryKey) > 0 {
		table["primaryKey"] = primaryKey
	}

	indexes, err := c.captureIndexes(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if len(indexes) > 0 {
		table["indexes"] = indexes
	}

	foreignKeys, err := c.captureForeignKeys(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if len(foreignKeys) > 0 {
		table["foreignKeys"] = foreignKeys
	}

	return table, nil
}

// captureColumns reads PRAGMA table_info. The pk column carries the
// 1-based position of the column within the primary key, or zero.
func (c *SQLiteCaptor) captureColumns(ctx context.Context, tableName string) ([]any, []string, error) {
	rows, err := c.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdentifier(tableName)+")")
	if err != nil {
		return nil, nil, fmt.Errorf("table info of %s: %w", tableName, err)
	}
	defer func() { _ = rows.Close() }()

	type pkColumn struct {
		rank int
		name string
	}

	var (
		columns   []any
		pkColumns []pkColumn
	)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, dataType   string
			defaultValue     sql.NullString
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return nil, nil, fmt.Errorf("scan column: %w", err)
		}
		column := map[string]any{
			"name":     name,
			"dataType": dataType,
			"nullable": notNull == 0,
		}
		if defaultValue.Valid {
			column["default"] = defaultValue.String
		}
		columns = append(columns, column)
		if pk > 0 {
			pkColumns = append(pkColumns, pkColumn{rank: pk, name: name})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	sort.Slice(pkColumns, func(i, j int) bool { return pkColumns[i].rank < pkColumns[j].rank })
	primaryKey := make([]string, 0, len(pkColumns))
	for _, col := range pkColumns {
		primaryKey = append(primaryKey, col.name)
	}
	return columns, primaryKey, nil
}

func (c *SQLiteCaptor) captureIndexes(ctx context.Context, tableName string) ([]any, error) {
	rows, err := c.db.QueryContext(ctx, "PRAGMA index_list("+quoteIdentifier(tableName)+")")
	if err != nil {
		return nil, fmt.Errorf("index list of %s: %w", tableName, err)
	}

	type indexEntry struct {
		name    string
		unique  bool
		primary bool
	}

	var entries []indexEntry
	for rows.Next() {
		var (
			seq, unique, partial int
			name, origin         string
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan index: %w", err)
		}
		entries = append(entries, indexEntry{
			name:    name,
			unique:  unique != 0,
			primary: origin == "pk",
		})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	indexes := make([]any, 0, len(entries))
	for _, entry := range entries {
		columns, err := c.indexColumns(ctx, entry.name)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, map[string]any{
			"name":    entry.name,
			"unique":  entry.unique,
			"primary": entry.primary,
			"columns": columns,
		})
	}
	return indexes, nil
}

func (c *SQLiteCaptor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "PRAGMA index_info("+quoteIdentifier(indexName)+")")
	if err != nil {
		return nil, fmt.Errorf("index info of %s: %w", indexName, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, fmt.Errorf("scan index column: %w", err)
		}
		// Expression and rowid members have no column name.
		if name.Valid {
			columns = append(columns, name.String)
		}
	}
	return columns, rows.Err()
}

// captureForeignKeys reads PRAGMA foreign_key_list. SQLite does not
// name foreign keys, and multi-column keys span one row per column
// pair sharing an id, so rows are grouped by id and names synthesized
// as <table>_fk_<id>.
func (c *SQLiteCaptor) captureForeignKeys(ctx context.Context, tableName string) ([]any, error) {
	rows, err := c.db.QueryContext(ctx, "PRAGMA foreign_key_list("+quoteIdentifier(tableName)+")")
	if err != nil {
		return nil, fmt.Errorf("foreign key list of %s: %w", tableName, err)
	}
	defer func() { _ = rows.Close() }()

	var (
		order  []int
		groups = map[int]map[string]any{}
	)
	for rows.Next() {
		var (
			id, seq            int
			refTable, from     string
			onUpdate, onDelete string
			match              string
			to                 sql.NullString
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}

		fk, ok := groups[id]
		if !ok {
			fk = map[string]any{
				"name":             fmt.Sprintf("%s_fk_%d", tableName, id),
				"referencedSchema": "main",
				"referencedTable":  refTable,
				"onUpdate":         onUpdate,
				"onDelete":         onDelete,
			}
			groups[id] = fk
			order = append(order, id)
		}
		fk["columns"] = append(toStringList(fk["columns"]), from)
		if to.Valid {
			fk["referencedColumns"] = append(toStringList(fk["referencedColumns"]), to.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	foreignKeys := make([]any, 0, len(order))
	for _, id := range order {
		foreignKeys = append(foreignKeys, groups[id])
	}
	return foreignKeys, nil
}

func (c *SQLiteCaptor) captureViews(ctx context.Context) ([]any, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, sql
		FROM sqlite_master
		WHERE type = 'view' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list views: %w", err)
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

// quoteIdentifier quotes an identifier for interpolation into a PRAGMA
// statement, which does not accept bound parameters.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var _ Captor = (*SQLiteCaptor)(nil)
