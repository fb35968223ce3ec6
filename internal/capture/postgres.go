package capture

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func init() {
	Register("postgres", func() Captor { return NewPostgresCaptor() })
}

// PostgresCaptor introspects PostgreSQL databases through pgx. Column
// and constraint metadata comes from information_schema and the
// pg_catalog tables, which preserve declaration order for composite
// keys.
type PostgresCaptor struct {
	conn *pgx.Conn
	cfg  Config
	opts Options
}

// NewPostgresCaptor creates an unconnected PostgreSQL captor.
func NewPostgresCaptor() *PostgresCaptor {
	return &PostgresCaptor{}
}

// buildPostgresDSN assembles a keyword/value DSN from cfg. Host, port,
// and sslmode default to localhost, 5432, and disable.
func buildPostgresDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := "disable"
	if v, ok := cfg.Options["sslmode"]; ok && v != "" {
		sslmode = v
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslmode)
	if cfg.Username != "" {
		dsn += " user=" + cfg.Username
	}
	if cfg.Password != "" {
		dsn += " password=" + cfg.Password
	}
	return dsn
}

// Connect establishes and verifies the database connection.
func (c *PostgresCaptor) Connect(ctx context.Context, cfg Config) error {
	opts, err := DecodeOptions(cfg.Params)
	if err != nil {
		return err
	}

	conn, err := pgx.Connect(ctx, buildPostgresDSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	c.conn = conn
	c.cfg = cfg
	c.opts = opts
	return nil
}

// Close closes the database connection.
func (c *PostgresCaptor) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close(context.Background())
	c.conn = nil
	return err
}

// IsConnected reports whether Connect has succeeded.
func (c *PostgresCaptor) IsConnected() bool {
	return c.conn != nil
}

// DriverName returns the registry name of this captor.
func (c *PostgresCaptor) DriverName() string {
	return "postgres"
}

// Snapshot introspects every selected schema into a raw envelope payload.
func (c *PostgresCaptor) Snapshot(ctx context.Context) (map[string]any, error) {
	if c.conn == nil {
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

func (c *PostgresCaptor) schemaNames(ctx context.Context) ([]string, error) {
	if filter := schemaFilter(c.cfg, c.opts); filter != nil {
		return filter, nil
	}

	rows, err := c.conn.Query(ctx, `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
		  AND schema_name NOT LIKE 'pg_toast%'
		  AND schema_name NOT LIKE 'pg_temp%'
		ORDER BY schema_name`)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	defer rows.Close()

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

func (c *PostgresCaptor) captureSchema(ctx context.Context, schemaName string) (map[string]any, error) {
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
		routines, err := c.captureRoutines(ctx, schemaName)
		if err != nil {
			return nil, err
		}
		if len(routines) > 0 {
			sc["routines"] = routines
		}
	}

	return sc, nil
}

func (c *PostgresCaptor) tableNames(ctx context.Context, schemaName string) ([]string, error) {
	rows, err := c.conn.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", schemaName, err)
	}
	defer rows.Close()

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

func (c *PostgresCaptor) captureTable(ctx context.Context, schemaName, tableName string) (map[string]any, error) {
	table := map[string]any{"name": tableName}

	columns, err := c.captureColumns(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	if len(columns) > 0 {
		table["columns"] = columns
	}

	constraints, err := c.captureConstraints(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	if len(constraints) > 0 {
		table["constraints"] = constraints
	}

	indexes, err := c.captureIndexes(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	if len(indexes) > 0 {
		table["indexes"] = indexes
	}

	foreignKeys, err := c.captureForeignKeys(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	if len(foreignKeys) > 0 {
		table["foreignKeys"] = foreignKeys
	}

	return table, nil
}

func (c *PostgresCaptor) captureColumns(ctx context.Context, schemaName, tableName string) ([]any, error) {
	rows, err := c.conn.Query(ctx, `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var columns []any
	for rows.Next() {
		var (
			name, dataType, isNullable string
			columnDefault              *string
		)
		if err := rows.Scan(&name, &dataType, &isNullable, &columnDefault); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		column := map[string]any{
			"name":     name,
			"dataType": dataType,
			"nullable": isNullable == "YES",
		}
		if columnDefault != nil {
			column["default"] = *columnDefault
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

func (c *PostgresCaptor) captureConstraints(ctx context.Context, schemaName, tableName string) ([]any, error) {
	rows, err := c.conn.Query(ctx, `
		SELECT con.conname,
		       CASE con.contype
		            WHEN 'p' THEN 'PRIMARY KEY'
		            WHEN 'u' THEN 'UNIQUE'
		            WHEN 'c' THEN 'CHECK'
		            WHEN 'x' THEN 'EXCLUDE'
		            ELSE upper(con.contype::text)
		       END,
		       pg_get_constraintdef(con.oid),
		       COALESCE(ARRAY(
		            SELECT att.attname
		            FROM unnest(con.conkey) WITH ORDINALITY AS u(attnum, ord)
		            JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = u.attnum
		            ORDER BY u.ord
		       ), '{}')
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_namespace nsp ON nsp.oid = rel.relnamespace
		WHERE nsp.nspname = $1 AND rel.relname = $2 AND con.contype <> 'f'
		ORDER BY con.conname`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("list constraints of %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var constraints []any
	for rows.Next() {
		var (
			name, constraintType, definition string
			columns                          []string
		)
		if err := rows.Scan(&name, &constraintType, &definition, &columns); err != nil {
			return nil, fmt.Errorf("scan constraint: %w", err)
		}
		constraints = append(constraints, map[string]any{
			"name":       name,
			"type":       constraintType,
			"definition": definition,
			"columns":    columns,
		})
	}
	return constraints, rows.Err()
}

func (c *PostgresCaptor) captureIndexes(ctx context.Context, schemaName, tableName string) ([]any, error) {
	rows, err := c.conn.Query(ctx, `
		SELECT ic.relname,
		       ix.indisunique,
		       ix.indisprimary,
		       am.amname,
		       COALESCE(pg_get_expr(ix.indpred, ix.indrelid), ''),
		       COALESCE(ARRAY(
		            SELECT pg_get_indexdef(ix.indexrelid, k + 1, true)
		            FROM generate_subscripts(ix.indkey, 1) AS k
		            ORDER BY k
		       ), '{}')
		FROM pg_index ix
		JOIN pg_class ic ON ic.oid = ix.indexrelid
		JOIN pg_class tc ON tc.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = tc.relnamespace
		JOIN pg_am am ON am.oid = ic.relam
		WHERE n.nspname = $1 AND tc.relname = $2
		ORDER BY ic.relname`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var indexes []any
	for rows.Next() {
		var (
			name, method, predicate string
			unique, primary         bool
			columns                 []string
		)
		if err := rows.Scan(&name, &unique, &primary, &method, &predicate, &columns); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		index := map[string]any{
			"name":    name,
			"unique":  unique,
			"primary": primary,
			"method":  method,
			"columns": columns,
		}
		if predicate != "" {
			index["predicate"] = predicate
		}
		indexes = append(indexes, index)
	}
	return indexes, rows.Err()
}

func (c *PostgresCaptor) captureForeignKeys(ctx context.Context, schemaName, tableName string) ([]any, error) {
	rows, err := c.conn.Query(ctx, `
		SELECT con.conname,
		       COALESCE(ARRAY(
		            SELECT att.attname
		            FROM unnest(con.conkey) WITH ORDINALITY AS u(attnum, ord)
		            JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = u.attnum
		            ORDER BY u.ord
		       ), '{}'),
		       fnsp.nspname,
		       frel.relname,
		       COALESCE(ARRAY(
		            SELECT att.attname
		            FROM unnest(con.confkey) WITH ORDINALITY AS u(attnum, ord)
		            JOIN pg_attribute att ON att.attrelid = con.confrelid AND att.attnum = u.attnum
		            ORDER BY u.ord
		       ), '{}'),
		       CASE con.confupdtype
		            WHEN 'a' THEN 'NO ACTION'
		            WHEN 'r' THEN 'RESTRICT'
		            WHEN 'c' THEN 'CASCADE'
		            WHEN 'n' THEN 'SET NULL'
		            WHEN 'd' THEN 'SET DEFAULT'
		            ELSE ''
		       END,
		       CASE con.confdeltype
		            WHEN 'a' THEN 'NO ACTION'
		            WHEN 'r' THEN 'RESTRICT'
		            WHEN 'c' THEN 'CASCADE'
		            WHEN 'n' THEN 'SET NULL'
		            WHEN 'd' THEN 'SET DEFAULT'
		            ELSE ''
		       END
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_namespace nsp ON nsp.oid = rel.relnamespace
		JOIN pg_class frel ON frel.oid = con.confrelid
		JOIN pg_namespace fnsp ON fnsp.oid = frel.relnamespace
		WHERE nsp.nspname = $1 AND rel.relname = $2 AND con.contype = 'f'
		ORDER BY con.conname`, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys of %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var foreignKeys []any
	for rows.Next() {
		var (
			name, refSchema, refTable, onUpdate, onDelete string
			columns, refColumns                           []string
		)
		if err := rows.Scan(&name, &columns, &refSchema, &refTable, &refColumns, &onUpdate, &onDelete); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		foreignKeys = append(foreignKeys, map[string]any{
			"name":              name,
			"columns":           columns,
			"referencedSchema":  refSchema,
			"referencedTable":   refTable,
			"referencedColumns": refColumns,
			"onUpdate":          onUpdate,
			"onDelete":          onDelete,
		})
	}
	return foreignKeys, rows.Err()
}

func (c *PostgresCaptor) captureViews(ctx context.Context, schemaName string) ([]any, error) {
	rows, err := c.conn.Query(ctx, `
		SELECT table_name, COALESCE(view_definition, '')
		FROM information_schema.views
		WHERE table_schema = $1
		ORDER BY table_name`, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list views in %s: %w", schemaName, err)
	}
	defer rows.Close()

	var views []any
	for rows.Next() {
		var name, definition string
		if err := rows.Scan(&name, &definition); err != nil {
			return nil, fmt.Errorf("scan view: %w", err)
		}
		views = append(views, map[string]any{"name": name, "definition": definition})
	}
	return views, rows.Err()
}

func (c *PostgresCaptor) captureRoutines(ctx context.Context, schemaName string) ([]any, error) {
	rows, err := c.conn.Query(ctx, `
		SELECT routine_name,
		       lower(routine_type),
		       COALESCE(data_type, ''),
		       COALESCE(external_language, '')
		FROM information_schema.routines
		WHERE routine_schema = $1
		ORDER BY routine_name`, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list routines in %s: %w", schemaName, err)
	}
	defer rows.Close()

	var routines []any
	for rows.Next() {
		var name, kind, returnType, language string
		if err := rows.Scan(&name, &kind, &returnType, &language); err != nil {
			return nil, fmt.Errorf("scan routine: %w", err)
		}
		routines = append(routines, map[string]any{
			"name":       name,
			"kind":       kind,
			"returnType": returnType,
			"language":   language,
		})
	}
	return routines, rows.Err()
}

var _ Captor = (*PostgresCaptor)(nil)
