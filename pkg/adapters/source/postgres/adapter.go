// Package postgres implements the PostgreSQL source adapter. A poll opens a
// single connection, enumerates the configured tables (or discovers every user
// table), and returns one tabular row-set per table plus key metadata. Each
// row carries a "table" discriminator column so multi-table output survives
// flattening into a single record stream.
package postgres

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"

	"github.com/datareef/reef-engine/pkg/adapters/source"
	"github.com/datareef/reef-engine/pkg/apperrors"
	"github.com/datareef/reef-engine/pkg/models"
)

const (
	defaultPort    = 5432
	defaultSSLMode = "require"

	// maxRowsPerTable bounds how much of a table a single poll pulls in.
	maxRowsPerTable = 50000

	// tableColumn is the discriminator added to every row.
	tableColumn = "table"
)

var sslModes = map[string]bool{
	"disable":     true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// Adapter polls PostgreSQL databases.
type Adapter struct{}

// New creates a PostgreSQL source adapter.
func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) ValidateConfig(config source.Config) error {
	if _, ok := config.StringField("host"); !ok {
		return apperrors.New(apperrors.KindConfigValidation, "host is required")
	}
	if _, ok := config.StringField("database"); !ok {
		return apperrors.New(apperrors.KindConfigValidation, "database is required")
	}
	if port, ok := config.IntField("port"); ok && (port < 1 || port > 65535) {
		return apperrors.Newf(apperrors.KindConfigValidation, "port %d is out of range", port)
	}
	if mode, ok := config["ssl_mode"].(string); ok && !sslModes[mode] {
		return apperrors.Newf(apperrors.KindConfigValidation, "unsupported ssl_mode %q", mode)
	}
	if raw, ok := config["tables"]; ok {
		if _, err := tableList(raw); err != nil {
			return apperrors.Wrap(apperrors.KindConfigValidation, err, "tables")
		}
	}
	return nil
}

func (a *Adapter) ValidateSecrets(secrets source.Secrets) error {
	if secrets["user"] == "" {
		return apperrors.New(apperrors.KindSecretValidation, "user is required")
	}
	if secrets["password"] == "" {
		return apperrors.New(apperrors.KindSecretValidation, "password is required")
	}
	return nil
}

func (a *Adapter) SupportsPolling() bool { return true }

func (a *Adapter) Poll(ctx context.Context, config source.Config, secrets source.Secrets) (any, error) {
	conn, err := pgx.Connect(ctx, connString(config, secrets))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, err, "connect to postgres")
	}
	defer conn.Close(ctx)

	tables, err := pollTables(config)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		tables, err = discoverTables(ctx, conn)
		if err != nil {
			return nil, err
		}
	}

	out := make([]models.Tabular, 0, len(tables)+2)
	for _, table := range tables {
		t, err := fetchTable(ctx, conn, table)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	keys, err := fetchPrimaryKeys(ctx, conn)
	if err != nil {
		return nil, err
	}
	if len(keys.Rows) > 0 {
		out = append(out, keys)
	}

	rels, err := fetchForeignKeys(ctx, conn)
	if err != nil {
		return nil, err
	}
	if len(rels.Rows) > 0 {
		out = append(out, rels)
	}

	return out, nil
}

// connString builds a PostgreSQL URL. User-provided fields are URL-escaped so
// special characters in passwords (@, /, #, ?) do not break parsing.
func connString(config source.Config, secrets source.Secrets) string {
	host, _ := config.StringField("host")
	database, _ := config.StringField("database")
	port := defaultPort
	if p, ok := config.IntField("port"); ok {
		port = p
	}
	sslMode := defaultSSLMode
	if mode, ok := config["ssl_mode"].(string); ok && mode != "" {
		sslMode = mode
	}
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(secrets["user"]),
		url.QueryEscape(secrets["password"]),
		host,
		port,
		url.QueryEscape(database),
		sslMode,
	)
}

// pollTables returns the configured allow-list, or nil when every user table
// should be discovered.
func pollTables(config source.Config) ([]string, error) {
	raw, ok := config["tables"]
	if !ok {
		return nil, nil
	}
	return tableList(raw)
}

func tableList(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		if strs, ok := raw.([]string); ok {
			return strs, nil
		}
		return nil, fmt.Errorf("must be a list of table names")
	}
	tables := make([]string, 0, len(items))
	for _, item := range items {
		name, ok := item.(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("must be a list of table names")
		}
		tables = append(tables, name)
	}
	return tables, nil
}

// discoverTables lists all base tables outside the system schemas.
func discoverTables(ctx context.Context, conn *pgx.Conn) ([]string, error) {
	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY table_schema, table_name
	`
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, err, "discover tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperrors.Wrap(apperrors.KindTransport, err, "scan table name")
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, err, "iterate tables")
	}
	return tables, nil
}

// fetchTable reads up to maxRowsPerTable rows and tags each with the table
// name under the discriminator column.
func fetchTable(ctx context.Context, conn *pgx.Conn, table string) (models.Tabular, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", pgx.Identifier{table}.Sanitize(), maxRowsPerTable)
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return models.Tabular{}, apperrors.Wrap(apperrors.KindTransport, err, fmt.Sprintf("query table %s", table))
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		header = append(header, f.Name)
	}
	header = append(header, tableColumn)

	t := models.Tabular{Name: table, Header: header}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return models.Tabular{}, apperrors.Wrap(apperrors.KindTransport, err, fmt.Sprintf("read row from %s", table))
		}
		row := make(map[string]any, len(values)+1)
		for i, f := range fields {
			row[f.Name] = values[i]
		}
		row[tableColumn] = table
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return models.Tabular{}, apperrors.Wrap(apperrors.KindTransport, err, fmt.Sprintf("iterate table %s", table))
	}
	return t, nil
}

// fetchPrimaryKeys returns one row per primary-key column across all user
// tables, exposed as its own row-set named table_keys.
func fetchPrimaryKeys(ctx context.Context, conn *pgx.Conn) (models.Tabular, error) {
	const query = `
		SELECT
			tc.table_name,
			kcu.column_name,
			kcu.ordinal_position
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY tc.table_name, kcu.ordinal_position
	`
	t := models.Tabular{
		Name:   "table_keys",
		Header: []string{"table_name", "column_name", "ordinal_position", tableColumn},
	}
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return models.Tabular{}, apperrors.Wrap(apperrors.KindTransport, err, "query primary keys")
	}
	defer rows.Close()

	for rows.Next() {
		var table, column string
		var position int
		if err := rows.Scan(&table, &column, &position); err != nil {
			return models.Tabular{}, apperrors.Wrap(apperrors.KindTransport, err, "scan primary key")
		}
		t.Rows = append(t.Rows, map[string]any{
			"table_name":       table,
			"column_name":      column,
			"ordinal_position": position,
			tableColumn:        t.Name,
		})
	}
	if err := rows.Err(); err != nil {
		return models.Tabular{}, apperrors.Wrap(apperrors.KindTransport, err, "iterate primary keys")
	}
	return t, nil
}

// fetchForeignKeys returns one row per foreign-key relationship, exposed as
// its own row-set named table_relationships.
func fetchForeignKeys(ctx context.Context, conn *pgx.Conn) (models.Tabular, error) {
	const query = `
		SELECT
			tc.constraint_name,
			kcu.table_name as source_table,
			kcu.column_name as source_column,
			ccu.table_name as target_table,
			ccu.column_name as target_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY tc.constraint_name
	`
	t := models.Tabular{
		Name: "table_relationships",
		Header: []string{
			"constraint_name", "source_table", "source_column",
			"target_table", "target_column", tableColumn,
		},
	}
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return models.Tabular{}, apperrors.Wrap(apperrors.KindTransport, err, "query foreign keys")
	}
	defer rows.Close()

	for rows.Next() {
		var constraint, srcTable, srcColumn, dstTable, dstColumn string
		if err := rows.Scan(&constraint, &srcTable, &srcColumn, &dstTable, &dstColumn); err != nil {
			return models.Tabular{}, apperrors.Wrap(apperrors.KindTransport, err, "scan foreign key")
		}
		t.Rows = append(t.Rows, map[string]any{
			"constraint_name": constraint,
			"source_table":    srcTable,
			"source_column":   srcColumn,
			"target_table":    dstTable,
			"target_column":   dstColumn,
			tableColumn:       t.Name,
		})
	}
	if err := rows.Err(); err != nil {
		return models.Tabular{}, apperrors.Wrap(apperrors.KindTransport, err, "iterate foreign keys")
	}
	return t, nil
}

var _ source.Adapter = (*Adapter)(nil)
