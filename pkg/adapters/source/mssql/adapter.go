// Package mssql implements the SQL Server source adapter. It mirrors the
// postgres adapter's contract over database/sql: one poll enumerates the
// configured tables (or discovers every user table) and returns one tabular
// row-set per table, each row tagged with a "table" discriminator column.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/datareef/reef-engine/pkg/adapters/source"
	"github.com/datareef/reef-engine/pkg/apperrors"
	"github.com/datareef/reef-engine/pkg/models"
)

const (
	defaultPort = 1433

	maxRowsPerTable = 50000

	tableColumn = "table"
)

// Adapter polls Microsoft SQL Server databases.
type Adapter struct{}

// New creates a SQL Server source adapter.
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
	db, err := sql.Open("sqlserver", connString(config, secrets))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, err, "open sqlserver connection")
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, err, "connect to sqlserver")
	}

	tables, err := pollTables(config)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		tables, err = discoverTables(ctx, db)
		if err != nil {
			return nil, err
		}
	}

	out := make([]models.Tabular, 0, len(tables))
	for _, table := range tables {
		t, err := fetchTable(ctx, db, table)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// connString builds a sqlserver:// URL. Credentials are URL-escaped so special
// characters in passwords do not break parsing.
func connString(config source.Config, secrets source.Secrets) string {
	host, _ := config.StringField("host")
	database, _ := config.StringField("database")
	port := defaultPort
	if p, ok := config.IntField("port"); ok {
		port = p
	}

	query := url.Values{}
	query.Add("database", database)
	if encrypt, ok := config["encrypt"].(bool); ok && !encrypt {
		query.Add("encrypt", "false")
	} else {
		query.Add("encrypt", "true")
	}
	if trust, ok := config["trust_server_certificate"].(bool); ok && trust {
		query.Add("TrustServerCertificate", "true")
	}

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(secrets["user"]),
		url.QueryEscape(secrets["password"]),
		host,
		port,
		query.Encode(),
	)
}

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

// discoverTables lists all user tables, schema-qualified when outside dbo.
func discoverTables(ctx context.Context, db *sql.DB) ([]string, error) {
	const query = `
		SELECT SCHEMA_NAME(t.schema_id) AS table_schema, t.name AS table_name
		FROM sys.tables t
		WHERE t.is_ms_shipped = 0
		ORDER BY table_schema, table_name
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, err, "discover tables")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var schema, name string
		if err := rows.Scan(&schema, &name); err != nil {
			return nil, apperrors.Wrap(apperrors.KindTransport, err, "scan table name")
		}
		if schema == "dbo" {
			tables = append(tables, name)
		} else {
			tables = append(tables, schema+"."+name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, err, "iterate tables")
	}
	return tables, nil
}

// fetchTable reads up to maxRowsPerTable rows and tags each with the table
// name under the discriminator column. []byte values become strings so they
// survive downstream type inference.
func fetchTable(ctx context.Context, db *sql.DB, table string) (models.Tabular, error) {
	query := fmt.Sprintf("SELECT TOP (%d) * FROM %s", maxRowsPerTable, qualifiedName(table))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return models.Tabular{}, apperrors.Wrap(apperrors.KindTransport, err, fmt.Sprintf("query table %s", table))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return models.Tabular{}, apperrors.Wrap(apperrors.KindTransport, err, fmt.Sprintf("read columns of %s", table))
	}
	header := append(append(make([]string, 0, len(columns)+1), columns...), tableColumn)

	t := models.Tabular{Name: table, Header: header}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return models.Tabular{}, apperrors.Wrap(apperrors.KindTransport, err, fmt.Sprintf("read row from %s", table))
		}
		row := make(map[string]any, len(columns)+1)
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		row[tableColumn] = table
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return models.Tabular{}, apperrors.Wrap(apperrors.KindTransport, err, fmt.Sprintf("iterate table %s", table))
	}
	return t, nil
}

// qualifiedName brackets a possibly schema-qualified identifier, escaping ]
// as ]] the way QUOTENAME does. Defaults to the dbo schema.
func qualifiedName(table string) string {
	cleaned := strings.NewReplacer("[", "", "]", "").Replace(table)
	schema, name := "dbo", cleaned
	if parts := strings.SplitN(cleaned, ".", 2); len(parts) == 2 {
		schema, name = parts[0], parts[1]
	}
	return fmt.Sprintf("[%s].[%s]",
		strings.ReplaceAll(schema, "]", "]]"),
		strings.ReplaceAll(name, "]", "]]"),
	)
}

var _ source.Adapter = (*Adapter)(nil)
