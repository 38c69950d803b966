package db

import (
	"database/sql"
	"fmt"

	"github.com/SedlarDavid/sqltools-mcp/internal/config"
	_ "modernc.org/sqlite"
)

// SQLite implements Dialect for SQLite using modernc.org/sqlite (pure Go, no CGO).
// cfg.Name is the database file path. Names compare case-insensitively, as
// SQLite itself does.
type SQLite struct{}

func (SQLite) Name() string { return config.DriverSQLite }

func (SQLite) Open(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("sqlite", cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	return db, nil
}

func (SQLite) SessionInit([]string) []string { return nil }

func (SQLite) SearchPath(string) []string { return []string{"main"} }

func (SQLite) DefaultSchema() string { return "main" }

func (SQLite) FoldsCase() bool { return false }

func (SQLite) QuoteIdent(name string) string {
	return quoteWith(name, `"`, `"`)
}

func (SQLite) EscapeLike(s string) string { return EscapeLike(s) }

func (SQLite) ListTablesQuery([]string) (string, []any) {
	return `SELECT name AS table_name,
       CASE type WHEN 'view' THEN 'VIEW' ELSE 'BASE TABLE' END AS table_type
FROM sqlite_master
WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
ORDER BY name`, nil
}

func (SQLite) TableLookupQuery(_, table string) (string, []any) {
	return `SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?1 COLLATE NOCASE`,
		[]any{table}
}

func (SQLite) ColumnLookupQuery(_, table, column string) (string, []any) {
	return `SELECT name FROM pragma_table_info(?1) WHERE name = ?2 COLLATE NOCASE`,
		[]any{table, column}
}

func (SQLite) SampleQuery(table string, limit int) (string, []any) {
	return "SELECT * FROM " + table + " LIMIT ?1", []any{limit}
}

func (SQLite) SearchQuery(table, column, pattern string, limit int) (string, []any) {
	return "SELECT * FROM " + table + " WHERE CAST(" + column + ` AS TEXT) LIKE ?1 ESCAPE '\' LIMIT ?2`,
		[]any{pattern, limit}
}

func (SQLite) DescribeQuery(_, table string) (string, []any) {
	return `SELECT name AS column_name, type AS data_type,
       CASE WHEN "notnull" = 1 THEN 'NO' ELSE 'YES' END AS is_nullable,
       dflt_value AS column_default, NULL AS character_maximum_length
FROM pragma_table_info(?1)
ORDER BY cid`, []any{table}
}

func (SQLite) SchemaQuery(_, table string) (string, []any) {
	return `SELECT name AS column_name, type AS data_type,
       CASE WHEN "notnull" = 1 THEN 'NO' ELSE 'YES' END AS is_nullable,
       dflt_value AS column_default, NULL AS character_maximum_length,
       NULL AS numeric_precision, NULL AS numeric_scale
FROM pragma_table_info(?1)
ORDER BY cid`, []any{table}
}

var _ Dialect = SQLite{}
