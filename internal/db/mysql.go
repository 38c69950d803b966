package db

import (
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/SedlarDavid/sqltools-mcp/internal/config"
	"github.com/go-sql-driver/mysql"
)

// MySQL implements Dialect for MySQL using go-sql-driver/mysql. Schemas map
// to the connected database; an empty schema means DATABASE().
type MySQL struct{}

func (MySQL) Name() string { return config.DriverMySQL }

func (MySQL) Open(cfg *config.Config) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password()
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.EffectivePort()))
	mc.DBName = cfg.Name
	mc.ParseTime = true
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("mysql config: %w", err)
	}
	return sql.OpenDB(connector), nil
}

func (MySQL) SessionInit([]string) []string { return nil }

func (MySQL) SearchPath(string) []string { return []string{""} }

func (MySQL) DefaultSchema() string { return "" }

func (MySQL) FoldsCase() bool { return false }

func (MySQL) QuoteIdent(name string) string {
	return quoteWith(name, "`", "`")
}

func (MySQL) EscapeLike(s string) string { return EscapeLike(s) }

func (MySQL) ListTablesQuery([]string) (string, []any) {
	return `SELECT TABLE_NAME AS table_name, TABLE_TYPE AS table_type
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_SCHEMA = DATABASE()
ORDER BY TABLE_NAME`, nil
}

func (MySQL) TableLookupQuery(schema, table string) (string, []any) {
	if schema == "" {
		return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`,
			[]any{table}
	}
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`,
		[]any{schema, table}
}

func (MySQL) ColumnLookupQuery(schema, table, column string) (string, []any) {
	if schema == "" {
		return `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = ?`,
			[]any{table, column}
	}
	return `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND COLUMN_NAME = ?`,
		[]any{schema, table, column}
}

func (MySQL) SampleQuery(table string, limit int) (string, []any) {
	return "SELECT * FROM " + table + " LIMIT ?", []any{limit}
}

// SearchQuery relies on \ being MySQL's default LIKE escape character.
func (MySQL) SearchQuery(table, column, pattern string, limit int) (string, []any) {
	return "SELECT * FROM " + table + " WHERE LOWER(CAST(" + column + " AS CHAR)) LIKE LOWER(?) LIMIT ?",
		[]any{pattern, limit}
}

func (MySQL) DescribeQuery(_, table string) (string, []any) {
	return `SELECT COLUMN_NAME AS column_name, DATA_TYPE AS data_type, IS_NULLABLE AS is_nullable,
       COLUMN_DEFAULT AS column_default, CHARACTER_MAXIMUM_LENGTH AS character_maximum_length
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`, []any{table}
}

func (MySQL) SchemaQuery(_, table string) (string, []any) {
	return `SELECT COLUMN_NAME AS column_name, DATA_TYPE AS data_type, IS_NULLABLE AS is_nullable,
       COLUMN_DEFAULT AS column_default, CHARACTER_MAXIMUM_LENGTH AS character_maximum_length,
       NUMERIC_PRECISION AS numeric_precision, NUMERIC_SCALE AS numeric_scale
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`, []any{table}
}

var _ Dialect = MySQL{}
