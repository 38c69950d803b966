package db

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/SedlarDavid/sqltools-mcp/internal/config"
	mssql "github.com/microsoft/go-mssqldb"
)

// SQLServer implements Dialect for SQL Server using go-mssqldb. Placeholders
// are @p1, @p2, ...
type SQLServer struct{}

func (SQLServer) Name() string { return config.DriverSQLServer }

func (SQLServer) Open(cfg *config.Config) (*sql.DB, error) {
	q := url.Values{}
	q.Set("database", cfg.Name)
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password()),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.EffectivePort())),
		RawQuery: q.Encode(),
	}
	connector, err := mssql.NewConnector(u.String())
	if err != nil {
		return nil, fmt.Errorf("sqlserver config: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// SessionInit is empty: SQL Server resolves unqualified names through the
// login's default schema, and every query here is schema-qualified.
func (SQLServer) SessionInit([]string) []string { return nil }

func (SQLServer) SearchPath(appSchema string) []string {
	return uniqueSchemas(appSchema, "dbo")
}

func (SQLServer) DefaultSchema() string { return "dbo" }

func (SQLServer) FoldsCase() bool { return false }

func (SQLServer) QuoteIdent(name string) string {
	return quoteWith(name, "[", "]")
}

// EscapeLike also escapes [, which opens a character class in T-SQL LIKE.
func (SQLServer) EscapeLike(s string) string {
	return sqlServerLikeEscaper.Replace(s)
}

var sqlServerLikeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `[`, `\[`)

func (SQLServer) ListTablesQuery(schemas []string) (string, []any) {
	ph := make([]string, len(schemas))
	args := make([]any, len(schemas))
	for i, s := range schemas {
		ph[i] = "@p" + strconv.Itoa(i+1)
		args[i] = s
	}
	return `SELECT TABLE_NAME AS table_name, TABLE_TYPE AS table_type
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_SCHEMA IN (` + strings.Join(ph, ", ") + `)
ORDER BY TABLE_NAME`, args
}

func (SQLServer) TableLookupQuery(schema, table string) (string, []any) {
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2`,
		[]any{schema, table}
}

func (SQLServer) ColumnLookupQuery(schema, table, column string) (string, []any) {
	return `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2 AND COLUMN_NAME = @p3`,
		[]any{schema, table, column}
}

func (SQLServer) SampleQuery(table string, limit int) (string, []any) {
	return "SELECT TOP (@p1) * FROM " + table, []any{limit}
}

func (SQLServer) SearchQuery(table, column, pattern string, limit int) (string, []any) {
	return "SELECT TOP (@p1) * FROM " + table + " WHERE CAST(" + column + ` AS NVARCHAR(MAX)) LIKE @p2 ESCAPE '\'`,
		[]any{limit, pattern}
}

func (SQLServer) DescribeQuery(schema, table string) (string, []any) {
	return `SELECT COLUMN_NAME AS column_name, DATA_TYPE AS data_type, IS_NULLABLE AS is_nullable,
       COLUMN_DEFAULT AS column_default, CHARACTER_MAXIMUM_LENGTH AS character_maximum_length
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
ORDER BY ORDINAL_POSITION`, []any{schema, table}
}

func (SQLServer) SchemaQuery(schema, table string) (string, []any) {
	return `SELECT COLUMN_NAME AS column_name, DATA_TYPE AS data_type, IS_NULLABLE AS is_nullable,
       COLUMN_DEFAULT AS column_default, CHARACTER_MAXIMUM_LENGTH AS character_maximum_length,
       NUMERIC_PRECISION AS numeric_precision, NUMERIC_SCALE AS numeric_scale
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
ORDER BY ORDINAL_POSITION`, []any{schema, table}
}

var _ Dialect = SQLServer{}
