package db

import (
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/SedlarDavid/sqltools-mcp/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// Postgres implements Dialect for PostgreSQL through pgx's database/sql driver.
type Postgres struct{}

func (Postgres) Name() string { return config.DriverPostgres }

// Open builds the pgx connection config from cfg. The password travels in
// the parsed config, never in a logged string.
func (Postgres) Open(cfg *config.Config) (*sql.DB, error) {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password()),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.EffectivePort())),
		Path:   "/" + cfg.Name,
	}
	cc, err := pgx.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	return stdlib.OpenDB(*cc), nil
}

func (p Postgres) SessionInit(schemas []string) []string {
	if len(schemas) == 0 {
		return nil
	}
	quoted := make([]string, len(schemas))
	for i, s := range schemas {
		quoted[i] = p.QuoteIdent(s)
	}
	return []string{"SET search_path TO " + strings.Join(quoted, ", ")}
}

func (Postgres) SearchPath(appSchema string) []string {
	return uniqueSchemas(appSchema, "public")
}

func (Postgres) DefaultSchema() string { return "public" }

func (Postgres) FoldsCase() bool { return true }

func (Postgres) QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (Postgres) EscapeLike(s string) string { return EscapeLike(s) }

func (Postgres) ListTablesQuery(schemas []string) (string, []any) {
	ph := make([]string, len(schemas))
	args := make([]any, len(schemas))
	for i, s := range schemas {
		ph[i] = "$" + strconv.Itoa(i+1)
		args[i] = s
	}
	return `SELECT table_name, table_type
FROM information_schema.tables
WHERE table_schema IN (` + strings.Join(ph, ", ") + `)
ORDER BY table_name`, args
}

func (Postgres) TableLookupQuery(schema, table string) (string, []any) {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2`,
		[]any{schema, table}
}

func (Postgres) ColumnLookupQuery(schema, table, column string) (string, []any) {
	return `SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 AND column_name = $3`,
		[]any{schema, table, column}
}

func (Postgres) SampleQuery(table string, limit int) (string, []any) {
	return "SELECT * FROM " + table + " LIMIT $1", []any{limit}
}

func (Postgres) SearchQuery(table, column, pattern string, limit int) (string, []any) {
	return "SELECT * FROM " + table + " WHERE CAST(" + column + ` AS text) ILIKE $1 ESCAPE '\' LIMIT $2`,
		[]any{pattern, limit}
}

func (Postgres) DescribeQuery(schema, table string) (string, []any) {
	return `SELECT column_name, data_type, is_nullable, column_default, character_maximum_length
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`, []any{schema, table}
}

func (Postgres) SchemaQuery(schema, table string) (string, []any) {
	return `SELECT column_name, data_type, is_nullable, column_default, character_maximum_length, numeric_precision, numeric_scale
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`, []any{schema, table}
}

var _ Dialect = Postgres{}
