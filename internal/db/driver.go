// Package db opens short-lived database sessions and hides the SQL
// differences between PostgreSQL, MySQL, SQL Server and SQLite.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/SedlarDavid/sqltools-mcp/internal/config"
)

// Dialect is the backend-specific part of every operation. Query builders
// return a statement plus its bound arguments; table and column arguments
// passed to SampleQuery and SearchQuery must already be quoted.
type Dialect interface {
	// Name is the config driver name ("postgres", "mysql", ...).
	Name() string
	// Open returns a handle for cfg. Connecting is deferred to first use.
	Open(cfg *config.Config) (*sql.DB, error)
	// SessionInit returns statements run on every new connection.
	SessionInit(schemas []string) []string
	// SearchPath returns the schemas searched for unqualified names, app schema first.
	SearchPath(appSchema string) []string
	// DefaultSchema is the schema read by describe_table and the schema resource.
	DefaultSchema() string
	// FoldsCase reports whether the engine lower-cases unquoted identifiers.
	FoldsCase() bool
	// QuoteIdent quotes one identifier.
	QuoteIdent(name string) string
	// EscapeLike escapes s so it matches literally in a LIKE pattern with \
	// as the escape character.
	EscapeLike(s string) string

	ListTablesQuery(schemas []string) (string, []any)
	// TableLookupQuery returns the catalog name of schema.table, if any.
	TableLookupQuery(schema, table string) (string, []any)
	// ColumnLookupQuery returns the catalog name of the column, if any.
	ColumnLookupQuery(schema, table, column string) (string, []any)
	SampleQuery(table string, limit int) (string, []any)
	SearchQuery(table, column, pattern string, limit int) (string, []any)
	DescribeQuery(schema, table string) (string, []any)
	SchemaQuery(schema, table string) (string, []any)
}

// DialectFor returns the dialect for a config driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverPostgres, "":
		return Postgres{}, nil
	case config.DriverMySQL:
		return MySQL{}, nil
	case config.DriverSQLServer:
		return SQLServer{}, nil
	case config.DriverSQLite:
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// QualifiedName quotes schema.table, or just table when schema is empty.
func QualifiedName(d Dialect, schema, table string) string {
	if schema == "" {
		return d.QuoteIdent(table)
	}
	return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
}

// EscapeLike escapes \, % and _ so s matches literally inside a LIKE
// pattern using \ as the escape character.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern is d's LIKE pattern for "s occurs anywhere".
func ContainsPattern(d Dialect, s string) string {
	return "%" + d.EscapeLike(s) + "%"
}

func quoteWith(name, open, close string) string {
	return open + strings.ReplaceAll(name, close, close+close) + close
}

func uniqueSchemas(schemas ...string) []string {
	out := make([]string, 0, len(schemas))
	for _, s := range schemas {
		dup := false
		for _, o := range out {
			if o == s {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s)
		}
	}
	return out
}
