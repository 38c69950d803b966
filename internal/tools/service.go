// Package tools implements the database operations exposed to clients.
// Every method validates its input before touching the database, opens one
// session, and closes it before returning.
package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SedlarDavid/sqltools-mcp/internal/config"
	"github.com/SedlarDavid/sqltools-mcp/internal/db"
	"github.com/SedlarDavid/sqltools-mcp/internal/logger"
)

// Opener hands out one session per operation. *db.Provider implements it.
type Opener interface {
	Open(ctx context.Context) (*db.Session, error)
}

// Rejection and validation messages.
const (
	MsgInvalidTable    = "Invalid table name"
	MsgInvalidColumn   = "Invalid column name"
	MsgOnlyDMLAllowed  = "Only SELECT, INSERT, UPDATE, DELETE queries are allowed."
	MsgReadOnlyNoWrite = "read-only mode: write statements are not allowed."
)

// Service runs the operations against sessions from an Opener.
type Service struct {
	sessions Opener
	readOnly bool
	log      *slog.Logger
}

// New returns a Service. A nil logger discards output.
func New(sessions Opener, cfg *config.Config, log *slog.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{sessions: sessions, readOnly: cfg.ReadOnly, log: log}
}

// ExecuteQuery runs a single SELECT, INSERT, UPDATE or DELETE statement as given.
func (s *Service) ExecuteQuery(ctx context.Context, query string) (*QueryResult, error) {
	const op = "execute_query"
	kind := Classify(query)
	switch {
	case kind == StmtSelect:
		if s.readOnly {
			if err := ValidateReadOnlySQL(query); err != nil {
				return nil, db.NewError(db.KindRejected, op, "read-only mode: "+err.Error(), nil)
			}
		}
	case IsMutation(kind):
		if s.readOnly {
			return nil, db.NewError(db.KindRejected, op, MsgReadOnlyNoWrite, nil)
		}
	default:
		return nil, db.NewError(db.KindRejected, op, MsgOnlyDMLAllowed, nil)
	}

	sess, err := s.sessions.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	if kind == StmtSelect {
		rows, err := s.query(ctx, sess, op, query)
		if err != nil {
			return nil, err
		}
		return &QueryResult{Rows: rows}, nil
	}
	n, err := sess.Exec(ctx, query)
	logger.Statement(s.log, op, query, n, err)
	if err != nil {
		return nil, err
	}
	return &QueryResult{RowsAffected: n, Mutation: true}, nil
}

// ListTables lists tables and views in the app and default schemas.
func (s *Service) ListTables(ctx context.Context) (*QueryResult, error) {
	sess, err := s.sessions.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	q, args := sess.Dialect().ListTablesQuery(sess.Schemas())
	rows, err := s.query(ctx, sess, "list_tables", q, args...)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Rows: rows}, nil
}

// CountRows returns [{"row_count": N}] for table.
func (s *Service) CountRows(ctx context.Context, table string) (*QueryResult, error) {
	const op = "count_rows"
	if !ValidIdentifier(table) {
		return nil, db.NewError(db.KindValidation, op, MsgInvalidTable, nil)
	}
	sess, err := s.sessions.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	qualified, _, _, err := s.resolveTable(ctx, sess, op, table)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, sess, op, "SELECT COUNT(*) AS row_count FROM "+qualified)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Rows: rows}, nil
}

// GetTableSample returns up to limit rows of table. Limits above MaxLimit
// are reduced to MaxLimit.
func (s *Service) GetTableSample(ctx context.Context, table string, limit int) (*QueryResult, error) {
	const op = "get_table_sample"
	if !ValidIdentifier(table) {
		return nil, db.NewError(db.KindValidation, op, MsgInvalidTable, nil)
	}
	sess, err := s.sessions.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	qualified, _, _, err := s.resolveTable(ctx, sess, op, table)
	if err != nil {
		return nil, err
	}
	q, args := sess.Dialect().SampleQuery(qualified, ClampLimit(limit))
	rows, err := s.query(ctx, sess, op, q, args...)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Rows: rows}, nil
}

// SearchTable returns rows of table whose column contains term,
// case-insensitively. The term matches literally.
func (s *Service) SearchTable(ctx context.Context, table, column, term string, limit int) (*QueryResult, error) {
	const op = "search_table"
	if !ValidIdentifier(table) {
		return nil, db.NewError(db.KindValidation, op, MsgInvalidTable, nil)
	}
	if !ValidIdentifier(column) {
		return nil, db.NewError(db.KindValidation, op, MsgInvalidColumn, nil)
	}
	sess, err := s.sessions.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	qualified, schema, name, err := s.resolveTable(ctx, sess, op, table)
	if err != nil {
		return nil, err
	}
	col, ok, err := sess.ResolveColumn(ctx, schema, name, column)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, db.NewError(db.KindValidation, op, MsgInvalidColumn, nil)
	}

	d := sess.Dialect()
	q, args := d.SearchQuery(qualified, d.QuoteIdent(col), db.ContainsPattern(d, term), ClampLimit(limit))
	rows, err := s.query(ctx, sess, op, q, args...)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Rows: rows}, nil
}

// DescribeTable lists the columns of table in the default schema. An
// unknown table yields no rows.
func (s *Service) DescribeTable(ctx context.Context, table string) (*QueryResult, error) {
	sess, err := s.sessions.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	d := sess.Dialect()
	q, args := d.DescribeQuery(d.DefaultSchema(), table)
	rows, err := s.query(ctx, sess, "describe_table", q, args...)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Rows: rows}, nil
}

// TableSchema returns column metadata for table in the default schema, or
// a KindNotFound error when the table has no columns.
func (s *Service) TableSchema(ctx context.Context, table string) (*TableSchema, error) {
	const op = "get_table_schema"
	sess, err := s.sessions.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	d := sess.Dialect()
	q, args := d.SchemaQuery(d.DefaultSchema(), table)
	rows, err := s.query(ctx, sess, op, q, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, db.NewError(db.KindNotFound, op, fmt.Sprintf("Table '%s' not found", table), nil)
	}
	return &TableSchema{TableName: table, Columns: rows}, nil
}

// resolveTable maps a validated name to its quoted, schema-qualified form.
func (s *Service) resolveTable(ctx context.Context, sess *db.Session, op, table string) (qualified, schema, name string, err error) {
	schema, name, ok, err := sess.ResolveTable(ctx, table)
	if err != nil {
		return "", "", "", err
	}
	if !ok {
		s.log.Debug("table not in search path", slog.String("op", op), slog.String("table", table))
		return "", "", "", db.NewError(db.KindValidation, op, MsgInvalidTable, nil)
	}
	return db.QualifiedName(sess.Dialect(), schema, name), schema, name, nil
}

func (s *Service) query(ctx context.Context, sess *db.Session, op, q string, args ...any) (db.Rows, error) {
	rows, err := sess.Query(ctx, q, args...)
	logger.Statement(s.log, op, q, int64(len(rows)), err)
	return rows, err
}
