package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
)

// Session is one connection used for a single operation. Callers must
// Close it; Close is safe to call more than once.
type Session struct {
	dialect Dialect
	schemas []string
	db      *sql.DB
	conn    *sql.Conn

	closeOnce sync.Once
	closeErr  error
}

// Dialect returns the session's dialect.
func (s *Session) Dialect() Dialect { return s.dialect }

// Schemas returns the search path, app schema first.
func (s *Session) Schemas() []string { return s.schemas }

// Query runs a statement that returns rows and reads all of them.
func (s *Session) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewError(KindExecution, "query", "", err)
	}
	defer rows.Close()
	out, err := scanRows(rows)
	if err != nil {
		return nil, NewError(KindExecution, "query", "", err)
	}
	return out, nil
}

// Exec runs a statement and returns the number of affected rows.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, NewError(KindExecution, "exec", "", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewError(KindExecution, "exec", "", err)
	}
	return n, nil
}

// ResolveTable finds table in the search path and returns its schema and
// catalog name. Exact names are tried first, then the lower-cased name on
// engines that fold unquoted identifiers.
func (s *Session) ResolveTable(ctx context.Context, table string) (schema, name string, ok bool, err error) {
	for _, candidate := range s.candidates(table) {
		for _, sch := range s.schemas {
			q, args := s.dialect.TableLookupQuery(sch, candidate)
			found, err := s.lookup(ctx, q, args)
			if err != nil {
				return "", "", false, err
			}
			if found != "" {
				return sch, found, true, nil
			}
		}
	}
	return "", "", false, nil
}

// ResolveColumn finds column in schema.table and returns its catalog name.
func (s *Session) ResolveColumn(ctx context.Context, schema, table, column string) (string, bool, error) {
	for _, candidate := range s.candidates(column) {
		q, args := s.dialect.ColumnLookupQuery(schema, table, candidate)
		found, err := s.lookup(ctx, q, args)
		if err != nil {
			return "", false, err
		}
		if found != "" {
			return found, true, nil
		}
	}
	return "", false, nil
}

func (s *Session) candidates(name string) []string {
	if s.dialect.FoldsCase() {
		if lower := strings.ToLower(name); lower != name {
			return []string{name, lower}
		}
	}
	return []string{name}
}

func (s *Session) lookup(ctx context.Context, q string, args []any) (string, error) {
	var found string
	err := s.conn.QueryRowContext(ctx, q, args...).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", NewError(KindExecution, "lookup", "", err)
	}
	return found, nil
}

// Close releases the connection and the handle.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.conn != nil {
			errs = append(errs, s.conn.Close())
		}
		if s.db != nil {
			errs = append(errs, s.db.Close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
