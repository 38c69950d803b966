package tools

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SedlarDavid/sqltools-mcp/internal/config"
	"github.com/SedlarDavid/sqltools-mcp/internal/db"
	"github.com/SedlarDavid/sqltools-mcp/internal/logger"
)

// countingOpener fails every Open and remembers how often it was asked.
type countingOpener struct {
	calls int
}

func (c *countingOpener) Open(context.Context) (*db.Session, error) {
	c.calls++
	return nil, errors.New("unexpected open")
}

const tableLookup = `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2`

func newMockService(t *testing.T, cfg *config.Config) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	p, err := db.NewProvider(cfg,
		db.WithLogger(logger.Discard()),
		db.WithOpenFunc(func(context.Context) (*sql.DB, error) { return mockDB, nil }))
	require.NoError(t, err)
	mock.ExpectExec(regexp.QuoteMeta(`SET search_path TO "app", "public"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	return New(p, cfg, logger.Discard()), mock
}

func expectTable(mock sqlmock.Sqlmock, table string) {
	mock.ExpectQuery(regexp.QuoteMeta(tableLookup)).WithArgs("app", table).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow(table))
}

func TestService_rejectsWithoutOpening(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(s *Service) error
		kind db.Kind
		msg  string
	}{
		{"count invalid table", func(s *Service) error {
			_, err := s.CountRows(ctx, "users; DROP TABLE users")
			return err
		}, db.KindValidation, MsgInvalidTable},
		{"sample empty table", func(s *Service) error {
			_, err := s.GetTableSample(ctx, "", 5)
			return err
		}, db.KindValidation, MsgInvalidTable},
		{"search invalid table", func(s *Service) error {
			_, err := s.SearchTable(ctx, "a.b", "email", "x", 10)
			return err
		}, db.KindValidation, MsgInvalidTable},
		{"search invalid column", func(s *Service) error {
			_, err := s.SearchTable(ctx, "users", "email OR 1=1", "x", 10)
			return err
		}, db.KindValidation, MsgInvalidColumn},
		{"execute drop", func(s *Service) error {
			_, err := s.ExecuteQuery(ctx, "DROP TABLE users")
			return err
		}, db.KindRejected, MsgOnlyDMLAllowed},
		{"execute empty", func(s *Service) error {
			_, err := s.ExecuteQuery(ctx, "   ")
			return err
		}, db.KindRejected, MsgOnlyDMLAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := &countingOpener{}
			s := New(opener, config.Default(), nil)
			err := tt.run(s)
			require.Error(t, err)
			assert.Equal(t, tt.kind, db.KindOf(err))
			assert.Equal(t, tt.msg, err.Error())
			assert.Equal(t, 0, opener.calls)
		})
	}
}

func TestService_readOnly(t *testing.T) {
	cfg := config.Default()
	cfg.ReadOnly = true
	opener := &countingOpener{}
	s := New(opener, cfg, nil)

	_, err := s.ExecuteQuery(context.Background(), "UPDATE users SET name = 'x'")
	assert.Equal(t, db.KindRejected, db.KindOf(err))
	assert.Equal(t, MsgReadOnlyNoWrite, err.Error())

	_, err = s.ExecuteQuery(context.Background(), "SELECT 1; DELETE FROM users")
	assert.Equal(t, db.KindRejected, db.KindOf(err))
	assert.Contains(t, err.Error(), "read-only mode")
	assert.Equal(t, 0, opener.calls)
}

func TestService_ExecuteQuery_select(t *testing.T) {
	s, mock := newMockService(t, config.Default())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Ann").AddRow(2, "Bo"))
	mock.ExpectClose()

	res, err := s.ExecuteQuery(context.Background(), "SELECT id, name FROM users")
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	text, err := res.Text()
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"id\": 1,\n    \"name\": \"Ann\"\n  },\n  {\n    \"id\": 2,\n    \"name\": \"Bo\"\n  }\n]", text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ExecuteQuery_mutation(t *testing.T) {
	s, mock := newMockService(t, config.Default())
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET active = false")).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectClose()

	res, err := s.ExecuteQuery(context.Background(), "UPDATE users SET active = false")
	require.NoError(t, err)
	text, _ := res.Text()
	assert.Equal(t, "Success: 4 row(s) affected.", text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ExecuteQuery_executionErrorClosesSession(t *testing.T) {
	s, mock := newMockService(t, config.Default())
	mock.ExpectQuery("SELECT").WillReturnError(errors.New(`relation "nope" does not exist`))
	mock.ExpectClose()

	_, err := s.ExecuteQuery(context.Background(), "SELECT * FROM nope")
	require.Error(t, err)
	assert.Equal(t, db.KindExecution, db.KindOf(err))
	assert.Equal(t, `relation "nope" does not exist`, err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CountRows(t *testing.T) {
	s, mock := newMockService(t, config.Default())
	expectTable(mock, "users")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) AS row_count FROM "app"."users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"row_count"}).AddRow(7))
	mock.ExpectClose()

	res, err := s.CountRows(context.Background(), "users")
	require.NoError(t, err)
	text, err := res.Text()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"row_count": 7}]`, text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CountRows_unknownTable(t *testing.T) {
	s, mock := newMockService(t, config.Default())
	empty := func() *sqlmock.Rows { return sqlmock.NewRows([]string{"table_name"}) }
	mock.ExpectQuery(regexp.QuoteMeta(tableLookup)).WithArgs("app", "ghost").WillReturnRows(empty())
	mock.ExpectQuery(regexp.QuoteMeta(tableLookup)).WithArgs("public", "ghost").WillReturnRows(empty())
	mock.ExpectClose()

	_, err := s.CountRows(context.Background(), "ghost")
	assert.Equal(t, db.KindValidation, db.KindOf(err))
	assert.Equal(t, MsgInvalidTable, err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_GetTableSample_limits(t *testing.T) {
	tests := []struct {
		limit, want int
	}{
		{5, 5},
		{100, 100},
		{250, 100},
		{0, 0},
	}
	for _, tt := range tests {
		s, mock := newMockService(t, config.Default())
		expectTable(mock, "events")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "app"."events" LIMIT $1`)).
			WithArgs(tt.want).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectClose()

		res, err := s.GetTableSample(context.Background(), "events", tt.limit)
		require.NoError(t, err, "limit %d", tt.limit)
		text, _ := res.Text()
		assert.Equal(t, "[]", text)
		assert.NoError(t, mock.ExpectationsWereMet(), "limit %d", tt.limit)
	}
}

func TestService_SearchTable_bindsEscapedTerm(t *testing.T) {
	s, mock := newMockService(t, config.Default())
	expectTable(mock, "users")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 AND column_name = $3`)).
		WithArgs("app", "users", "email").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("email"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "app"."users" WHERE CAST("email" AS text) ILIKE $1 ESCAPE '\' LIMIT $2`)).
		WithArgs(`%50\%\_o'b\_%`, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(1, "50%_o'b_@x.com"))
	mock.ExpectClose()

	res, err := s.SearchTable(context.Background(), "users", "email", "50%_o'b_", 10)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_DescribeTable(t *testing.T) {
	s, mock := newMockService(t, config.Default())
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("public", "x'; DROP TABLE users; --").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}))
	mock.ExpectClose()

	res, err := s.DescribeTable(context.Background(), "x'; DROP TABLE users; --")
	require.NoError(t, err)
	text, _ := res.Text()
	assert.Equal(t, "[]", text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_TableSchema(t *testing.T) {
	cols := []string{"column_name", "data_type", "is_nullable", "column_default",
		"character_maximum_length", "numeric_precision", "numeric_scale"}

	t.Run("found", func(t *testing.T) {
		s, mock := newMockService(t, config.Default())
		mock.ExpectQuery("numeric_precision, numeric_scale").
			WithArgs("public", "users").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("id", "integer", "NO", "nextval('users_id_seq'::regclass)", nil, 32, 0).
				AddRow("email", "character varying", "YES", nil, 255, nil, nil))
		mock.ExpectClose()

		schema, err := s.TableSchema(context.Background(), "users")
		require.NoError(t, err)
		require.Len(t, schema.Columns, 2)
		name, _ := schema.Columns[0].Get("column_name")
		assert.Equal(t, "id", name)
		text, err := schema.Text()
		require.NoError(t, err)
		assert.Contains(t, text, `"table_name": "users"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockService(t, config.Default())
		mock.ExpectQuery("numeric_precision, numeric_scale").WillReturnRows(sqlmock.NewRows(cols))
		mock.ExpectClose()

		_, err := s.TableSchema(context.Background(), "ghost")
		assert.Equal(t, db.KindNotFound, db.KindOf(err))
		assert.Equal(t, "Table 'ghost' not found", err.Error())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestService_connectionFailure(t *testing.T) {
	cause := errors.New("connection refused")
	p, err := db.NewProvider(config.Default(),
		db.WithLogger(logger.Discard()),
		db.WithOpenFunc(func(context.Context) (*sql.DB, error) { return nil, cause }))
	require.NoError(t, err)
	s := New(p, config.Default(), nil)

	_, err = s.ListTables(context.Background())
	assert.Equal(t, db.KindConnection, db.KindOf(err))
	assert.Equal(t, "Database connection failed: connection refused", err.Error())
}
