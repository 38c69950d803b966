package tools

import (
	"encoding/json"
	"fmt"

	"github.com/SedlarDavid/sqltools-mcp/internal/db"
)

// QueryResult is the success payload of a statement: rows for a SELECT,
// an affected-row count for INSERT, UPDATE and DELETE.
type QueryResult struct {
	Rows         db.Rows
	RowsAffected int64
	Mutation     bool
}

// Text renders rows as a JSON array indented by two spaces, or the
// affected-row message for mutations.
func (r *QueryResult) Text() (string, error) {
	if r.Mutation {
		return fmt.Sprintf("Success: %d row(s) affected.", r.RowsAffected), nil
	}
	return indentJSON(r.Rows)
}

// TableSchema is the payload of the schema resource.
type TableSchema struct {
	TableName string  `json:"table_name"`
	Columns   db.Rows `json:"columns"`
}

// Text renders the schema as indented JSON.
func (s *TableSchema) Text() (string, error) {
	return indentJSON(s)
}

func indentJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", db.NewError(db.KindSerialization, "serialize", "", err)
	}
	return string(b), nil
}
