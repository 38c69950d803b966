package db

import (
	"strings"
	"testing"
)

func TestMySQL_QualifiedName(t *testing.T) {
	tests := []struct {
		schema, table string
		want          string
	}{
		{"", "users", "`users`"},
		{"mydb", "users", "`mydb`.`users`"},
		{"", "user`name", "`user``name`"},
	}
	for _, tt := range tests {
		got := QualifiedName(MySQL{}, tt.schema, tt.table)
		if got != tt.want {
			t.Errorf("QualifiedName(%q, %q) = %q, want %q", tt.schema, tt.table, got, tt.want)
		}
	}
}

func TestMySQL_Queries(t *testing.T) {
	m := MySQL{}
	if m.SessionInit([]string{""}) != nil {
		t.Error("MySQL needs no session init")
	}

	q, args := m.TableLookupQuery("", "users")
	if !strings.Contains(q, "TABLE_SCHEMA = DATABASE()") || len(args) != 1 {
		t.Errorf("TableLookupQuery = %q %v", q, args)
	}
	q, args = m.TableLookupQuery("shop", "users")
	if !strings.Contains(q, "TABLE_SCHEMA = ?") || len(args) != 2 {
		t.Errorf("TableLookupQuery(shop) = %q %v", q, args)
	}

	q, args = m.SampleQuery("`users`", 5)
	if q != "SELECT * FROM `users` LIMIT ?" || args[0] != 5 {
		t.Errorf("SampleQuery = %q %v", q, args)
	}

	q, args = m.SearchQuery("`users`", "`email`", "%bob%", 10)
	if q != "SELECT * FROM `users` WHERE LOWER(CAST(`email` AS CHAR)) LIKE LOWER(?) LIMIT ?" {
		t.Errorf("SearchQuery = %q", q)
	}
	if args[0] != "%bob%" || args[1] != 10 {
		t.Errorf("SearchQuery args = %v", args)
	}

	q, _ = m.ListTablesQuery(nil)
	if !strings.Contains(q, "TABLE_NAME AS table_name") {
		t.Errorf("ListTablesQuery must alias to lower-case keys: %q", q)
	}
}
