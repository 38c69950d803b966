package db

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// TimeLayout is how timestamps appear in results.
const TimeLayout = "2006-01-02 15:04:05.999999999-07:00"

// Row is one result row. Columns keep the order the database returned them in.
type Row struct {
	Columns []string
	Values  []any
}

// Rows is a result set.
type Rows []Row

// Get returns the value of column name.
func (r Row) Get(name string) (any, bool) {
	for i, c := range r.Columns {
		if c == name {
			return r.Values[i], true
		}
	}
	return nil, false
}

// MarshalJSON writes the row as an object with keys in column order.
// Values that encoding/json rejects are written as their fmt.Sprint form.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.Values[i])
		if err != nil {
			v, err = json.Marshal(fmt.Sprint(r.Values[i]))
			if err != nil {
				return nil, err
			}
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON keeps an empty result as [] rather than null.
func (rs Rows) MarshalJSON() ([]byte, error) {
	if rs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Row(rs))
}

// scanRows reads every row from rows. Duplicate column names keep the
// position of the first occurrence and the value of the last.
func scanRows(rows *sql.Rows) (Rows, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	names, slot := uniqueColumns(cols)

	out := Rows{}
	scan := make([]any, len(cols))
	for i := range scan {
		scan[i] = new(any)
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}
		vals := make([]any, len(names))
		for i := range cols {
			vals[slot[i]] = normalize(*(scan[i].(*any)))
		}
		out = append(out, Row{Columns: names, Values: vals})
	}
	return out, rows.Err()
}

func uniqueColumns(cols []string) ([]string, []int) {
	names := make([]string, 0, len(cols))
	slot := make([]int, len(cols))
	seen := make(map[string]int, len(cols))
	for i, c := range cols {
		if j, ok := seen[c]; ok {
			slot[i] = j
			continue
		}
		seen[c] = len(names)
		slot[i] = len(names)
		names = append(names, c)
	}
	return names, slot
}

// normalize converts driver values that have no natural JSON form.
func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(TimeLayout)
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}
