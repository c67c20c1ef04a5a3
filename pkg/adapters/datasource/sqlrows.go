package datasource

import (
	"database/sql"
	"strconv"
	"strings"
)

// ScanRows drains a database/sql result set into a QueryResult. Text-typed
// columns arrive from several drivers as []byte; those are converted to
// strings so results serialize as text rather than base64. Genuinely binary
// columns keep their []byte values. DECIMAL and NUMERIC columns are parsed
// to float64 to match how numeric values travel over the wire.
func ScanRows(rows *sql.Rows) (*QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	binary := make([]bool, len(cols))
	numeric := make([]bool, len(cols))
	for i, t := range types {
		name := strings.ToUpper(t.DatabaseTypeName())
		binary[i] = isBinaryType(name)
		numeric[i] = isDecimalType(name)
	}

	result := &QueryResult{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make([]any, len(cols))
		for i, v := range values {
			row[i] = normalizeValue(v, binary[i], numeric[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

func normalizeValue(v any, binary, numeric bool) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if binary {
		return b
	}
	s := string(b)
	if numeric {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

func isBinaryType(name string) bool {
	switch name {
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB",
		"BINARY", "VARBINARY", "IMAGE", "BYTEA":
		return true
	}
	return false
}

func isDecimalType(name string) bool {
	switch name {
	case "DECIMAL", "NUMERIC", "NEWDECIMAL", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}
