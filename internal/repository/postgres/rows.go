package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"confdesk/internal/domain"
)

// CollectRows projects a row set into ordered JSON-ready rows, renaming the
// columns to the caller-supplied protocol names. The supported column types
// form a closed set: text, 32-bit integer, 64-bit integer, and timestamp
// (rendered in the fixed wire format). A column of any other type yields an
// embedded error object in its place instead of failing the response.
func CollectRows(rows *sql.Rows, names []string) ([]domain.Row, error) {
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, domain.WrapStoreError(err)
	}
	columns, err := rows.Columns()
	if err != nil {
		return nil, domain.WrapStoreError(err)
	}

	out := make([]domain.Row, 0)
	for rows.Next() {
		dest := make([]any, len(types))
		for i, ct := range types {
			switch ct.DatabaseTypeName() {
			case "TEXT", "VARCHAR", "BPCHAR", "CHAR", "NAME":
				dest[i] = new(sql.NullString)
			case "INT2", "INT4":
				dest[i] = new(sql.NullInt32)
			case "INT8":
				dest[i] = new(sql.NullInt64)
			case "TIMESTAMP", "TIMESTAMPTZ", "DATE":
				dest[i] = new(sql.NullTime)
			default:
				dest[i] = new(any)
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, domain.WrapStoreError(err)
		}

		row := make(domain.Row, 0, len(types))
		for i, ct := range types {
			name := columns[i]
			if i < len(names) {
				name = names[i]
			}
			row = append(row, domain.Field{Name: name, Value: fieldValue(ct.DatabaseTypeName(), dest[i])})
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapStoreError(err)
	}
	return out, nil
}

func fieldValue(typeName string, dest any) any {
	switch v := dest.(type) {
	case *sql.NullString:
		if !v.Valid {
			return nil
		}
		return v.String
	case *sql.NullInt32:
		if !v.Valid {
			return nil
		}
		return v.Int32
	case *sql.NullInt64:
		if !v.Valid {
			return nil
		}
		return v.Int64
	case *sql.NullTime:
		if !v.Valid {
			return nil
		}
		return FormatTimestamp(v.Time)
	}
	return domain.Error("unknown datatypename " + typeName)
}

// FormatTimestamp renders t in the wire format the external consumers parse:
// no field is zero-padded. Go time layouts cannot express a non-padded
// 24-hour clock, hence the manual formatting.
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d %d:%d:%d",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}
