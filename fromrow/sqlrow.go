package fromrow

import (
	"database/sql"
	"fmt"
)

// ScanSQL 将 rows 当前行读入 MapRow，调用方负责 rows.Next
func ScanSQL(rows *sql.Rows) (*MapRow, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("fromrow: read columns: %w", err)
	}
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("fromrow: scan row: %w", err)
	}
	return NewMapRowOrdered(columns, values)
}

// CollectWith 逐行解码直到 rows 结束，结束后关闭 rows
func CollectWith[T any](rows *sql.Rows, decode func(Row) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		row, err := ScanSQL(rows)
		if err != nil {
			return nil, err
		}
		v, err := decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fromrow: iterate rows: %w", err)
	}
	return out, nil
}

// Collect 使用映射协议逐行解码
func Collect[T any, PT ptrFromRow[T]](rows *sql.Rows) ([]T, error) {
	return CollectWith(rows, TryFrom[T, PT])
}
