package fromrow

import (
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ScanPgx 将 pgx 当前行读入 MapRow
func ScanPgx(row pgx.CollectableRow) (*MapRow, error) {
	values, err := row.Values()
	if err != nil {
		return nil, fmt.Errorf("fromrow: read pgx values: %w", err)
	}
	fields := row.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}
	return NewMapRowOrdered(columns, values)
}

// PgxRowTo 供 pgx.CollectRows 使用：
//
//	todos, err := pgx.CollectRows(rows, fromrow.PgxRowTo[Todo])
func PgxRowTo[T any, PT ptrFromRow[T]](row pgx.CollectableRow) (T, error) {
	r, err := ScanPgx(row)
	if err != nil {
		var zero T
		return zero, err
	}
	return TryFrom[T, PT](r)
}

// PgxRowWith 使用反射映射，供 pgx.CollectRows 使用
func PgxRowWith[T any](m *Mapping[T]) pgx.RowToFunc[T] {
	return func(row pgx.CollectableRow) (T, error) {
		r, err := ScanPgx(row)
		if err != nil {
			var zero T
			return zero, err
		}
		return m.TryFromRow(r)
	}
}
