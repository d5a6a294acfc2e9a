package fromrow

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"sort"
)

// MapRow 内存中的一行，保留列顺序
type MapRow struct {
	columns []string
	values  map[string]any
}

var _ Row = (*MapRow)(nil)

// NewMapRow 由 map 构造，列按名称排序
func NewMapRow(values map[string]any) *MapRow {
	columns := make([]string, 0, len(values))
	copied := make(map[string]any, len(values))
	for k, v := range values {
		columns = append(columns, k)
		copied[k] = v
	}
	sort.Strings(columns)
	return &MapRow{columns: columns, values: copied}
}

// NewMapRowOrdered 按列顺序构造，重名列以第一次出现为准
func NewMapRowOrdered(columns []string, values []any) (*MapRow, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("fromrow: %d columns but %d values", len(columns), len(values))
	}
	r := &MapRow{
		columns: make([]string, 0, len(columns)),
		values:  make(map[string]any, len(columns)),
	}
	for i, c := range columns {
		if _, dup := r.values[c]; dup {
			continue
		}
		r.columns = append(r.columns, c)
		r.values[c] = values[i]
	}
	return r, nil
}

// Columns 列名
func (r *MapRow) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Value 原始值
func (r *MapRow) Value(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

func (r *MapRow) Get(name string, dest any) error {
	v, ok := r.values[name]
	if !ok {
		return MissingColumn(name)
	}
	return assign(name, dest, v)
}

func (r *MapRow) IsNull(name string) (bool, error) {
	v, ok := r.values[name]
	if !ok {
		return false, MissingColumn(name)
	}
	v, err := normalize(v)
	if err != nil {
		return false, fmt.Errorf("fromrow: column %q: %w", name, err)
	}
	return isNull(v), nil
}

func (r *MapRow) String() string {
	return fmt.Sprintf("MapRow%v", r.columns)
}

// normalize 展开 driver.Valuer
func normalize(v any) (any, error) {
	if valuer, ok := v.(driver.Valuer); ok {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, nil
		}
		return valuer.Value()
	}
	return v, nil
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
