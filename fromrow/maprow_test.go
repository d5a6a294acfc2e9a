package fromrow_test

import (
	"database/sql"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donutnomad/rowgen/fromrow"
)

func TestMapRow_Get(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	n := int64(9)
	row := fromrow.NewMapRow(map[string]any{
		"int64":   int64(5),
		"bytes":   []byte("abc"),
		"numstr":  "42",
		"one":     int64(1),
		"null":    nil,
		"big":     int64(300),
		"word":    "x",
		"rfc3339": "2024-01-02T03:04:05Z",
		"uuid":    id.String(),
		"ptr":     &n,
		"valuer":  sql.NullInt64{Int64: 3, Valid: true},
		"float":   float64(1.5),
	})

	var i int
	require.NoError(t, row.Get("int64", &i))
	assert.Equal(t, 5, i)

	var s string
	require.NoError(t, row.Get("bytes", &s))
	assert.Equal(t, "abc", s)

	require.NoError(t, row.Get("numstr", &i))
	assert.Equal(t, 42, i)

	var b bool
	require.NoError(t, row.Get("one", &b))
	assert.True(t, b)

	var ps *string
	require.NoError(t, row.Get("bytes", &ps))
	require.NotNil(t, ps)
	assert.Equal(t, "abc", *ps)
	require.NoError(t, row.Get("null", &ps))
	assert.Nil(t, ps)

	var ts time.Time
	require.NoError(t, row.Get("rfc3339", &ts))
	assert.True(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Equal(ts))

	var u uuid.UUID
	require.NoError(t, row.Get("uuid", &u))
	assert.Equal(t, id, u)

	var ns sql.NullString
	require.NoError(t, row.Get("null", &ns))
	assert.False(t, ns.Valid)
	require.NoError(t, row.Get("word", &ns))
	assert.Equal(t, sql.NullString{String: "x", Valid: true}, ns)

	var i64 int64
	require.NoError(t, row.Get("ptr", &i64))
	assert.Equal(t, int64(9), i64)

	require.NoError(t, row.Get("valuer", &i))
	assert.Equal(t, 3, i)

	var f float32
	require.NoError(t, row.Get("float", &f))
	assert.Equal(t, float32(1.5), f)

	var raw any
	require.NoError(t, row.Get("word", &raw))
	assert.Equal(t, "x", raw)
}

func TestMapRow_GetErrors(t *testing.T) {
	row := fromrow.NewMapRow(map[string]any{
		"null": nil,
		"big":  int64(300),
		"word": "x",
	})

	var s string
	err := row.Get("missing", &s)
	assert.True(t, errors.Is(err, fromrow.ErrMissingColumn))
	assert.EqualError(t, err, `fromrow: column "missing": missing`)

	err = row.Get("null", &s)
	assert.True(t, errors.Is(err, fromrow.ErrNullOnNonNullable))
	assert.EqualError(t, err, `fromrow: column "null": NULL into non-nullable string`)

	var i8 int8
	err = row.Get("big", &i8)
	assert.True(t, errors.Is(err, fromrow.ErrTypeMismatch))

	var i int
	err = row.Get("word", &i)
	var fe *fromrow.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fromrow.KindTypeMismatch, fe.Kind)
	assert.Equal(t, "word", fe.Column)
	assert.Equal(t, "int", fe.Expected)
	assert.Equal(t, "string", fe.Found)

	var st struct{ A int }
	err = row.Get("word", &st)
	assert.True(t, errors.Is(err, fromrow.ErrTypeMismatch))

	assert.Error(t, row.Get("word", s))
}

func TestMapRow_GetNumeric(t *testing.T) {
	tests := []struct {
		name    string
		src     any
		dest    func() any
		want    any
		wantErr bool
	}{
		{"整数浮点", float64(42), func() any { return new(int64) }, int64(42), false},
		{"负整数浮点", float64(-7), func() any { return new(int) }, -7, false},
		{"小数截断", float64(3.9), func() any { return new(int64) }, nil, true},
		{"float32 小数", float32(0.5), func() any { return new(int32) }, nil, true},
		{"浮点越界", float64(1.8e19), func() any { return new(int64) }, nil, true},
		{"2^63 越界", float64(9223372036854775808), func() any { return new(int64) }, nil, true},
		{"浮点超出 int8", float64(200), func() any { return new(int8) }, nil, true},
		{"无穷大", math.Inf(1), func() any { return new(int64) }, nil, true},
		{"NaN", math.NaN(), func() any { return new(int64) }, nil, true},
		{"十进制字符串", "010", func() any { return new(int) }, 10, false},
		{"十六进制字符串", "0x10", func() any { return new(int) }, nil, true},
		{"字节串", []byte("12"), func() any { return new(int16) }, int16(12), false},
		{"无符号越界 int64", uint64(math.MaxUint64), func() any { return new(int64) }, nil, true},
		{"无符号", float64(1.8e19), func() any { return new(uint64) }, uint64(18000000000000000000), false},
		{"负数到无符号", int64(-1), func() any { return new(uint32) }, nil, true},
		{"负浮点到无符号", float64(-1), func() any { return new(uint) }, nil, true},
		{"无符号字符串", "010", func() any { return new(uint8) }, uint8(10), false},
		{"无符号超出 uint8", int64(256), func() any { return new(uint8) }, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := fromrow.NewMapRow(map[string]any{"n": tt.src})
			dest := tt.dest()
			err := row.Get("n", dest)
			if tt.wantErr {
				assert.True(t, errors.Is(err, fromrow.ErrTypeMismatch), "err=%v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, reflect.ValueOf(dest).Elem().Interface())
		})
	}
}

func TestMapRow_IsNull(t *testing.T) {
	var nilPtr *int
	row := fromrow.NewMapRow(map[string]any{
		"a":     nil,
		"b":     0,
		"ptr":   nilPtr,
		"valid": sql.NullString{},
	})

	null, err := row.IsNull("a")
	require.NoError(t, err)
	assert.True(t, null)

	null, err = row.IsNull("b")
	require.NoError(t, err)
	assert.False(t, null)

	null, err = row.IsNull("ptr")
	require.NoError(t, err)
	assert.True(t, null)

	null, err = row.IsNull("valid")
	require.NoError(t, err)
	assert.True(t, null)

	_, err = row.IsNull("c")
	assert.True(t, errors.Is(err, fromrow.ErrMissingColumn))
}

func TestNewMapRowOrdered(t *testing.T) {
	row, err := fromrow.NewMapRowOrdered([]string{"id", "name", "id"}, []any{1, "a", 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, row.Columns())

	v, ok := row.Value("id")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, err = fromrow.NewMapRowOrdered([]string{"id"}, nil)
	assert.Error(t, err)

	assert.Equal(t, []string{"a", "b"}, fromrow.NewMapRow(map[string]any{"b": 1, "a": 2}).Columns())
}
