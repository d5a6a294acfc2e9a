package fromrow

import (
	"fmt"
	"reflect"
)

// DefaultOf 类型的默认值：零值，*T 实现 Defaulter 时再调用 RowDefault
func DefaultOf[T any]() T {
	var v T
	if d, ok := any(&v).(Defaulter); ok {
		d.RowDefault()
	}
	return v
}

// Get 解码单列
func Get[T any](row Row, name string) (T, error) {
	var v T
	if err := row.Get(name, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// GetOrDefault 列为 NULL 时返回 DefaultOf[T]，否则同 Get
//
// 列不存在时仍然返回 KindMissingColumn。
func GetOrDefault[T any](row Row, name string) (T, error) {
	null, err := row.IsNull(name)
	if err != nil {
		var zero T
		return zero, err
	}
	if null {
		return DefaultOf[T](), nil
	}
	return Get[T](row, name)
}

// GetTryFrom 解码为 S 后调用 (*T).TryFrom，转换错误包装为 KindConversionFailed
func GetTryFrom[T, S any, PT interface {
	*T
	TryFromer[S]
}](row Row, name string) (T, error) {
	src, err := Get[S](row, name)
	if err != nil {
		var zero T
		return zero, err
	}
	return tryConvert[T, S, PT](name, src)
}

// GetTryFromOrDefault 同 GetTryFrom，列为 NULL 时对 DefaultOf[S] 做转换
func GetTryFromOrDefault[T, S any, PT interface {
	*T
	TryFromer[S]
}](row Row, name string) (T, error) {
	src, err := GetOrDefault[S](row, name)
	if err != nil {
		var zero T
		return zero, err
	}
	return tryConvert[T, S, PT](name, src)
}

func tryConvert[T, S any, PT interface {
	*T
	TryFromer[S]
}](name string, src S) (T, error) {
	var v T
	if err := PT(&v).TryFrom(src); err != nil {
		var zero T
		return zero, ConversionFailed(name, typeName[T](), err)
	}
	return v, nil
}

// Apply 解码为 fn 的参数类型后调用 fn，供 from_fn 使用
func Apply[S, T any](row Row, name string, fn func(S) T) (T, error) {
	src, err := Get[S](row, name)
	if err != nil {
		var zero T
		return zero, err
	}
	return fn(src), nil
}

// ApplyOrDefault 同 Apply，列为 NULL 时对 DefaultOf[S] 调用 fn
func ApplyOrDefault[S, T any](row Row, name string, fn func(S) T) (T, error) {
	src, err := GetOrDefault[S](row, name)
	if err != nil {
		var zero T
		return zero, err
	}
	return fn(src), nil
}

// TryFrom 无前缀解码整行
func TryFrom[T any, PT ptrFromRow[T]](row Row) (T, error) {
	return TryFromPrefixed[T, PT](row, "")
}

// TryFromPrefixed 以 prefix 解码整行
func TryFromPrefixed[T any, PT ptrFromRow[T]](row Row, prefix string) (T, error) {
	var v T
	if err := PT(&v).TryFromRowPrefixed(row, prefix); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// From 同 TryFrom，失败时 panic
func From[T any, PT ptrFromRow[T]](row Row) T {
	return FromPrefixed[T, PT](row, "")
}

// FromPrefixed 同 TryFromPrefixed，失败时 panic
func FromPrefixed[T any, PT ptrFromRow[T]](row Row, prefix string) T {
	v, err := TryFromPrefixed[T, PT](row, prefix)
	if err != nil {
		panic(fmt.Sprintf("fromrow: decode %s: %v", typeName[T](), err))
	}
	return v
}

// IsAllNull T 在 prefix 下读取的列是否全部为 NULL
func IsAllNull[T any, PT ptrFromRow[T]](row Row, prefix string) (bool, error) {
	return PT(new(T)).IsAllNull(row, prefix)
}

// Optional 嵌套列全部为 NULL 时返回 nil，否则解码
func Optional[T any, PT ptrFromRow[T]](row Row, prefix string) (*T, error) {
	absent, err := IsAllNull[T, PT](row, prefix)
	if err != nil || absent {
		return nil, err
	}
	v, err := TryFromPrefixed[T, PT](row, prefix)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// OptionalOrDefault 嵌套列全部为 NULL 时返回 DefaultOf[T]，否则解码
func OptionalOrDefault[T any, PT ptrFromRow[T]](row Row, prefix string) (T, error) {
	absent, err := IsAllNull[T, PT](row, prefix)
	if err != nil {
		var zero T
		return zero, err
	}
	if absent {
		return DefaultOf[T](), nil
	}
	return TryFromPrefixed[T, PT](row, prefix)
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
