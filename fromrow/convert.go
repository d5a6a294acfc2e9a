package fromrow

import (
	"database/sql"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

var (
	timeType    = reflect.TypeFor[time.Time]()
	bytesType   = reflect.TypeFor[[]byte]()
	scannerType = reflect.TypeFor[sql.Scanner]()
)

// assign 将行中的原始值写入 dest
//
// 顺序：sql.Scanner、NULL、直接赋值、指针、[]byte/string、time.Time、基础类型转换。
func assign(column string, dest any, src any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("fromrow: column %q: destination must be a non-nil pointer, got %T", column, dest)
	}
	return assignValue(column, dv.Elem(), src)
}

func assignValue(column string, dst reflect.Value, src any) error {
	if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
		v, err := normalize(src)
		if err != nil {
			return &Error{Kind: KindTypeMismatch, Column: column, Expected: dst.Type().String(), Found: fmt.Sprintf("%T", src), Cause: err}
		}
		if err := dst.Addr().Interface().(sql.Scanner).Scan(v); err != nil {
			return &Error{Kind: KindTypeMismatch, Column: column, Expected: dst.Type().String(), Found: fmt.Sprintf("%T", v), Cause: err}
		}
		return nil
	}

	src, err := normalize(src)
	if err != nil {
		return &Error{Kind: KindTypeMismatch, Column: column, Expected: dst.Type().String(), Found: fmt.Sprintf("%T", src), Cause: err}
	}
	if isNull(src) {
		switch dst.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		return NullOnNonNullable(column, dst.Type().String())
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dst.Type()) {
		if sv.Type() == bytesType {
			dst.Set(reflect.ValueOf(append([]byte(nil), src.([]byte)...)).Convert(dst.Type()))
			return nil
		}
		dst.Set(sv)
		return nil
	}
	if sv.Kind() == reflect.Pointer {
		return assignValue(column, dst, sv.Elem().Interface())
	}
	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assignValue(column, elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	mismatch := func(cause error) error {
		return &Error{Kind: KindTypeMismatch, Column: column, Expected: dst.Type().String(), Found: sv.Type().String(), Cause: cause}
	}

	// []byte <-> string
	switch {
	case dst.Kind() == reflect.String && sv.Kind() == reflect.Slice && sv.Type().Elem().Kind() == reflect.Uint8:
		dst.SetString(string(sv.Bytes()))
		return nil
	case dst.Kind() == reflect.Slice && dst.Type().Elem().Kind() == reflect.Uint8 && sv.Kind() == reflect.String:
		dst.SetBytes([]byte(sv.String()))
		return nil
	}

	if dst.Type() == timeType {
		t, err := cast.ToTimeE(src)
		if err != nil {
			return mismatch(err)
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}

	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(src)
		if err != nil {
			return mismatch(err)
		}
		if dst.OverflowInt(n) {
			return mismatch(fmt.Errorf("value %d overflows", n))
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toUint64(src)
		if err != nil {
			return mismatch(err)
		}
		if dst.OverflowUint(n) {
			return mismatch(fmt.Errorf("value %d overflows", n))
		}
		dst.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(src)
		if err != nil {
			return mismatch(err)
		}
		if dst.OverflowFloat(f) {
			return mismatch(fmt.Errorf("value %g overflows", f))
		}
		dst.SetFloat(f)
	case reflect.Bool:
		b, err := cast.ToBoolE(src)
		if err != nil {
			return mismatch(err)
		}
		dst.SetBool(b)
	case reflect.String:
		s, err := cast.ToStringE(src)
		if err != nil {
			return mismatch(err)
		}
		dst.SetString(s)
	default:
		return TypeMismatch(column, dst.Type().String(), sv.Type().String())
	}
	return nil
}

// toInt64 整数目标的无损转换：浮点必须是范围内的整数，字符串按十进制解析
func toInt64(src any) (int64, error) {
	switch v := src.(type) {
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case string:
		return strconv.ParseInt(v, 10, 64)
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	}
	if rv := reflect.ValueOf(src); rv.CanUint() {
		if rv.Uint() > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", rv.Uint())
		}
		return int64(rv.Uint()), nil
	}
	return cast.ToInt64E(src)
}

// toUint64 同 toInt64，负数报错
func toUint64(src any) (uint64, error) {
	switch v := src.(type) {
	case float32:
		return floatToUint64(float64(v))
	case float64:
		return floatToUint64(v)
	case string:
		return strconv.ParseUint(v, 10, 64)
	case []byte:
		return strconv.ParseUint(string(v), 10, 64)
	}
	if rv := reflect.ValueOf(src); rv.CanInt() {
		if rv.Int() < 0 {
			return 0, fmt.Errorf("negative value %d", rv.Int())
		}
		return uint64(rv.Int()), nil
	}
	return cast.ToUint64E(src)
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %g is not an integer", f)
	}
	// float64(math.MaxInt64) 向上取整为 2^63
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("value %g overflows int64", f)
	}
	return int64(f), nil
}

func floatToUint64(f float64) (uint64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %g is not an integer", f)
	}
	if f < 0 || f >= math.MaxUint64 {
		return 0, fmt.Errorf("value %g overflows uint64", f)
	}
	return uint64(f), nil
}
