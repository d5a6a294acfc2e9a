package fromrow

import (
	"fmt"
	"reflect"
	"sync"
	"time"
)

// from/try_from 的中间类型名和 from_fn 的函数名，供反射映射按名称查找
var (
	registryMu sync.RWMutex
	typeNames  = map[string]reflect.Type{
		"bool":      reflect.TypeFor[bool](),
		"string":    reflect.TypeFor[string](),
		"int":       reflect.TypeFor[int](),
		"int8":      reflect.TypeFor[int8](),
		"int16":     reflect.TypeFor[int16](),
		"int32":     reflect.TypeFor[int32](),
		"int64":     reflect.TypeFor[int64](),
		"uint":      reflect.TypeFor[uint](),
		"uint8":     reflect.TypeFor[uint8](),
		"uint16":    reflect.TypeFor[uint16](),
		"uint32":    reflect.TypeFor[uint32](),
		"uint64":    reflect.TypeFor[uint64](),
		"float32":   reflect.TypeFor[float32](),
		"float64":   reflect.TypeFor[float64](),
		"byte":      reflect.TypeFor[byte](),
		"rune":      reflect.TypeFor[rune](),
		"[]byte":    reflect.TypeFor[[]byte](),
		"time.Time": reflect.TypeFor[time.Time](),
		"any":       reflect.TypeFor[any](),
	}
	funcNames = map[string]reflect.Value{}
)

// RegisterType 注册中间类型名，name 为空时使用 T 的类型字符串
func RegisterType[T any](name string) {
	t := reflect.TypeFor[T]()
	if name == "" {
		name = t.String()
	}
	registryMu.Lock()
	typeNames[name] = t
	registryMu.Unlock()
}

// RegisterFunc 注册 from_fn 使用的转换函数，fn 必须是一元单返回值函数
func RegisterFunc(name string, fn any) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Errorf("fromrow: RegisterFunc %q: %T is not a function", name, fn)
	}
	if t := v.Type(); t.NumIn() != 1 || t.NumOut() != 1 || t.IsVariadic() {
		return fmt.Errorf("fromrow: RegisterFunc %q: want func(S) T, got %s", name, t)
	}
	registryMu.Lock()
	funcNames[name] = v
	registryMu.Unlock()
	return nil
}

func lookupType(name string) (reflect.Type, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := typeNames[name]
	return t, ok
}

func lookupFunc(name string) (reflect.Value, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	v, ok := funcNames[name]
	return v, ok
}
