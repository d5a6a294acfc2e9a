package fromrow

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/samber/lo"

	"github.com/donutnomad/rowgen/directive"
)

// ErrConstraint 注册时类型约束不满足
var ErrConstraint = errors.New("fromrow: unsatisfied constraint")

// ConstraintError 字段的类型约束不满足，Register 立即返回
type ConstraintError struct {
	Struct      string
	Field       string
	Requirement directive.Requirement
	Detail      string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("fromrow: %s.%s: %s: %s", e.Struct, e.Field, e.Requirement.Kind, e.Detail)
}

func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraint
}

// Option 注册选项
type Option func(*options)

type options struct {
	naming directive.Naming
}

// WithNaming 未重命名字段的列名规则，默认 snake
func WithNaming(n directive.Naming) Option {
	return func(o *options) {
		o.naming = n
	}
}

// Mapping 编译好的反射映射，可并发使用
type Mapping[T any] struct {
	plan *plan
}

// Register 编译 T 的映射。指令冲突返回 *directive.ConflictError，
// 类型约束不满足返回 *ConstraintError。结果按 (类型, 命名规则) 缓存。
func Register[T any](opts ...Option) (*Mapping[T], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("fromrow: Register: %s is not a struct", t)
	}
	p, err := compile(t, o.naming, map[reflect.Type]bool{})
	if err != nil {
		return nil, err
	}
	return &Mapping[T]{plan: p}, nil
}

// MustRegister 同 Register，失败时 panic
func MustRegister[T any](opts ...Option) *Mapping[T] {
	m, err := Register[T](opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Decode 以 prefix 解码，失败时不返回部分结果
func (m *Mapping[T]) Decode(row Row, prefix string) (T, error) {
	var v T
	if err := m.plan.decode(row, prefix, reflect.ValueOf(&v).Elem()); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// TryFromRow 无前缀解码
func (m *Mapping[T]) TryFromRow(row Row) (T, error) {
	return m.Decode(row, "")
}

// FromRow 同 TryFromRow，失败时 panic
func (m *Mapping[T]) FromRow(row Row) T {
	v, err := m.Decode(row, "")
	if err != nil {
		panic(fmt.Sprintf("fromrow: decode %s: %v", m.plan.typ, err))
	}
	return v
}

// IsAbsent prefix 下读取的列是否全部为 NULL
func (m *Mapping[T]) IsAbsent(row Row, prefix string) (bool, error) {
	return m.plan.isAbsent(row, prefix)
}

// Optional 列全部为 NULL 时返回 nil
func (m *Mapping[T]) Optional(row Row, prefix string) (*T, error) {
	absent, err := m.IsAbsent(row, prefix)
	if err != nil || absent {
		return nil, err
	}
	v, err := m.Decode(row, prefix)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Spec 解析后的结构体规格
func (m *Mapping[T]) Spec() *directive.StructSpec {
	return m.plan.spec
}

type planKey struct {
	typ    reflect.Type
	naming directive.Naming
}

var plans sync.Map // planKey -> *plan

var fromRowType = reflect.TypeFor[FromRow]()

// plan 编译结果，发布后不可变
type plan struct {
	typ    reflect.Type
	spec   *directive.StructSpec
	fields []fieldPlan
}

type fieldPlan struct {
	spec  directive.FieldSpec
	index int
	typ   reflect.Type // 声明类型

	// Plain
	target  reflect.Type  // 从列解码的类型
	fn      reflect.Value // from_fn
	convert convertKind

	// Flatten
	elem     reflect.Type // 嵌套类型，指针字段为元素类型
	protocol bool         // *elem 实现了 FromRow
	nested   *plan        // protocol 为 false 时使用
}

type convertKind int

const (
	convertNone convertKind = iota
	convertFrom
	convertTryFrom
	convertFunc
)

func compile(t reflect.Type, naming directive.Naming, visiting map[reflect.Type]bool) (*plan, error) {
	key := planKey{typ: t, naming: naming}
	if p, ok := plans.Load(key); ok {
		return p.(*plan), nil
	}
	visiting[t] = true
	defer delete(visiting, t)

	inputs := make([]directive.FieldInput, t.NumField())
	for i := range inputs {
		sf := t.Field(i)
		inputs[i] = directive.FieldInput{
			Name:     sf.Name,
			Type:     sf.Type.String(),
			Tag:      string(sf.Tag),
			Embedded: sf.Anonymous,
			Exported: sf.IsExported(),
		}
	}
	spec, err := directive.BuildStruct(t.Name(), inputs, naming)
	if err != nil {
		return nil, err
	}

	p := &plan{typ: t, spec: spec, fields: make([]fieldPlan, len(spec.Fields))}
	for i, fs := range spec.Fields {
		fp, err := compileField(t, i, fs, naming, visiting)
		if err != nil {
			return nil, err
		}
		p.fields[i] = fp
	}

	actual, _ := plans.LoadOrStore(key, p)
	return actual.(*plan), nil
}

func compileField(t reflect.Type, i int, fs directive.FieldSpec, naming directive.Naming, visiting map[reflect.Type]bool) (fieldPlan, error) {
	sf := t.Field(i)
	fp := fieldPlan{spec: fs, index: i, typ: sf.Type}

	fail := func(req directive.Requirement, format string, args ...any) error {
		return &ConstraintError{Struct: t.Name(), Field: fs.Name, Requirement: req, Detail: fmt.Sprintf(format, args...)}
	}

	if _, skip := fs.Directive.(directive.Skip); !skip && !sf.IsExported() {
		return fp, fail(directive.Requirement{Kind: directive.ReqDecodeColumn, Type: fs.Type}, "field is unexported")
	}

	switch d := fs.Directive.(type) {
	case directive.Plain:
		fp.target = sf.Type
		switch d.Conversion.Kind {
		case directive.ConvFrom, directive.ConvTryFrom:
			target, ok := lookupType(d.Conversion.Target)
			if !ok {
				return fp, fail(directive.Requirement{Kind: directive.ReqDecodeColumn, Type: fs.TargetType},
					"type %q is not registered, see RegisterType", d.Conversion.Target)
			}
			fp.target = target
			fp.convert = convertFrom
			if d.Conversion.Kind == directive.ConvTryFrom {
				fp.convert = convertTryFrom
			}
		case directive.ConvFromFunc:
			fn, ok := lookupFunc(d.Conversion.Target)
			if !ok {
				return fp, fail(directive.Requirement{Kind: directive.ReqFuncSignature, Func: d.Conversion.Target},
					"function %q is not registered, see RegisterFunc", d.Conversion.Target)
			}
			fp.fn = fn
			fp.target = fn.Type().In(0)
			fp.convert = convertFunc
		}
	case directive.Flatten:
		fp.elem = sf.Type
		if fs.Optional {
			fp.elem = sf.Type.Elem()
		}
		fp.protocol = reflect.PointerTo(fp.elem).Implements(fromRowType)
	}

	for _, req := range directive.Requirements(fs) {
		if err := fp.check(req, naming, visiting); err != nil {
			var ce *directive.ConflictError
			var ke *ConstraintError
			if errors.As(err, &ce) {
				if ce.Struct == "" {
					ce.Struct = t.Name()
				}
				return fp, err
			}
			if errors.As(err, &ke) {
				return fp, err
			}
			return fp, fail(req, "%s", err)
		}
	}
	return fp, nil
}

// contributes 是否至少有一个字段读取列
func (p *plan) contributes() bool {
	return lo.ContainsBy(p.spec.Fields, func(f directive.FieldSpec) bool {
		_, skip := f.Directive.(directive.Skip)
		return !skip
	})
}

func (fp *fieldPlan) flattenTarget(format string, args ...any) error {
	return &directive.ConflictError{Field: fp.spec.Name, Rule: directive.RuleFlattenTarget, Detail: fmt.Sprintf(format, args...)}
}

// check 校验一条约束，Flatten 的嵌套计划也在这里编译
func (fp *fieldPlan) check(req directive.Requirement, naming directive.Naming, visiting map[reflect.Type]bool) error {
	switch req.Kind {
	case directive.ReqDecodeColumn:
		t := fp.target
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		switch t.Kind() {
		case reflect.Func, reflect.Chan, reflect.UnsafePointer:
			return fmt.Errorf("%s cannot be decoded from a column", fp.target)
		}
	case directive.ReqProduceDefault:
		// Go 中任何类型都有零值
	case directive.ReqConvertFrom:
		if !fp.target.ConvertibleTo(fp.typ) {
			return fmt.Errorf("%s is not convertible to %s", fp.target, fp.typ)
		}
	case directive.ReqTryConvertFrom:
		m, ok := reflect.PointerTo(fp.typ).MethodByName("TryFrom")
		errType := reflect.TypeFor[error]()
		// m.Type 包含接收者
		if !ok || m.Type.NumIn() != 2 || m.Type.NumOut() != 1 ||
			m.Type.In(1) != fp.target || m.Type.Out(0) != errType {
			return fmt.Errorf("*%s has no method TryFrom(%s) error", fp.typ, fp.target)
		}
	case directive.ReqFuncSignature:
		ft := fp.fn.Type()
		if !ft.Out(0).AssignableTo(fp.typ) {
			return fmt.Errorf("result %s of %s is not assignable to %s", ft.Out(0), req.Func, fp.typ)
		}
	case directive.ReqMappingProtocol:
		if fp.protocol {
			return nil
		}
		if directive.StdlibPackage(fp.elem.PkgPath()) {
			return fp.flattenTarget("%s is a standard library type and does not implement fromrow.FromRow", fp.elem)
		}
		if fp.elem.Kind() != reflect.Struct {
			return fp.flattenTarget("%s is not a struct and does not implement fromrow.FromRow", fp.elem)
		}
		if visiting[fp.elem] {
			return fmt.Errorf("recursive flatten of %s", fp.elem)
		}
		nested, err := compile(fp.elem, naming, visiting)
		if err != nil {
			return err
		}
		if !nested.contributes() {
			return fp.flattenTarget("%s has no decodable fields and does not implement fromrow.FromRow", fp.elem)
		}
		fp.nested = nested
	}
	return nil
}
