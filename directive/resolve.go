package directive

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/types"
	"strings"

	"github.com/donutnomad/rowgen/internal/utils"
)

// Naming 未重命名字段的列名推导规则
type Naming int

const (
	NamingSnake Naming = iota // AuthorID -> author_id，与 GORM 一致
	NamingExact               // 字段名原样作为列名
)

func (n Naming) String() string {
	switch n {
	case NamingExact:
		return "exact"
	default:
		return "snake"
	}
}

// ParseNaming 解析命名规则，空字符串为 snake
func ParseNaming(s string) (Naming, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "snake":
		return NamingSnake, nil
	case "exact":
		return NamingExact, nil
	default:
		return NamingSnake, fmt.Errorf("fromrow: unknown naming %q (want snake or exact)", s)
	}
}

// Column 字段名到列名
func (n Naming) Column(field string) string {
	if n == NamingExact {
		return field
	}
	return utils.ToSnakeCase(field)
}

// FieldInput 解析一个字段所需的输入，来自源码解析或反射
type FieldInput struct {
	Name     string
	Type     string // 声明类型的表达式形式，如 "*User"、"sql.NullString"
	Tag      string // 完整的 struct tag
	Embedded bool
	Exported bool
}

// FieldSpec 已解析的字段规格，构造后不可变
type FieldSpec struct {
	Name      string
	Type      string    // 声明类型
	Directive Directive // 恰好一种指令

	// Column 未加前缀的列名，仅 Plain 有意义；Flatten 用于推导 PrefixField 前缀
	Column string
	// TargetType 从行中解码的类型：from/try_from 为中间类型，from_fn 为空（由函数签名推断），
	// Flatten 为嵌套类型（指针字段取元素类型），其余为声明类型
	TargetType string
	// LocalPrefix Flatten 字段追加到继承前缀后的部分
	LocalPrefix string
	// Optional 指针 Flatten 字段，嵌套列全为 NULL 时为 nil
	Optional bool
	Embedded bool
}

// ColumnName 带继承前缀的完整列名
func (f FieldSpec) ColumnName(inherited string) string {
	return inherited + f.Column
}

// ChildPrefix 传给嵌套类型的前缀
func (f FieldSpec) ChildPrefix(inherited string) string {
	return inherited + f.LocalPrefix
}

// Conversion Plain 字段的转换，其他指令返回 ConvNone
func (f FieldSpec) Conversion() Conversion {
	if p, ok := f.Directive.(Plain); ok {
		return p.Conversion
	}
	return Conversion{}
}

// HasDefault 是否带 default
func (f FieldSpec) HasDefault() bool {
	switch d := f.Directive.(type) {
	case Plain:
		return d.Default
	case Flatten:
		return d.Default
	}
	return false
}

// StructSpec 结构体规格，字段保持声明顺序
type StructSpec struct {
	Name   string
	Fields []FieldSpec
}

// Resolve 解析单个字段
//
// 没有 fromrow tag 的匿名字段视为继承前缀的 flatten，没有 tag 的未导出字段视为 skip。
func Resolve(in FieldInput, naming Naming) (FieldSpec, error) {
	tag, hasTag := LookupTag(in.Tag)

	var d Directive
	switch {
	case !hasTag && in.Embedded:
		d = Flatten{}
	case !hasTag && !in.Exported:
		d = Skip{}
	default:
		var err error
		d, err = Parse(in.Name, tag)
		if err != nil {
			return FieldSpec{}, err
		}
	}

	spec := FieldSpec{
		Name:      in.Name,
		Type:      in.Type,
		Directive: d,
		Embedded:  in.Embedded,
	}

	switch d := d.(type) {
	case Plain:
		spec.Column = d.Rename
		if spec.Column == "" {
			spec.Column = naming.Column(in.Name)
		}
		switch d.Conversion.Kind {
		case ConvNone:
			spec.TargetType = in.Type
		case ConvFrom, ConvTryFrom:
			spec.TargetType = d.Conversion.Target
		case ConvFromFunc:
			spec.TargetType = ""
		}
	case Flatten:
		spec.Column = naming.Column(in.Name)
		elem, isPtr := strings.CutPrefix(strings.TrimSpace(in.Type), "*")
		spec.TargetType = strings.TrimSpace(elem)
		spec.Optional = isPtr
		if !namedType(spec.TargetType) {
			return FieldSpec{}, conflict(in.Name, RuleFlattenTarget, in.Type)
		}
		switch d.Prefix.Mode {
		case PrefixExplicit:
			spec.LocalPrefix = d.Prefix.Value
		case PrefixField:
			spec.LocalPrefix = spec.Column + "_"
		}
	case Skip:
		spec.TargetType = in.Type
	}
	return spec, nil
}

// namedType 是否为具名类型 T 或 pkg.T，预声明类型除外
func namedType(expr string) bool {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return false
	}
	switch n := node.(type) {
	case *ast.Ident:
		return types.Universe.Lookup(n.Name) == nil
	case *ast.SelectorExpr:
		_, ok := n.X.(*ast.Ident)
		return ok
	}
	return false
}

// BuildStruct 按声明顺序解析结构体的全部字段，遇到第一个错误即返回
func BuildStruct(name string, fields []FieldInput, naming Naming) (*StructSpec, error) {
	spec := &StructSpec{Name: name, Fields: make([]FieldSpec, 0, len(fields))}
	for _, in := range fields {
		f, err := Resolve(in, naming)
		if err != nil {
			if ce, ok := err.(*ConflictError); ok {
				ce.Struct = name
			}
			return nil, err
		}
		spec.Fields = append(spec.Fields, f)
	}
	return spec, nil
}
