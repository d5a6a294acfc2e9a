// Package directive 解析字段上的 fromrow 指令，并将其解析为字段规格。
//
// 指令写在 struct tag 中：
//
//	type Todo struct {
//	    ID     int    `fromrow:"rename=todo_id"`
//	    Author User   `fromrow:"flatten,prefix=author_"`
//	    Editor *User  `fromrow:"flatten,prefix"`
//	    Cache  []byte `fromrow:"skip"`
//	}
//
// 每个字段恰好对应 Plain、Flatten、Skip 三种指令之一，非法组合在解析阶段即报错。
// 代码生成（fromrowgen）和运行时反射（fromrow.Register）共用本包的解析结果。
package directive

// TagKey 字段指令所在的 struct tag 键
const TagKey = "fromrow"

// Kind 指令类型
type Kind int

const (
	KindPlain   Kind = iota + 1 // 从单列解码
	KindFlatten                 // 递归解码嵌套结构体
	KindSkip                    // 不解码，取类型默认值
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindFlatten:
		return "flatten"
	case KindSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Directive 字段指令，只有 Plain、Flatten、Skip 三种实现
type Directive interface {
	Kind() Kind
	isDirective()
}

// Plain 从命名列解码
type Plain struct {
	Rename     string     // 列名覆盖，为空时按命名规则从字段名推导
	Conversion Conversion // 解码后的类型转换
	Default    bool       // 列为 NULL 时使用目标类型的默认值
}

// Flatten 调用嵌套类型自身的解码逻辑
type Flatten struct {
	Prefix  Prefix // 传给嵌套类型的列名前缀
	Default bool   // 嵌套列全部为 NULL 时使用声明类型的默认值
}

// Skip 永不解码
type Skip struct{}

func (Plain) Kind() Kind   { return KindPlain }
func (Flatten) Kind() Kind { return KindFlatten }
func (Skip) Kind() Kind    { return KindSkip }

func (Plain) isDirective()   {}
func (Flatten) isDirective() {}
func (Skip) isDirective()    {}

// ConversionKind 转换方式
type ConversionKind int

const (
	ConvNone     ConversionKind = iota // 不转换
	ConvFrom                           // 不可失败的类型转换 Declared(raw)
	ConvTryFrom                        // 可失败转换 (*Declared).TryFrom(raw) error
	ConvFromFunc                       // 具名函数 fn(raw) Declared
)

func (k ConversionKind) String() string {
	switch k {
	case ConvNone:
		return "none"
	case ConvFrom:
		return "from"
	case ConvTryFrom:
		return "try_from"
	case ConvFromFunc:
		return "from_fn"
	default:
		return "unknown"
	}
}

// Conversion 原始值到字段声明类型的转换
type Conversion struct {
	Kind ConversionKind
	// Target 对 from/try_from 是中间类型，对 from_fn 是函数名
	Target string
}

// PrefixMode 嵌套前缀模式
type PrefixMode int

const (
	PrefixInherited PrefixMode = iota // 原样传递调用方前缀
	PrefixExplicit                    // 显式前缀 prefix=xxx
	PrefixField                       // 由字段列名推导，即 "<column>_"
)

func (m PrefixMode) String() string {
	switch m {
	case PrefixInherited:
		return "inherited"
	case PrefixExplicit:
		return "explicit"
	case PrefixField:
		return "field"
	default:
		return "unknown"
	}
}

// Prefix 嵌套前缀
type Prefix struct {
	Mode  PrefixMode
	Value string // 仅 PrefixExplicit 有效
}
