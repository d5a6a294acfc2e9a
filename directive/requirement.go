package directive

// RequirementKind 字段对类型提出的约束
type RequirementKind int

const (
	ReqDecodeColumn    RequirementKind = iota + 1 // Type 可以从单列解码
	ReqProduceDefault                             // Type 可以产生默认值
	ReqMappingProtocol                            // Type 实现 fromrow.FromRow
	ReqConvertFrom                                // Type(From) 是合法的类型转换
	ReqTryConvertFrom                             // *Type 有方法 TryFrom(From) error
	ReqFuncSignature                              // Func 是一元函数，返回值可赋给 Type
)

func (k RequirementKind) String() string {
	switch k {
	case ReqDecodeColumn:
		return "decode-column"
	case ReqProduceDefault:
		return "produce-default"
	case ReqMappingProtocol:
		return "mapping-protocol"
	case ReqConvertFrom:
		return "convert-from"
	case ReqTryConvertFrom:
		return "try-convert-from"
	case ReqFuncSignature:
		return "func-signature"
	default:
		return "unknown"
	}
}

// Requirement 一条类型约束
type Requirement struct {
	Kind RequirementKind
	Type string
	From string // ReqConvertFrom / ReqTryConvertFrom 的源类型
	Func string // ReqFuncSignature 的函数名
}

// Requirements 收集字段的类型约束
//
// from_fn 的解码类型由函数参数决定，所以不产生 ReqDecodeColumn。
func Requirements(f FieldSpec) []Requirement {
	var reqs []Requirement
	switch d := f.Directive.(type) {
	case Plain:
		if f.TargetType != "" {
			reqs = append(reqs, Requirement{Kind: ReqDecodeColumn, Type: f.TargetType})
			if d.Default {
				reqs = append(reqs, Requirement{Kind: ReqProduceDefault, Type: f.TargetType})
			}
		}
		switch d.Conversion.Kind {
		case ConvFrom:
			reqs = append(reqs, Requirement{Kind: ReqConvertFrom, Type: f.Type, From: d.Conversion.Target})
		case ConvTryFrom:
			reqs = append(reqs, Requirement{Kind: ReqTryConvertFrom, Type: f.Type, From: d.Conversion.Target})
		case ConvFromFunc:
			reqs = append(reqs, Requirement{Kind: ReqFuncSignature, Type: f.Type, Func: d.Conversion.Target})
		}
	case Flatten:
		reqs = append(reqs, Requirement{Kind: ReqMappingProtocol, Type: f.TargetType})
		if d.Default {
			reqs = append(reqs, Requirement{Kind: ReqProduceDefault, Type: f.Type})
		}
	case Skip:
		reqs = append(reqs, Requirement{Kind: ReqProduceDefault, Type: f.Type})
	}
	return reqs
}

// StructRequirements 汇总结构体全部字段的约束，去重并保持首次出现的顺序
func StructRequirements(s *StructSpec) []Requirement {
	seen := make(map[Requirement]struct{})
	var out []Requirement
	for _, f := range s.Fields {
		for _, r := range Requirements(f) {
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
