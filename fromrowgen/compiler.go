package fromrowgen

import (
	"go/ast"
	"go/parser"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/donutnomad/gg"
	"github.com/samber/lo"

	"github.com/donutnomad/rowgen/directive"
	"github.com/donutnomad/rowgen/internal/structparse"
)

// FromRowPkg 运行时包的导入路径
const FromRowPkg = "github.com/donutnomad/rowgen/fromrow"

// Options 单个结构体的生成选项
type Options struct {
	Naming directive.Naming
	Assert bool // 生成 var _ fromrow.FromRow = (*T)(nil) 一类的断言
}

// Compiled 一个结构体的编译结果
type Compiled struct {
	Spec *directive.StructSpec
	Info *structparse.StructInfo

	opts     Options
	receiver string
}

// Compile 解析结构体的全部字段指令
// 泛型结构体和指令冲突返回 *directive.ConflictError
func Compile(info *structparse.StructInfo, opts Options) (*Compiled, error) {
	if info.IsGeneric() {
		return nil, &directive.ConflictError{
			Struct: info.Name,
			Rule:   directive.RuleGenericStruct,
			Detail: strings.Join(info.TypeParams, ", "),
		}
	}

	inputs := lo.Map(info.Fields, func(f structparse.FieldInfo, _ int) directive.FieldInput {
		return directive.FieldInput{
			Name:     f.Name,
			Type:     f.Type,
			Tag:      f.Tag,
			Embedded: f.Embedded,
			Exported: f.Exported,
		}
	})

	spec, err := directive.BuildStruct(info.Name, inputs, opts.Naming)
	if err != nil {
		return nil, err
	}
	if err := checkFlattenTargets(info, spec); err != nil {
		return nil, err
	}

	first, _ := utf8.DecodeRuneInString(info.Name)
	return &Compiled{
		Spec:     spec,
		Info:     info,
		opts:     opts,
		receiver: string(unicode.ToLower(first)),
	}, nil
}

// checkFlattenTargets 标准库类型没有 TryFromRowPrefixed，不能作为 flatten 目标
func checkFlattenTargets(info *structparse.StructInfo, spec *directive.StructSpec) error {
	byQualifier := lo.KeyBy(info.FieldImports(), func(imp structparse.ImportInfo) string {
		return imp.Qualifier
	})
	for _, f := range spec.Fields {
		if _, ok := f.Directive.(directive.Flatten); !ok {
			continue
		}
		for _, q := range qualifiers(f.TargetType) {
			if imp, ok := byQualifier[q]; ok && directive.StdlibPackage(imp.ImportPath) {
				return &directive.ConflictError{
					Struct: info.Name,
					Field:  f.Name,
					Rule:   directive.RuleFlattenTarget,
					Detail: f.TargetType + " is a standard library type and does not implement fromrow.FromRow",
				}
			}
		}
	}
	return nil
}

// Emit 将 TryFromRowPrefixed、IsAllNull 以及断言写入 gen
func (c *Compiled) Emit(gen *gg.Generator) {
	gen.P(FromRowPkg)
	for _, imp := range c.imports() {
		if imp.Alias != "" {
			gen.PAlias(imp.ImportPath, imp.Alias)
		} else {
			gen.P(imp.ImportPath)
		}
	}

	c.emitExtract(gen)
	gen.Body().AddLine()
	c.emitIsAllNull(gen)

	if c.opts.Assert {
		gen.Body().AddLine()
		c.emitAssertions(gen)
	}
}

// imports 生成代码中引用到的源文件导入：字段类型的导入加上转换目标的导入
func (c *Compiled) imports() []structparse.ImportInfo {
	byQualifier := lo.KeyBy(c.Info.Imports, func(imp structparse.ImportInfo) string {
		return imp.Qualifier
	})

	out := c.Info.FieldImports()
	for _, f := range c.Spec.Fields {
		conv := f.Conversion()
		if conv.Kind == directive.ConvNone {
			continue
		}
		for _, q := range qualifiers(conv.Target) {
			if imp, ok := byQualifier[q]; ok {
				out = append(out, imp)
			}
		}
	}
	return lo.UniqBy(out, func(imp structparse.ImportInfo) string { return imp.ImportPath })
}

// qualifiers 类型或函数表达式中出现的包限定符，"map[uuid.UUID]pg.Text" -> [uuid pg]
func qualifiers(expr string) []string {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return nil
	}
	var out []string
	ast.Inspect(node, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if x, ok := sel.X.(*ast.Ident); ok {
				out = append(out, x.Name)
			}
		}
		return true
	})
	return out
}

// emitAssertions 生成编译期断言，其余约束由生成调用本身的类型检查保证
func (c *Compiled) emitAssertions(gen *gg.Generator) {
	lines := []string{"_ fromrow.FromRow = (*" + c.Spec.Name + ")(nil)"}
	for _, r := range directive.StructRequirements(c.Spec) {
		switch r.Kind {
		case directive.ReqMappingProtocol:
			lines = append(lines, "_ fromrow.FromRow = (*"+r.Type+")(nil)")
		case directive.ReqTryConvertFrom:
			lines = append(lines, "_ fromrow.TryFromer["+r.From+"] = (*"+r.Type+")(nil)")
		}
	}
	lines = lo.Uniq(lines)
	gen.Body().Append(gg.S("var (\n\t%s\n)", strings.Join(lines, "\n\t")))
}

// column 列名表达式 prefix+"name"
func column(name string) string {
	return "prefix+" + strconv.Quote(name)
}

// childPrefix 嵌套前缀表达式，本地前缀为空时直接传递 prefix
func childPrefix(local string) string {
	if local == "" {
		return "prefix"
	}
	return column(local)
}

// convert 类型转换表达式，指针等类型需要加括号
func convert(typ, val string) string {
	if strings.HasPrefix(typ, "*") || strings.HasPrefix(typ, "<-") || strings.HasPrefix(typ, "func") {
		return "(" + typ + ")(" + val + ")"
	}
	return typ + "(" + val + ")"
}
