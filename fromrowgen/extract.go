package fromrowgen

import (
	"fmt"

	"github.com/donutnomad/gg"

	"github.com/donutnomad/rowgen/directive"
)

// emitExtract 生成 TryFromRowPrefixed
//
// 字段按声明顺序解码到局部变量 out，第一个错误直接返回，全部成功后才写回接收者。
func (c *Compiled) emitExtract(gen *gg.Generator) {
	var body []any
	needErr := false

	for _, f := range c.Spec.Fields {
		stmts, usesErr := extractField(f)
		body = append(body, stmts...)
		needErr = needErr || usesErr
	}

	head := []any{gg.S("var out %s", c.Spec.Name)}
	if needErr {
		head = append(head, gg.S("var err error"))
	}
	body = append(head, body...)
	body = append(body,
		gg.S("*%s = out", c.receiver),
		gg.Return(gg.S("nil")),
	)

	gen.Body().NewFunction("TryFromRowPrefixed").
		WithReceiver(c.receiver, "*"+c.Spec.Name).
		AddParameter("row", "fromrow.Row").
		AddParameter("prefix", "string").
		AddResult("", "error").
		AddBody(body...)
}

// extractField 单个字段的解码语句，第二个返回值表示是否使用 err
func extractField(f directive.FieldSpec) ([]any, bool) {
	switch d := f.Directive.(type) {
	case directive.Skip:
		return []any{gg.S("out.%s = fromrow.DefaultOf[%s]()", f.Name, f.Type)}, false
	case directive.Flatten:
		return []any{checked(fmt.Sprintf("out.%s, err = %s", f.Name, flattenCall(f, d)))}, true
	case directive.Plain:
		return extractPlain(f, d), true
	}
	return nil, false
}

// flattenCall 嵌套字段的解码调用
func flattenCall(f directive.FieldSpec, d directive.Flatten) string {
	child := childPrefix(f.LocalPrefix)
	switch {
	case f.Optional:
		// *T 的默认值就是 nil，default 不改变行为
		return fmt.Sprintf("fromrow.Optional[%s](row, %s)", f.TargetType, child)
	case d.Default:
		return fmt.Sprintf("fromrow.OptionalOrDefault[%s](row, %s)", f.TargetType, child)
	default:
		return fmt.Sprintf("fromrow.TryFromPrefixed[%s](row, %s)", f.TargetType, child)
	}
}

// extractPlain 单列字段：读取、NULL 回退、转换
func extractPlain(f directive.FieldSpec, d directive.Plain) []any {
	col := column(f.Column)
	get, tryFrom, apply := "Get", "GetTryFrom", "Apply"
	if d.Default {
		get, tryFrom, apply = "GetOrDefault", "GetTryFromOrDefault", "ApplyOrDefault"
	}

	switch d.Conversion.Kind {
	case directive.ConvFrom:
		raw := "raw" + f.Name
		return []any{
			gg.S("var %s %s", raw, f.TargetType),
			checked(fmt.Sprintf("%s, err = fromrow.%s[%s](row, %s)", raw, get, f.TargetType, col)),
			gg.S("out.%s = %s", f.Name, convert(f.Type, raw)),
		}
	case directive.ConvTryFrom:
		return []any{checked(fmt.Sprintf("out.%s, err = fromrow.%s[%s, %s](row, %s)", f.Name, tryFrom, f.Type, f.TargetType, col))}
	case directive.ConvFromFunc:
		return []any{checked(fmt.Sprintf("out.%s, err = fromrow.%s(row, %s, %s)", f.Name, apply, col, d.Conversion.Target))}
	default:
		return []any{checked(fmt.Sprintf("out.%s, err = fromrow.%s[%s](row, %s)", f.Name, get, f.Type, col))}
	}
}

// checked if <assign>; err != nil { return err }
func checked(assign string) any {
	return gg.If(gg.S("%s; err != nil", assign)).AddBody(gg.Return(gg.S("err")))
}
