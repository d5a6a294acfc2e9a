package fromrowgen

import (
	"fmt"

	"github.com/donutnomad/gg"

	"github.com/donutnomad/rowgen/directive"
)

// emitIsAllNull 生成 IsAllNull：从左到右短路判断，没有读取列的结构体恒为 true
func (c *Compiled) emitIsAllNull(gen *gg.Generator) {
	var body []any
	for _, f := range c.Spec.Fields {
		if check := nullCheck(f); check != "" {
			body = append(body,
				gg.If(gg.S("null, err := %s; err != nil || !null", check)).
					AddBody(gg.Return(gg.S("false, err"))),
			)
		}
	}
	body = append(body, gg.Return(gg.S("true, nil")))

	gen.Body().NewFunction("IsAllNull").
		WithReceiver(c.receiver, "*"+c.Spec.Name).
		AddParameter("row", "fromrow.Row").
		AddParameter("prefix", "string").
		AddResult("", "bool").
		AddResult("", "error").
		AddBody(body...)
}

// nullCheck 字段的 NULL 判断表达式，skip 字段不参与
func nullCheck(f directive.FieldSpec) string {
	switch f.Directive.(type) {
	case directive.Plain:
		return fmt.Sprintf("row.IsNull(%s)", column(f.Column))
	case directive.Flatten:
		return fmt.Sprintf("fromrow.IsAllNull[%s](row, %s)", f.TargetType, childPrefix(f.LocalPrefix))
	}
	return ""
}
