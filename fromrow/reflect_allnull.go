package fromrow

import (
	"reflect"

	"github.com/donutnomad/rowgen/directive"
)

// isAbsent 从左到右短路求与，没有参与字段的结构体视为全部为 NULL
func (p *plan) isAbsent(row Row, prefix string) (bool, error) {
	for i := range p.fields {
		fp := &p.fields[i]
		var null bool
		var err error
		switch fp.spec.Directive.(type) {
		case directive.Skip:
			continue
		case directive.Flatten:
			null, err = fp.absent(row, fp.spec.ChildPrefix(prefix))
		case directive.Plain:
			null, err = row.IsNull(fp.spec.ColumnName(prefix))
		}
		if err != nil || !null {
			return false, err
		}
	}
	return true, nil
}

func (fp *fieldPlan) absent(row Row, child string) (bool, error) {
	if fp.protocol {
		return reflect.New(fp.elem).Interface().(FromRow).IsAllNull(row, child)
	}
	return fp.nested.isAbsent(row, child)
}
