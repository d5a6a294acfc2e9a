package fromrow

import (
	"reflect"

	"github.com/donutnomad/rowgen/directive"
)

var defaulterType = reflect.TypeFor[Defaulter]()

// defaultValue 同 DefaultOf，按 reflect.Type 构造
func defaultValue(t reflect.Type) reflect.Value {
	v := reflect.New(t)
	if t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(defaulterType) {
		v.Interface().(Defaulter).RowDefault()
	}
	return v.Elem()
}

// decode 按声明顺序解码到 dst，dst 必须可寻址
func (p *plan) decode(row Row, prefix string, dst reflect.Value) error {
	for i := range p.fields {
		fp := &p.fields[i]
		if err := fp.decode(row, prefix, dst.Field(fp.index)); err != nil {
			return err
		}
	}
	return nil
}

func (fp *fieldPlan) decode(row Row, prefix string, dst reflect.Value) error {
	switch d := fp.spec.Directive.(type) {
	case directive.Skip:
		// 未导出字段保持零值
		if dst.CanSet() {
			dst.Set(defaultValue(fp.typ))
		}
		return nil
	case directive.Flatten:
		return fp.decodeFlatten(row, fp.spec.ChildPrefix(prefix), d.Default, dst)
	case directive.Plain:
		return fp.decodePlain(row, fp.spec.ColumnName(prefix), d.Default, dst)
	}
	return nil
}

func (fp *fieldPlan) decodePlain(row Row, column string, withDefault bool, dst reflect.Value) error {
	raw := reflect.New(fp.target)
	if withDefault {
		null, err := row.IsNull(column)
		if err != nil {
			return err
		}
		if null {
			raw.Elem().Set(defaultValue(fp.target))
		} else if err := row.Get(column, raw.Interface()); err != nil {
			return err
		}
	} else if err := row.Get(column, raw.Interface()); err != nil {
		return err
	}

	switch fp.convert {
	case convertNone:
		dst.Set(raw.Elem())
	case convertFrom:
		dst.Set(raw.Elem().Convert(fp.typ))
	case convertTryFrom:
		out := reflect.New(fp.typ)
		res := out.MethodByName("TryFrom").Call([]reflect.Value{raw.Elem()})
		if err, _ := res[0].Interface().(error); err != nil {
			return ConversionFailed(column, fp.typ.String(), err)
		}
		dst.Set(out.Elem())
	case convertFunc:
		res := fp.fn.Call([]reflect.Value{raw.Elem()})
		dst.Set(res[0])
	}
	return nil
}

func (fp *fieldPlan) decodeFlatten(row Row, child string, withDefault bool, dst reflect.Value) error {
	if fp.spec.Optional {
		absent, err := fp.absent(row, child)
		if err != nil {
			return err
		}
		if absent {
			dst.Set(reflect.Zero(fp.typ))
			return nil
		}
		v := reflect.New(fp.elem)
		if err := fp.decodeNested(row, child, v.Elem()); err != nil {
			return err
		}
		dst.Set(v)
		return nil
	}

	if withDefault {
		absent, err := fp.absent(row, child)
		if err != nil {
			return err
		}
		if absent {
			dst.Set(defaultValue(fp.typ))
			return nil
		}
	}
	return fp.decodeNested(row, child, dst)
}

// decodeNested 解码到临时值，成功后再写入 dst
func (fp *fieldPlan) decodeNested(row Row, child string, dst reflect.Value) error {
	tmp := reflect.New(fp.elem)
	if fp.protocol {
		if err := tmp.Interface().(FromRow).TryFromRowPrefixed(row, child); err != nil {
			return err
		}
	} else if err := fp.nested.decode(row, child, tmp.Elem()); err != nil {
		return err
	}
	dst.Set(tmp.Elem())
	return nil
}
