package plugin

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// OutputParam 所有生成器共有的参数名
const OutputParam = "output"

// ParseParamsFromStruct 从结构体的tag解析参数定义
// 支持的tag: name, required, default, description
//
// 示例:
//
//	type Params struct {
//	    Naming string `param:"name=naming,required=false,default=snake,description=列名推导策略: snake 或 exact"`
//	    Assert bool   `param:"name=assert,required=false,default=true,description=是否生成编译期约束断言"`
//	}
//
//	params := plugin.ParseParamsFromStruct(Params{})
func ParseParamsFromStruct(v any) []ParamDef {
	typ := reflect.TypeOf(v)
	if typ == nil {
		return nil
	}
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil
	}

	var params []ParamDef
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("param")
		if tag == "" {
			continue
		}
		if def := parseParamTag(tag); def.Name != "" {
			params = append(params, def)
		}
	}
	return params
}

// parseParamTag 解析 param tag 字符串
// 格式: name=xxx,required=true,default=xxx,description=xxx
func parseParamTag(tag string) ParamDef {
	var param ParamDef
	for key, value := range splitTag(tag) {
		switch key {
		case "name":
			param.Name = value
		case "required":
			param.Required = cast.ToBool(value)
		case "default":
			param.Default = value
		case "description":
			param.Description = value
		}
	}
	return param
}

// splitTag 分割tag字符串为键值对
// 格式: key1=value1,key2=value2,...，反斜杠转义下一个字符
func splitTag(tag string) map[string]string {
	result := make(map[string]string)

	var key, value strings.Builder
	inKey := true
	flush := func() {
		if key.Len() > 0 {
			result[key.String()] = value.String()
		}
		key.Reset()
		value.Reset()
		inKey = true
	}

	for i := 0; i < len(tag); i++ {
		ch := tag[i]
		switch {
		case ch == '\\' && i+1 < len(tag):
			i++
			ch = tag[i]
		case ch == '=' && inKey:
			inKey = false
			continue
		case ch == ',':
			flush()
			continue
		}
		if inKey {
			key.WriteByte(ch)
		} else {
			value.WriteByte(ch)
		}
	}
	flush()

	return result
}

// ParseAnnotationParams 将注解的参数解析到目标结构体中
// annotation: 注解对象，包含参数键值对
// target: 目标结构体（必须是指针）
// paramDefs: 参数定义列表，用于应用默认值
//
// 未声明的参数和缺失的必填参数返回错误，output 参数由框架处理
//
// 示例:
//
//	var params FromRowParams
//	err := plugin.ParseAnnotationParams(annotation, &params, paramDefs)
func ParseAnnotationParams(annotation *Annotation, target any, paramDefs []ParamDef) error {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("参数目标必须是非 nil 指针, 得到: %T", target)
	}
	val = val.Elem()
	typ := val.Type()
	if typ.Kind() != reflect.Struct {
		return fmt.Errorf("参数目标必须是结构体指针, 得到: %T", target)
	}

	known := lo.Map(paramDefs, func(def ParamDef, _ int) string { return def.Name })
	for _, key := range lo.Keys(annotation.Params) {
		if key != OutputParam && !slices.Contains(known, key) {
			return fmt.Errorf("@%s 不支持参数 %q", annotation.Name, key)
		}
	}

	defMap := lo.KeyBy(paramDefs, func(def ParamDef) string { return def.Name })

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)
		if !fieldVal.CanSet() {
			continue
		}

		tag := field.Tag.Get("param")
		if tag == "" {
			continue
		}
		paramName := parseParamTag(tag).Name
		if paramName == "" {
			continue
		}

		paramValue, ok := annotation.Params[paramName]
		if !ok || paramValue == "" {
			def, hasDef := defMap[paramName]
			if hasDef && def.Required && !ok {
				return fmt.Errorf("@%s 缺少必填参数 %q", annotation.Name, paramName)
			}
			if hasDef {
				paramValue = def.Default
			}
		}

		if err := setFieldValue(fieldVal, paramValue); err != nil {
			return fmt.Errorf("@%s 参数 %s=%q 无效: %w", annotation.Name, paramName, paramValue, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值，支持 string, int, uint, bool, float
func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(lo.CoalesceOrEmpty(value, "0"))
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(lo.CoalesceOrEmpty(value, "0"))
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Bool:
		b, err := cast.ToBoolE(lo.CoalesceOrEmpty(value, "false"))
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(lo.CoalesceOrEmpty(value, "0"))
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("不支持的参数类型 %s", field.Type())
	}
	return nil
}
