package plugin

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// annotationRegex 匹配注解 @Name 或 @Name(params)
var annotationRegex = regexp.MustCompile(`@(\w+)(?:\(([^)]*)\))?`)

// paramRegex 匹配参数:
// - key=`value` (反引号格式)
// - key="value" (双引号格式)
// - key=value (普通格式)
var paramRegex = regexp.MustCompile("(\\w+)\\s*=\\s*`([^`]*)`|(\\w+)\\s*=\\s*\"([^\"]*)\"|(\\w+)\\s*=\\s*([^,\\s]+)")

// ParseAnnotations 从注释文本中解析所有注解
func ParseAnnotations(comment string) []*Annotation {
	var annotations []*Annotation

	for _, line := range strings.Split(comment, "\n") {
		line = strings.TrimPrefix(line, "//")
		line = strings.TrimPrefix(line, "/*")
		line = strings.TrimSuffix(line, "*/")
		line = strings.TrimSpace(line)

		for _, match := range annotationRegex.FindAllStringSubmatch(line, -1) {
			ann := &Annotation{
				Name:   match[1],
				Params: make(map[string]string),
				Raw:    match[0],
			}
			if match[2] != "" {
				ann.Params = parseParams(match[2])
			}
			annotations = append(annotations, ann)
		}
	}

	return annotations
}

// parseParams 解析注解参数，参数名不区分大小写
func parseParams(content string) map[string]string {
	params := make(map[string]string)

	for _, match := range paramRegex.FindAllStringSubmatch(content, -1) {
		var key, value string
		switch {
		case match[1] != "":
			key, value = match[1], match[2]
		case match[3] != "":
			key, value = match[3], match[4]
		case match[5] != "":
			key, value = match[5], match[6]
		}
		if key != "" {
			params[strings.ToLower(key)] = value
		}
	}

	return params
}

// FilterByNames 过滤指定名称的注解
func FilterByNames(annotations []*Annotation, names ...string) []*Annotation {
	if len(names) == 0 {
		return annotations
	}
	return lo.Filter(annotations, func(ann *Annotation, _ int) bool {
		return lo.Contains(names, ann.Name)
	})
}

// HasAnnotation 检查是否包含指定注解
func HasAnnotation(annotations []*Annotation, name string) bool {
	return GetAnnotation(annotations, name) != nil
}

// GetAnnotation 获取指定名称的注解
func GetAnnotation(annotations []*Annotation, name string) *Annotation {
	ann, _ := lo.Find(annotations, func(ann *Annotation) bool {
		return ann.Name == name
	})
	return ann
}

// GetParam 获取注解参数
func (a *Annotation) GetParam(key string) string {
	return a.Params[strings.ToLower(key)]
}

// GetParamOr 获取注解参数，如果不存在返回默认值
func (a *Annotation) GetParamOr(key, defaultValue string) string {
	if v, ok := a.Params[strings.ToLower(key)]; ok {
		return v
	}
	return defaultValue
}

// HasParam 检查是否有指定参数
func (a *Annotation) HasParam(key string) bool {
	_, ok := a.Params[strings.ToLower(key)]
	return ok
}
