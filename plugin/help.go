package plugin

import (
	"fmt"
	"strings"
)

// FormatHelpText 为所有注册的生成器生成帮助文本
func FormatHelpText(registry *Registry) string {
	generators := registry.Generators()
	if len(generators) == 0 {
		return "  (暂无已注册的生成器)\n"
	}

	var sb strings.Builder

	for _, gen := range generators {
		annotations := gen.Annotations()
		if len(annotations) == 0 {
			continue
		}

		mainAnnotation := annotations[0]
		paramDefs := gen.ParamDefs()

		fmt.Fprintf(&sb, "  @%s - %s\n", mainAnnotation, gen.Name())

		sb.WriteString("    参数:\n")
		fmt.Fprintf(&sb, "      %s [默认: %s] - 输出文件路径（支持 $FILE、$PACKAGE 模板变量）\n",
			OutputParam, gen.DefaultOutput())
		for _, param := range paramDefs {
			sb.WriteString("      " + FormatParamDef(param) + "\n")
		}

		sb.WriteString("    示例:\n")
		fmt.Fprintf(&sb, "      @%s\n", mainAnnotation)
		fmt.Fprintf(&sb, "      @%s(output=$FILE_rows.go)\n", mainAnnotation)
		fmt.Fprintf(&sb, "      @%s(output=$PACKAGE_rows.go)\n", mainAnnotation)

		// 只显示前2个带默认值参数的示例
		shown := 0
		for _, param := range paramDefs {
			if shown >= 2 {
				break
			}
			if param.Default != "" {
				fmt.Fprintf(&sb, "      @%s(%s=%s)\n", mainAnnotation, param.Name, param.Default)
				shown++
			}
		}

		fmt.Fprintf(&sb, "    包级配置:\n      // go:rowgen: plugin:%s -output `$FILE_rows`\n", strings.ToLower(gen.Name()))

		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatParamDef 格式化单个参数定义
// 例如: naming [默认: snake] - 列名推导策略
func FormatParamDef(param ParamDef) string {
	var sb strings.Builder
	sb.WriteString(param.Name)
	if param.Required {
		sb.WriteString(" (必填)")
	}
	if param.Default != "" {
		fmt.Fprintf(&sb, " [默认: %s]", param.Default)
	}
	if param.Description != "" {
		sb.WriteString(" - " + param.Description)
	}
	return sb.String()
}
