package plugin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGenerator 用于测试的 mock 生成器
type mockGenerator struct {
	BaseGenerator
}

func (m *mockGenerator) Generate(ctx *GenerateContext) (*GenerateResult, error) {
	return NewGenerateResult(), nil
}

func newMockGenerator(name string, annotations []string, params []ParamDef) *mockGenerator {
	return &mockGenerator{
		BaseGenerator: *NewBaseGeneratorWithParams(name, annotations, []TargetKind{TargetStruct}, params),
	}
}

func TestFormatHelpText(t *testing.T) {
	registry := NewRegistry()
	gen := newMockGenerator("fromrow", []string{"FromRow"}, []ParamDef{
		{Name: "table", Required: true, Description: "表名"},
		{Name: "naming", Default: "snake", Description: "列名推导策略"},
	})
	gen.SetDefaultOutput("$FILE_fromrow.go")
	require.NoError(t, registry.Register(gen))

	helpText := FormatHelpText(registry)
	for _, expected := range []string{
		"@FromRow - fromrow",
		"output [默认: $FILE_fromrow.go]",
		"table (必填) - 表名",
		"naming [默认: snake] - 列名推导策略",
		"示例:",
		"@FromRow(output=$FILE_rows.go)",
		"@FromRow(output=$PACKAGE_rows.go)",
		"@FromRow(naming=snake)",
		"// go:rowgen: plugin:fromrow -output `$FILE_rows`",
	} {
		assert.Contains(t, helpText, expected)
	}
}

func TestFormatHelpText_MultipleGenerators(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(newMockGenerator("zeta", []string{"Zeta"}, nil))
	registry.MustRegister(newMockGenerator("alpha", []string{"Alpha"}, nil))

	helpText := FormatHelpText(registry)
	alpha := strings.Index(helpText, "@Alpha")
	zeta := strings.Index(helpText, "@Zeta")
	require.True(t, alpha >= 0 && zeta >= 0)
	assert.Less(t, alpha, zeta, "同优先级按名称排序")
}

func TestFormatHelpText_EmptyRegistry(t *testing.T) {
	assert.Contains(t, FormatHelpText(NewRegistry()), "(暂无已注册的生成器)")
}

func TestFormatParamDef(t *testing.T) {
	tests := []struct {
		param ParamDef
		want  string
	}{
		{ParamDef{Name: "table", Required: true, Description: "表名"}, "table (必填) - 表名"},
		{ParamDef{Name: "naming", Default: "snake", Description: "策略"}, "naming [默认: snake] - 策略"},
		{ParamDef{Name: "bare"}, "bare"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatParamDef(tt.param))
	}
}
