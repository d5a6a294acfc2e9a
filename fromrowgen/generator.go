package fromrowgen

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/donutnomad/gg"
	"github.com/samber/lo"

	"github.com/donutnomad/rowgen/directive"
	"github.com/donutnomad/rowgen/internal/structparse"
	"github.com/donutnomad/rowgen/plugin"
)

const (
	generatorName  = "fromrow"
	annotationName = "FromRow"
	defaultOutput  = "$FILE_fromrow.go"
)

// FromRowParams 定义 FromRow 注解支持的参数
type FromRowParams struct {
	Naming string `param:"name=naming,required=false,default=snake,description=未重命名字段的列名规则: snake|exact"`
	Assert bool   `param:"name=assert,required=false,default=true,description=是否生成编译期接口断言"`
}

// FromRowGenerator 实现 plugin.Generator 接口
type FromRowGenerator struct {
	plugin.BaseGenerator
}

func NewFromRowGenerator() *FromRowGenerator {
	gen := &FromRowGenerator{
		BaseGenerator: *plugin.NewBaseGeneratorWithParamsStruct(
			generatorName,
			[]string{annotationName},
			[]plugin.TargetKind{plugin.TargetStruct},
			FromRowParams{},
		),
	}
	gen.SetPriority(30)
	gen.SetDefaultOutput(defaultOutput)
	return gen
}

// targetInfo 单个待生成的结构体
type targetInfo struct {
	info *structparse.StructInfo
	opts Options
}

// Generate 执行代码生成
func (g *FromRowGenerator) Generate(ctx *plugin.GenerateContext) (*plugin.GenerateResult, error) {
	result := plugin.NewGenerateResult()

	// key: 输出路径
	fileTargets := make(map[string][]*targetInfo)

	for _, at := range ctx.Targets {
		ann := plugin.GetAnnotation(at.Annotations, annotationName)
		if ann == nil {
			continue
		}

		params := FromRowParams{Naming: "snake", Assert: true}
		if at.ParsedParams != nil {
			var ok bool
			params, ok = at.ParsedParams.(FromRowParams)
			if !ok {
				result.AddError(fmt.Errorf("ParsedParams 类型断言失败: %T", at.ParsedParams))
				continue
			}
		}

		naming, err := directive.ParseNaming(params.Naming)
		if err != nil {
			result.AddError(fmt.Errorf("结构体 %s: %w", at.Target.Name, err))
			continue
		}

		info, err := structparse.ParseStruct(at.Target.FilePath, at.Target.Name)
		if err != nil {
			result.AddError(fmt.Errorf("解析结构体 %s 失败: %w", at.Target.Name, err))
			continue
		}

		pkgConfig := ctx.GetPackageConfig(filepath.Dir(at.Target.FilePath))
		outputPath := plugin.GetOutputPath(at.Target, ann, g.DefaultOutput(), pkgConfig, g.Name(), ctx.DefaultOutput)

		fileTargets[outputPath] = append(fileTargets[outputPath], &targetInfo{
			info: info,
			opts: Options{Naming: naming, Assert: params.Assert},
		})

		if ctx.Verbose {
			fmt.Printf("[fromrowgen] 处理结构体 %s -> %s\n", at.Target.Name, outputPath)
		}
	}

	// 按输出路径排序，确保生成顺序一致
	outputPaths := lo.Keys(fileTargets)
	slices.Sort(outputPaths)

	for _, outputPath := range outputPaths {
		targets := fileTargets[outputPath]
		slices.SortFunc(targets, func(a, b *targetInfo) int {
			return strings.Compare(a.info.Name, b.info.Name)
		})

		gen, count := g.generateDefinition(ctx, targets, result)
		if count == 0 {
			result.Skipped++
			continue
		}
		result.AddDefinition(outputPath, gen)
	}

	return result, nil
}

// generateDefinition 为同一输出文件的结构体生成 gg 定义
// 指令冲突只终止对应结构体，返回成功生成的数量
func (g *FromRowGenerator) generateDefinition(ctx *plugin.GenerateContext, targets []*targetInfo, result *plugin.GenerateResult) (*gg.Generator, int) {
	gen := gg.New()
	gen.SetPackage(targets[0].info.PackageName)

	count := 0
	for _, t := range targets {
		compiled, err := Compile(t.info, t.opts)
		if err != nil {
			result.AddError(fmt.Errorf("%s: %w", t.info.FilePath, err))
			continue
		}
		if ctx.Verbose {
			fmt.Printf("[fromrowgen] %s", spew.Sdump(compiled.Spec))
		}
		if count > 0 {
			gen.Body().AddLine()
		}
		compiled.Emit(gen)
		count++
	}
	return gen, count
}
