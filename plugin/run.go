package plugin

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/donutnomad/gg"
	"github.com/samber/lo"

	"github.com/donutnomad/rowgen/internal/utils"
)

// GeneratedHeader 生成文件的头部注释
const GeneratedHeader = "Code generated by rowgen. DO NOT EDIT."

// Run 运行代码生成
// 1. 扫描指定路径的注解
// 2. 将目标分发给对应的生成器
// 3. 执行生成器
// 4. 合并同一文件的 gg 定义并写入文件
func Run(ctx context.Context, registry *Registry, patterns ...string) error {
	opts := &RunOptions{
		Registry: registry,
		Patterns: patterns,
	}
	return RunWithOptions(ctx, opts)
}

// RunGlobal 使用全局注册表运行
func RunGlobal(ctx context.Context, patterns ...string) error {
	return Run(ctx, globalRegistry, patterns...)
}

// RunOptions 运行选项
type RunOptions struct {
	Registry *Registry
	Patterns []string
	Verbose  bool
	Output   string // 命令行指定的默认输出路径（最低优先级）
	Async    bool   // 是否并发执行生成器
	DryRun   bool   // 只生成不写入
}

// RunStats 运行统计信息
type RunStats struct {
	ScanDuration     time.Duration // 扫描耗时
	GenerateDuration time.Duration // 生成耗时
	TotalDuration    time.Duration // 总耗时
	TargetCount      int           // 目标数量
	FileCount        int           // 生成文件数量
	Files            []string      // 生成的文件，按路径排序
}

// RunWithOptions 带选项运行
func RunWithOptions(ctx context.Context, opts *RunOptions) error {
	_, err := RunWithOptionsAndStats(ctx, opts)
	return err
}

// genResultItem 单个生成器的执行结果
type genResultItem struct {
	genName string
	result  *GenerateResult
	err     error
}

// RunWithOptionsAndStats 带选项运行并返回统计信息
func RunWithOptionsAndStats(ctx context.Context, opts *RunOptions) (*RunStats, error) {
	totalStart := time.Now()
	stats := &RunStats{}

	registry := opts.Registry
	if registry == nil {
		registry = globalRegistry
	}

	annotations := registry.Annotations()
	if len(annotations) == 0 {
		return nil, errors.New("没有已注册的生成器")
	}

	// 扫描
	scanStart := time.Now()
	scanner := NewScanner(
		WithAnnotationFilter(annotations...),
		WithScannerVerbose(opts.Verbose),
	)
	result, err := scanner.Scan(ctx, opts.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("扫描失败: %w", err)
	}
	stats.ScanDuration = time.Since(scanStart)

	if len(result.All()) == 0 {
		if opts.Verbose {
			fmt.Println("没有找到任何带注解的目标")
		}
		stats.TotalDuration = time.Since(totalStart)
		return stats, nil
	}

	stats.TargetCount = len(result.All())
	if opts.Verbose {
		fmt.Printf("找到 %d 个带注解的目标 (扫描耗时: %v)\n", stats.TargetCount, stats.ScanDuration)
	}

	generateStart := time.Now()
	dispatch := registry.DispatchTargets(result)

	// 按优先级排序生成器名称（优先级数字越小越靠前）
	genNames := lo.Keys(dispatch)
	slices.SortFunc(genNames, func(a, b string) int {
		genA, _ := registry.GetByName(a)
		genB, _ := registry.GetByName(b)
		return cmp.Or(cmp.Compare(genA.Priority(), genB.Priority()), cmp.Compare(a, b))
	})

	// 先串行解析所有目标的参数
	var allErrors []error
	for _, genName := range genNames {
		gen, _ := registry.GetByName(genName)
		var valid []*AnnotatedTarget
		for _, target := range dispatch[genName] {
			if err := parseTargetParams(gen, target); err != nil {
				allErrors = append(allErrors, fmt.Errorf("%s:%s: %w", target.Target.FilePath, target.Target.Name, err))
				continue
			}
			valid = append(valid, target)
		}
		dispatch[genName] = valid
	}

	executeGenerator := func(genName string) genResultItem {
		targets := dispatch[genName]
		gen, _ := registry.GetByName(genName)

		if opts.Verbose {
			fmt.Printf("执行生成器: %s (开始处理 %d 个目标)\n", genName, len(targets))
		}

		start := time.Now()
		genResult, err := gen.Generate(&GenerateContext{
			Targets:        targets,
			PackageConfigs: result.PackageConfigs,
			DefaultOutput:  opts.Output,
			Verbose:        opts.Verbose,
		})
		if opts.Verbose {
			fmt.Printf("执行生成器: %s (耗时: %v)\n", genName, time.Since(start))
		}
		return genResultItem{genName: genName, result: genResult, err: err}
	}

	genResults := make(map[string]*GenerateResult)
	collect := func(item genResultItem) {
		if item.err != nil {
			allErrors = append(allErrors, fmt.Errorf("生成器 %s 执行失败: %w", item.genName, item.err))
			return
		}
		if item.result != nil {
			genResults[item.genName] = item.result
		}
	}

	if opts.Async {
		resultChan := make(chan genResultItem, len(genNames))
		var wg sync.WaitGroup
		for _, genName := range genNames {
			wg.Add(1)
			go func(genName string) {
				defer wg.Done()
				resultChan <- executeGenerator(genName)
			}(genName)
		}
		go func() {
			wg.Wait()
			close(resultChan)
		}()
		for item := range resultChan {
			collect(item)
		}
	} else {
		for _, genName := range genNames {
			collect(executeGenerator(genName))
		}
	}

	// 按优先级顺序收集 gg 定义，按文件分组
	fileDefinitions := make(map[string][]*gg.Generator)
	fileGenNames := make(map[string][]string)
	for _, genName := range genNames {
		genResult, ok := genResults[genName]
		if !ok {
			continue
		}
		for path, def := range genResult.Definitions {
			fileDefinitions[path] = append(fileDefinitions[path], def)
			fileGenNames[path] = append(fileGenNames[path], genName)
		}
		allErrors = append(allErrors, genResult.Errors...)
	}

	// 合并同一文件的定义并写入，按路径顺序
	paths := lo.Keys(fileDefinitions)
	slices.Sort(paths)
	for _, path := range paths {
		merged, err := mergeDefinitions(fileDefinitions[path], fileGenNames[path])
		if err != nil {
			allErrors = append(allErrors, fmt.Errorf("合并文件 %s 的定义失败: %w", path, err))
			continue
		}
		if opts.DryRun {
			stats.Files = append(stats.Files, path)
			continue
		}
		if err := writeGGFile(path, merged); err != nil {
			allErrors = append(allErrors, fmt.Errorf("写入文件 %s 失败: %w", path, err))
			continue
		}
		stats.FileCount++
		stats.Files = append(stats.Files, path)
		fmt.Printf("生成文件: %s\n", path)
	}

	stats.GenerateDuration = time.Since(generateStart)
	stats.TotalDuration = time.Since(totalStart)

	if len(allErrors) > 0 {
		for _, e := range allErrors {
			fmt.Printf("错误: %v\n", e)
		}
		return stats, fmt.Errorf("生成过程中出现 %d 个错误: %w", len(allErrors), errors.Join(allErrors...))
	}

	return stats, nil
}

// parseTargetParams 将目标上属于 gen 的注解参数解析到 target.ParsedParams
func parseTargetParams(gen Generator, target *AnnotatedTarget) error {
	paramsProto := gen.NewParams()
	if paramsProto == nil {
		return nil
	}

	ann, ok := lo.Find(target.Annotations, func(a *Annotation) bool {
		return lo.Contains(gen.Annotations(), a.Name)
	})
	if !ok {
		return nil
	}

	val := reflect.ValueOf(paramsProto)
	if val.Kind() != reflect.Ptr {
		return fmt.Errorf("NewParams() 必须返回指针类型, 得到: %T", paramsProto)
	}
	if err := ParseAnnotationParams(ann, paramsProto, gen.ParamDefs()); err != nil {
		return fmt.Errorf("解析参数失败: %w", err)
	}
	target.ParsedParams = val.Elem().Interface()
	return nil
}

// mergeDefinitions 合并多个 gg.Generator 定义到一个文件，多个生成器之间添加分隔符
func mergeDefinitions(definitions []*gg.Generator, genNames []string) (*gg.Generator, error) {
	if len(definitions) == 0 {
		return nil, errors.New("没有定义需要合并")
	}

	merged := gg.New()
	merged.SetHeader(GeneratedHeader)

	var pkgName string
	for _, def := range definitions {
		if def.PackageName() == "" {
			continue
		}
		if pkgName == "" {
			pkgName = def.PackageName()
		} else if pkgName != def.PackageName() {
			return nil, fmt.Errorf("包名不一致: %s vs %s", pkgName, def.PackageName())
		}
	}
	if pkgName != "" {
		merged.SetPackage(pkgName)
	}

	// Merge 会同时处理 imports 和别名
	for i, def := range definitions {
		if len(definitions) > 1 {
			genName := "unknown"
			if i < len(genNames) {
				genName = genNames[i]
			}
			merged.Body().AddLine()
			merged.Body().AddString(fmt.Sprintf("// ================ %s ================", genName))
			merged.Body().AddLine()
		}
		merged.Merge(def)
	}

	return merged, nil
}

// writeGGFile 将 gg 定义写入文件
func writeGGFile(path string, gen *gg.Generator) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	return utils.WriteFormat(path, gen.Bytes())
}

// GetOutputPath 根据注解参数和默认规则计算输出路径
// 优先级：注解参数 > 包级插件配置 > 包级默认配置 > 命令行参数 > 默认文件名
// 模板变量：
//   - $FILE: 源文件名（不含 .go 后缀）
//   - $PACKAGE: 包名
func GetOutputPath(target *Target, ann *Annotation, defaultFileName string, pkgConfig *PackageConfig, pluginName string, cmdOutput string) string {
	var output string
	if ann != nil {
		output = ann.GetParam(OutputParam)
	}
	if output == "" && pkgConfig != nil {
		output = pkgConfig.GetPluginOutput(strings.ToLower(pluginName))
	}
	if output == "" {
		output = cmdOutput
	}
	if output == "" {
		return GetDefaultOutputPath(target, defaultFileName)
	}

	output = replaceTemplateVars(output, target)
	if !strings.HasSuffix(output, ".go") {
		output += ".go"
	}
	if filepath.IsAbs(output) {
		return output
	}
	// 相对于源文件目录
	return filepath.Join(filepath.Dir(target.FilePath), output)
}

// replaceTemplateVars 替换模板变量
func replaceTemplateVars(template string, target *Target) string {
	fileName := strings.TrimSuffix(filepath.Base(target.FilePath), ".go")
	template = strings.ReplaceAll(template, "$FILE", fileName)
	template = strings.ReplaceAll(template, "$PACKAGE", target.PackageName)
	return template
}

// GetDefaultOutputPath 获取默认输出路径
func GetDefaultOutputPath(target *Target, defaultFileName string) string {
	if defaultFileName == "" {
		defaultFileName = "generate.go"
	}
	defaultFileName = replaceTemplateVars(defaultFileName, target)
	return filepath.Join(filepath.Dir(target.FilePath), defaultFileName)
}
