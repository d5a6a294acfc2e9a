package plugin

import (
	"bufio"
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Scanner 两阶段并行注解扫描器
// 第一阶段：快速文本匹配，找出可能包含注解的文件
// 第二阶段：对匹配的文件进行 AST 解析
type Scanner struct {
	workers int
	verbose bool

	// 注解过滤器（可选）
	annotationFilter []string
}

// ScannerOption 扫描器选项
type ScannerOption func(*Scanner)

func WithWorkers(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithScannerVerbose(v bool) ScannerOption {
	return func(s *Scanner) {
		s.verbose = v
	}
}

func WithAnnotationFilter(annotations ...string) ScannerOption {
	return func(s *Scanner) {
		s.annotationFilter = annotations
	}
}

func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// quickMatchRegex 快速匹配注解的正则
var quickMatchRegex = regexp.MustCompile(`@(\w+)(?:\([^)]*\))?`)

// configDirective 包级配置指令前缀
const configDirective = "go:rowgen:"

// generatedSuffixes 生成文件的后缀，扫描时跳过
var generatedSuffixes = []string{"_test.go", "_gen.go", "_fromrow.go", "_rows.go"}

// Scan 扫描指定路径
// 支持: ./... ./pkg/... ./pkg /abs/path/... file.go
func (s *Scanner) Scan(ctx context.Context, patterns ...string) (*ScanResult, error) {
	allFiles, err := s.collectFiles(patterns)
	if err != nil {
		return nil, err
	}
	if len(allFiles) == 0 {
		return &ScanResult{}, nil
	}

	// ========== 第一阶段：快速匹配 ==========
	matchedFiles := s.quickMatch(ctx, allFiles)
	if len(matchedFiles) == 0 {
		return &ScanResult{}, ctx.Err()
	}
	if s.verbose {
		fmt.Printf("[scan] %d 个文件中 %d 个可能包含注解\n", len(allFiles), len(matchedFiles))
	}

	// ========== 第二阶段：AST 解析 ==========
	return s.parseFiles(ctx, matchedFiles)
}

// runWorkers 用 s.workers 个 goroutine 处理 files，fn 的结果通过返回的通道输出
func runWorkers[R any](ctx context.Context, workers int, files []string, fn func(string) R) <-chan R {
	resultCh := make(chan R, len(files))
	fileCh := make(chan string, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case file, ok := <-fileCh:
					if !ok {
						return
					}
					resultCh <- fn(file)
				}
			}
		}()
	}

	for _, file := range files {
		fileCh <- file
	}
	close(fileCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	return resultCh
}

// quickMatch 第一阶段：快速文本匹配
// 并行读取文件，检查是否包含 @xxx 模式，结果按文件路径排序
func (s *Scanner) quickMatch(ctx context.Context, files []string) []string {
	type matchResult struct {
		file    string
		matched bool
	}

	var matchedFiles []string
	for r := range runWorkers(ctx, s.workers, files, func(file string) matchResult {
		matched, err := s.QuickMatchFile(file)
		return matchResult{file: file, matched: matched && err == nil}
	}) {
		if r.matched {
			matchedFiles = append(matchedFiles, r.file)
		}
	}
	slices.Sort(matchedFiles)
	return matchedFiles
}

// QuickMatchFile 快速检查文件是否包含注解或 go:rowgen 配置
// 用于 dev 模式判断文件是否需要触发代码生成
func (s *Scanner) QuickMatchFile(filePath string) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(trimmed, "//") && !strings.HasPrefix(trimmed, "/*") {
			continue
		}
		if strings.Contains(trimmed, configDirective) {
			return true, nil
		}
		for _, match := range quickMatchRegex.FindAllStringSubmatch(trimmed, -1) {
			if len(s.annotationFilter) == 0 || lo.Contains(s.annotationFilter, match[1]) {
				return true, nil
			}
		}
	}

	return false, scanner.Err()
}

// fileResult 单个文件的解析结果
type fileResult struct {
	file      string
	structs   []*AnnotatedTarget
	pkgConfig *PackageConfig
	err       error
}

// parseFiles 第二阶段：AST 解析
func (s *Scanner) parseFiles(ctx context.Context, files []string) (*ScanResult, error) {
	results := make(map[string]fileResult, len(files))
	for r := range runWorkers(ctx, s.workers, files, s.parseFile) {
		results[r.file] = r
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 按文件顺序合并，保证输出稳定
	result := &ScanResult{
		PackageConfigs: make(map[string]*PackageConfig),
	}
	for _, file := range files {
		r, ok := results[file]
		if !ok {
			continue
		}
		if r.err != nil {
			if s.verbose {
				fmt.Printf("[scan] 跳过 %s: %v\n", file, r.err)
			}
			continue
		}
		result.Structs = append(result.Structs, r.structs...)
		if r.pkgConfig != nil {
			mergePackageConfig(result.PackageConfigs, r.pkgConfig)
		}
	}

	return result, nil
}

// mergePackageConfig 合并同一包内多个文件的 go:rowgen 配置，后出现的覆盖先出现的
func mergePackageConfig(configs map[string]*PackageConfig, cfg *PackageConfig) {
	pkgDir := cfg.PackageDir
	existing, ok := configs[pkgDir]
	if !ok {
		configs[pkgDir] = cfg
		return
	}
	if cfg.DefaultOutput != "" {
		if existing.DefaultOutput != "" && existing.DefaultOutput != cfg.DefaultOutput {
			fmt.Printf("警告: 包 %s 中存在多个不同的 go:rowgen 默认输出配置，使用后发现的配置\n", pkgDir)
		}
		existing.DefaultOutput = cfg.DefaultOutput
	}
	for k, v := range cfg.PluginOutputs {
		if old, ok := existing.PluginOutputs[k]; ok && old != v {
			fmt.Printf("警告: 包 %s 中插件 %s 存在多个不同的输出配置，使用后发现的配置\n", pkgDir, k)
		}
		existing.PluginOutputs[k] = v
	}
}

// parseFile AST 解析单个文件
func (s *Scanner) parseFile(filePath string) fileResult {
	result := fileResult{file: filePath}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		result.err = err
		return result
	}
	if ast.IsGenerated(file) {
		return result
	}

	result.pkgConfig = parsePackageConfig(file, filePath)

	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}
		result.structs = append(result.structs, s.parseTypeDecl(filePath, file.Name.Name, genDecl)...)
	}

	return result
}

// parseTypeDecl 解析类型声明中带注解的结构体
// 注解可以写在 type 关键字上（单个声明）或 type ( ... ) 组内的类型上
func (s *Scanner) parseTypeDecl(filePath, packageName string, decl *ast.GenDecl) []*AnnotatedTarget {
	var out []*AnnotatedTarget

	for _, spec := range decl.Specs {
		typeSpec, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}
		if _, ok := typeSpec.Type.(*ast.StructType); !ok {
			continue
		}

		doc := typeSpec.Doc
		if doc == nil {
			doc = decl.Doc
		}
		if doc == nil {
			continue
		}

		annotations := ParseAnnotations(doc.Text())
		if len(s.annotationFilter) > 0 {
			annotations = FilterByNames(annotations, s.annotationFilter...)
		}
		if len(annotations) == 0 {
			continue
		}

		out = append(out, &AnnotatedTarget{
			Target: &Target{
				Kind:        TargetStruct,
				Name:        typeSpec.Name.Name,
				PackageName: packageName,
				FilePath:    filePath,
				Position:    typeSpec.Pos(),
				Node:        typeSpec,
			},
			Annotations: annotations,
		})
	}

	return out
}

// collectFiles 收集所有需要扫描的文件
func (s *Scanner) collectFiles(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, pattern := range patterns {
		recursive := strings.HasSuffix(pattern, "/...")
		if recursive {
			pattern = strings.TrimSuffix(pattern, "/...")
		}
		if pattern == "" {
			pattern = "."
		}

		absPath, err := filepath.Abs(pattern)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if strings.HasSuffix(absPath, ".go") {
				add(absPath)
			}
			continue
		}

		err = filepath.WalkDir(absPath, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == absPath {
					return nil
				}
				name := d.Name()
				if !recursive || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
					name == "vendor" || name == "testdata" {
					return filepath.SkipDir
				}
				return nil
			}
			if IsSourceFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

// IsSourceFile 是否需要扫描的 Go 源文件，测试文件和生成文件除外
func IsSourceFile(path string) bool {
	if !strings.HasSuffix(path, ".go") {
		return false
	}
	return !lo.SomeBy(generatedSuffixes, func(suffix string) bool {
		return strings.HasSuffix(path, suffix)
	})
}

// 默认扫描器
var defaultScanner = NewScanner()

func Scan(ctx context.Context, patterns ...string) (*ScanResult, error) {
	return defaultScanner.Scan(ctx, patterns...)
}

func ScanWithFilter(ctx context.Context, annotations []string, patterns ...string) (*ScanResult, error) {
	return NewScanner(WithAnnotationFilter(annotations...)).Scan(ctx, patterns...)
}

// configRegex 匹配 go:rowgen: 指令
// 支持两种格式：//go:rowgen: 和 // go:rowgen:
var configRegex = regexp.MustCompile(`go:rowgen:\s*(.*)`)

// parsePackageConfig 解析包级 go:rowgen: 配置
// 支持格式:
//
//	//go:rowgen: -output `$PACKAGE_rows`
//	// go:rowgen: plugin:fromrow -output `$FILE_rows`
func parsePackageConfig(file *ast.File, filePath string) *PackageConfig {
	var lines []string
	for _, cg := range file.Comments {
		for _, c := range cg.List {
			text := strings.TrimPrefix(c.Text, "//")
			text = strings.TrimPrefix(text, "/*")
			text = strings.TrimSuffix(text, "*/")
			text = strings.TrimSpace(text)

			if matches := configRegex.FindStringSubmatch(text); len(matches) > 1 {
				lines = append(lines, matches[1])
			}
		}
	}

	if len(lines) == 0 {
		return nil
	}
	if len(lines) > 1 {
		fmt.Printf("警告: 文件 %s 定义了多个 go:rowgen: 指令，将被忽略\n", filePath)
		return nil
	}

	return parseConfigLine(lines[0], filePath)
}

// parseConfigLine 解析单行 go:rowgen: 配置
// 格式:
//
//	-output `xxx`                                  // 默认输出
//	plugin:fromrow -output `xxx`                   // 插件特定输出
func parseConfigLine(line string, filePath string) *PackageConfig {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	config := &PackageConfig{
		PackageDir:    filepath.Dir(filePath),
		PluginOutputs: make(map[string]string),
	}

	parts := splitConfigArgs(line)
	var currentPlugin string
	for i := 0; i < len(parts); i++ {
		part := parts[i]
		switch {
		case strings.HasPrefix(part, "plugin:"):
			currentPlugin = strings.ToLower(strings.TrimPrefix(part, "plugin:"))
		case part == "-output" && i+1 < len(parts):
			i++
			output := trimQuotes(parts[i])
			if currentPlugin == "" {
				config.DefaultOutput = output
			} else {
				config.PluginOutputs[currentPlugin] = output
			}
		}
	}

	if config.DefaultOutput == "" && len(config.PluginOutputs) == 0 {
		return nil
	}
	return config
}

// splitConfigArgs 分割 go:rowgen 参数，支持引号内的空格
func splitConfigArgs(line string) []string {
	var parts []string
	var current strings.Builder
	var quote byte

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote == 0 && (c == '`' || c == '"' || c == '\''):
			quote = c
			current.WriteByte(c)
		case quote != 0 && c == quote:
			quote = 0
			current.WriteByte(c)
		case quote == 0 && (c == ' ' || c == '\t'):
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

// trimQuotes 去除引号
func trimQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '`' || first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
