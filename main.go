package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"

	"github.com/donutnomad/rowgen/fromrowgen"
	"github.com/donutnomad/rowgen/plugin"
)

func init() {
	plugin.MustRegister(fromrowgen.NewFromRowGenerator())
}

var (
	verbose  = flag.Bool("v", false, "详细输出")
	help     = flag.Bool("h", false, "显示帮助信息")
	output   = flag.String("output", "", "默认输出路径（支持模板变量 $FILE, $PACKAGE），为空时使用生成器默认值")
	noOutput = flag.Bool("no-output", false, "忽略 -output，每个生成器输出到各自的默认文件")
	async    = flag.Bool("async", true, "异步执行生成器（默认 true）")
	dryRun   = flag.Bool("dry-run", false, "只打印将要生成的文件，不写入磁盘")
	debounce = flag.Duration("debounce", defaultDebounce, "dev 模式的防抖动时间")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *help {
		usage()
		os.Exit(0)
	}

	args := flag.Args()

	// 默认命令是 gen
	if len(args) == 0 {
		runGen(nil)
		return
	}

	switch args[0] {
	case "gen":
		runGen(args[1:])
	case "dev":
		runDev(args[1:])
	default:
		// 不是子命令，当作路径参数处理
		runGen(args)
	}
}

// patternsOrDefault 未指定路径时扫描 ./...
func patternsOrDefault(args []string) []string {
	if len(args) == 0 {
		return []string{"./..."}
	}
	return args
}

// outputPath -no-output 时传空字符串，否则使用 -output 的值
func outputPath() string {
	if *noOutput {
		return ""
	}
	return *output
}

func runGen(args []string) {
	registry := plugin.Global()
	if len(registry.Generators()) == 0 {
		fmt.Fprintln(os.Stderr, "错误: 没有已注册的生成器")
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("已注册 %d 个生成器:\n", len(registry.Generators()))
		for _, gen := range registry.Generators() {
			anns := lo.Map(gen.Annotations(), func(item string, _ int) string {
				return "@" + item
			})
			fmt.Printf("  - %s (%s)\n", gen.Name(), strings.Join(anns, ","))
		}
		fmt.Println()
	}

	stats, err := plugin.RunWithOptionsAndStats(context.Background(), &plugin.RunOptions{
		Registry: registry,
		Patterns: patternsOrDefault(args),
		Verbose:  *verbose,
		Output:   outputPath(),
		Async:    *async,
		DryRun:   *dryRun,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}

	if stats == nil {
		return
	}
	if *dryRun {
		for _, f := range stats.Files {
			fmt.Println(f)
		}
	}
	if stats.FileCount > 0 || *verbose {
		fmt.Printf("\n统计: 扫描 %d 个目标, 生成 %d 个文件\n", stats.TargetCount, stats.FileCount)
		fmt.Printf("耗时: 扫描 %v, 生成 %v, 总计 %v\n", stats.ScanDuration, stats.GenerateDuration, stats.TotalDuration)
	}
}

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, `rowgen - 行到结构体映射代码生成工具

用法:
  rowgen [选项] [路径...]
  rowgen gen [选项] [路径...]
  rowgen dev [选项] [路径...]

命令:
  gen     执行代码生成（默认）
  dev     启动开发模式，监听文件变动自动生成

路径:
  支持 Go 包路径模式，如:
    ./...          递归扫描当前目录及子目录（默认）
    ./pkg/...      递归扫描指定目录
    ./models       只扫描 models 目录

选项:
`)
	flag.PrintDefaults()

	registry := plugin.Global()
	if len(registry.Generators()) > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "\n支持的注解:\n")
		_, _ = fmt.Fprint(os.Stderr, plugin.FormatHelpText(registry))
	}

	_, _ = fmt.Fprintf(os.Stderr, `模板变量:
  $FILE     - 源文件名（不含 .go 后缀）
  $PACKAGE  - 包名

示例:
  rowgen                                    扫描当前目录（默认 ./...）
  rowgen -v ./models/...                    详细模式扫描 models 目录
  rowgen -output $FILE_rows ./...           指定输出文件名
  rowgen -dry-run ./...                     只列出将要生成的文件
  rowgen dev ./...                          开发模式，监听文件变动
  rowgen -debounce 500ms dev ./models/...   开发模式，自定义防抖动时间
`)
}
