package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"golang.org/x/tools/imports"

	"github.com/donutnomad/rowgen/plugin"
)

const defaultDebounce = 2 * time.Second

// DevOptions dev 命令选项
type DevOptions struct {
	Patterns []string      // 监听的路径模式
	Verbose  bool          // 详细输出
	Output   string        // 默认输出路径
	Async    bool          // 异步执行
	DryRun   bool          // 只打印不写入
	Debounce time.Duration // 防抖动时间
}

// devRunner 处理文件变动的核心逻辑
type devRunner struct {
	opts     *DevOptions
	registry *plugin.Registry
	watcher  *fsnotify.Watcher
	scanner  *plugin.Scanner
	ctx      context.Context // 用于响应退出信号

	// 防抖动相关
	mu          sync.Mutex
	pendingDirs map[string]*time.Timer // key: 包目录路径
	generate    func(pkgDir string)
}

// runDev 启动开发模式
func runDev(args []string) {
	registry := plugin.Global()
	if len(registry.Generators()) == 0 {
		fmt.Fprintln(os.Stderr, "错误: 没有已注册的生成器")
		os.Exit(1)
	}

	opts := &DevOptions{
		Patterns: patternsOrDefault(args),
		Verbose:  *verbose,
		Output:   outputPath(),
		Async:    *async,
		DryRun:   *dryRun,
		Debounce: *debounce,
	}

	if err := dev(opts); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

// dev 启动开发模式
func dev(opts *DevOptions) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n正在退出...")
		cancel()
	}()

	// 创建 watcher
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	defer watcher.Close()

	registry := plugin.Global()
	annotations := registry.Annotations()

	runner := &devRunner{
		opts:        opts,
		registry:    registry,
		watcher:     watcher,
		scanner:     plugin.NewScanner(plugin.WithAnnotationFilter(annotations...)),
		ctx:         ctx,
		pendingDirs: make(map[string]*time.Timer),
	}
	runner.generate = runner.runGenerate

	// 清理函数：退出时停止所有待处理的定时器
	defer func() {
		runner.mu.Lock()
		for _, timer := range runner.pendingDirs {
			timer.Stop()
		}
		runner.mu.Unlock()
	}()

	// 收集并添加监听目录
	dirs, err := collectWatchDirs(opts.Patterns)
	if err != nil {
		return fmt.Errorf("收集监听目录失败: %w", err)
	}

	if len(dirs) == 0 {
		return fmt.Errorf("没有找到需要监听的目录")
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("添加监听目录失败 %s: %w", dir, err)
		}
		if opts.Verbose {
			fmt.Printf("监听目录: %s\n", dir)
		}
	}

	fmt.Printf("开发模式已启动，监听 %d 个目录\n", len(dirs))
	fmt.Println("按 Ctrl+C 退出")
	fmt.Println()

	// 启动事件处理循环
	return runner.watchLoop(ctx)
}

// watchLoop 事件处理循环
func (r *devRunner) watchLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			r.handleEvent(event)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			if r.opts.Verbose {
				fmt.Printf("监听错误: %v\n", err)
			}
		}
	}
}

// devAction 文件事件对应的处理方式
type devAction int

const (
	actionIgnore     devAction = iota
	actionWatchDir             // 新建目录，加入监听
	actionCheckFile            // 源文件写入，检查注解和语法后生成
	actionRegenerate           // 源文件删除或改名，清理旧输出后重新生成所在包
)

// classifyEvent 根据事件类型和路径决定处理方式
func classifyEvent(event fsnotify.Event) devAction {
	switch {
	case event.Has(fsnotify.Create) && isWatchableDir(event.Name):
		return actionWatchDir
	case !plugin.IsSourceFile(event.Name):
		return actionIgnore
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		return actionRegenerate
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		return actionCheckFile
	}
	return actionIgnore
}

// handleEvent 处理文件事件
func (r *devRunner) handleEvent(event fsnotify.Event) {
	filePath := event.Name

	switch classifyEvent(event) {
	case actionWatchDir:
		r.watchNewDir(filePath)
	case actionRegenerate:
		if r.opts.Verbose {
			fmt.Printf("检测到文件移除: %s\n", filePath)
		}
		if !r.opts.DryRun {
			for _, stale := range staleOutputs(r.registry, filePath) {
				if err := os.Remove(stale); err == nil {
					fmt.Printf("删除过期文件: %s\n", stale)
				}
			}
		}
		r.scheduleGenerate(filepath.Dir(filePath))
	case actionCheckFile:
		r.checkFile(filePath)
	}
}

// checkFile 文件包含注解且语法正确时触发生成
func (r *devRunner) checkFile(filePath string) {
	if r.opts.Verbose {
		fmt.Printf("检测到文件变化: %s\n", filePath)
	}

	hasAnnotation, err := r.scanner.QuickMatchFile(filePath)
	if err != nil {
		if r.opts.Verbose {
			fmt.Printf("检查注解失败 %s: %v\n", filePath, err)
		}
		return
	}

	if !hasAnnotation {
		if r.opts.Verbose {
			fmt.Printf("跳过文件（无注解）: %s\n", filePath)
		}
		return
	}

	if err := checkSyntax(filePath); err != nil {
		fmt.Printf("语法错误 %s: %v\n", filePath, err)
		return
	}

	r.scheduleGenerate(filepath.Dir(filePath))
}

// watchNewDir 把新建的目录及其子目录加入监听
func (r *devRunner) watchNewDir(dir string) {
	dirs, err := collectWatchDirs([]string{dir + "/..."})
	if err != nil {
		if r.opts.Verbose {
			fmt.Printf("收集新目录失败 %s: %v\n", dir, err)
		}
		return
	}
	for _, d := range dirs {
		if err := r.watcher.Add(d); err != nil {
			fmt.Printf("添加监听目录失败 %s: %v\n", d, err)
			continue
		}
		if r.opts.Verbose {
			fmt.Printf("监听目录: %s\n", d)
		}
	}
}

// staleOutputs 源文件被移除后，按 $FILE 命名的默认输出文件已经过期
// 只返回存在且带有生成头部的文件
func staleOutputs(registry *plugin.Registry, removed string) []string {
	var out []string
	target := &plugin.Target{FilePath: removed}
	for _, gen := range registry.Generators() {
		if !strings.Contains(gen.DefaultOutput(), "$FILE") {
			continue
		}
		path := plugin.GetDefaultOutputPath(target, gen.DefaultOutput())
		if isGeneratedOutput(path) && !lo.Contains(out, path) {
			out = append(out, path)
		}
	}
	return out
}

// isGeneratedOutput 文件首行是否为 rowgen 的生成头部
func isGeneratedOutput(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.Contains(line, plugin.GeneratedHeader)
}

// isWatchableDir 是否为需要监听的目录
func isWatchableDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir() && !skipWatchDir(filepath.Base(path))
}

// skipWatchDir 隐藏目录、下划线目录、vendor 和 testdata 不监听
func skipWatchDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
		name == "vendor" || name == "testdata"
}

// scheduleGenerate 防抖动调度生成
func (r *devRunner) scheduleGenerate(pkgDir string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 取消之前的 timer
	if timer, exists := r.pendingDirs[pkgDir]; exists {
		timer.Stop()
	}

	// 创建新的 timer
	var timer *time.Timer
	timer = time.AfterFunc(r.opts.Debounce, func() {
		// 检查 context 是否已取消
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		r.generate(pkgDir)
		r.finishGenerate(pkgDir, timer)
	})
	r.pendingDirs[pkgDir] = timer
}

// finishGenerate 生成结束后移除 timer，生成期间重新调度的新 timer 保留
func (r *devRunner) finishGenerate(pkgDir string, timer *time.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pendingDirs[pkgDir] == timer {
		delete(r.pendingDirs, pkgDir)
	}
}

// runGenerate 执行实际的代码生成
func (r *devRunner) runGenerate(pkgDir string) {
	if r.opts.Verbose {
		fmt.Printf("触发代码生成: %s\n", pkgDir)
	}

	opts := &plugin.RunOptions{
		Registry: r.registry,
		Patterns: []string{pkgDir}, // 只生成变动的包
		Verbose:  r.opts.Verbose,
		Output:   r.opts.Output,
		Async:    r.opts.Async,
		DryRun:   r.opts.DryRun,
	}

	stats, err := plugin.RunWithOptionsAndStats(r.ctx, opts)
	if err != nil {
		fmt.Printf("生成失败: %v\n", err)
		return
	}

	if stats != nil && r.opts.DryRun {
		fmt.Printf("将生成: %s\n", strings.Join(stats.Files, ", "))
	} else if stats != nil && stats.FileCount > 0 {
		fmt.Printf("生成完成: %d 个文件 (耗时: %v)\n", stats.FileCount, stats.TotalDuration)
	} else if r.opts.Verbose {
		fmt.Printf("生成完成: 无文件生成\n")
	}
}

// checkSyntax 检查文件语法
func checkSyntax(filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	_, err = imports.Process(filePath, content, &imports.Options{
		Fragment:   true,
		AllErrors:  true,
		Comments:   true,
		FormatOnly: true, // 只检查语法，不修改 imports
	})

	return err
}

// collectWatchDirs 收集所有需要监听的目录
func collectWatchDirs(patterns []string) ([]string, error) {
	var dirs []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		recursive := strings.HasSuffix(pattern, "/...")
		baseDir := strings.TrimSuffix(pattern, "/...")

		absDir, err := filepath.Abs(baseDir)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(absDir)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			continue
		}

		if recursive {
			// 递归收集所有子目录
			err := filepath.WalkDir(absDir, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}

				if !d.IsDir() {
					return nil
				}

				if path != absDir && skipWatchDir(d.Name()) {
					return filepath.SkipDir
				}

				if !seen[path] {
					seen[path] = true
					dirs = append(dirs, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else {
			if !seen[absDir] {
				seen[absDir] = true
				dirs = append(dirs, absDir)
			}
		}
	}

	return dirs, nil
}
