package directive

import (
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var stdlibCache sync.Map // import path -> bool

// StdlibPackage 导入路径是否属于标准库（位于 GOROOT/src 下）
//
// 标准库类型不可能实现 fromrow.FromRow，不能作为 flatten 目标。
func StdlibPackage(path string) bool {
	if path == "" {
		return false
	}
	if first, _, _ := strings.Cut(path, "/"); strings.Contains(first, ".") {
		return false
	}
	if v, ok := stdlibCache.Load(path); ok {
		return v.(bool)
	}
	found := false
	if root := build.Default.GOROOT; root != "" {
		info, err := os.Stat(filepath.Join(root, "src", filepath.FromSlash(path)))
		found = err == nil && info.IsDir()
	}
	stdlibCache.Store(path, found)
	return found
}
