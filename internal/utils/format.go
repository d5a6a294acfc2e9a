package utils

import (
	"fmt"
	"os"

	"golang.org/x/tools/imports"
)

// Format 格式化源码并整理导入，失败时返回原始源码与错误
func Format(filename string, src []byte) ([]byte, error) {
	out, err := imports.Process(filename, src, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: false,
	})
	if err != nil {
		return src, fmt.Errorf("格式化 %s 失败: %w", filename, err)
	}
	return out, nil
}

// WriteFormat 格式化后写入文件
// 格式化失败时仍写入未格式化的源码，便于定位生成结果中的问题
func WriteFormat(path string, src []byte) error {
	out, fmtErr := Format(path, src)
	if err := os.WriteFile(path, out, 0644); err != nil {
		return err
	}
	return fmtErr
}
