// Package structparse 对 Go 结构体做静态分析，为 fromrowgen 提供字段信息。
//
// 只解析单个文件，不加载类型信息：
//
//  1. 字段解析 - 字段名、类型表达式、标签、是否匿名、是否导出
//  2. 导入收集 - 字段类型中出现的包限定符及其导入路径，保留显式别名
//  3. 泛型检测 - 记录结构体的类型参数
//
// # 基本用法
//
//	info, err := structparse.ParseStruct("path/to/file.go", "Todo")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, field := range info.Fields {
//	    fmt.Printf("  字段: %s %s %s\n", field.Name, field.Type, field.Tag)
//	}
//
// 匿名字段不展开，字段名取类型名（去掉指针、包限定符和类型实参）。
// 生成代码通过嵌套类型自身的映射方法处理匿名字段。
package structparse
