package structparse

// ImportInfo 导入信息
type ImportInfo struct {
	Alias      string // 显式别名（如果有）
	Qualifier  string // 源码中使用的包限定符
	ImportPath string // 完整导入路径
}

// FieldInfo 表示结构体字段信息
type FieldInfo struct {
	Name     string       // 字段名，匿名字段为类型名
	Type     string       // 字段类型表达式，如 "*User"、"sql.NullString"
	Tag      string       // 字段标签（不含反引号）
	Embedded bool         // 是否匿名字段
	Exported bool         // 是否导出
	Imports  []ImportInfo // 类型表达式引用的包
}

// StructInfo 表示结构体信息
type StructInfo struct {
	Name        string       // 结构体名称
	PackageName string       // 包名
	FilePath    string       // 结构体所在文件路径
	Fields      []FieldInfo  // 字段列表，保持声明顺序
	TypeParams  []string     // 类型参数名，非泛型结构体为空
	Imports     []ImportInfo // 文件的全部导入
}

// IsGeneric 是否泛型结构体
func (s *StructInfo) IsGeneric() bool {
	return len(s.TypeParams) > 0
}

// FieldImports 字段引用的全部导入，按导入路径去重并保持首次出现顺序
func (s *StructInfo) FieldImports() []ImportInfo {
	seen := make(map[string]bool)
	var out []ImportInfo
	for _, f := range s.Fields {
		for _, imp := range f.Imports {
			if seen[imp.ImportPath] {
				continue
			}
			seen[imp.ImportPath] = true
			out = append(out, imp)
		}
	}
	return out
}
