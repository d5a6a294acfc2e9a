package structparse

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"path"
	"sort"
	"strconv"
	"strings"
)

// ParseStruct 解析指定文件中的结构体
func ParseStruct(filename, structName string) (*StructInfo, error) {
	return ParseSource(filename, nil, structName)
}

// ParseSource 解析源码中的结构体，src 为 nil 时读取 filename
func ParseSource(filename string, src any, structName string) (*StructInfo, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("解析文件失败: %w", err)
	}

	typeSpec := findStruct(node, structName)
	if typeSpec == nil {
		return nil, fmt.Errorf("未找到结构体 %s", structName)
	}

	info := &StructInfo{
		Name:        structName,
		PackageName: node.Name.Name,
		FilePath:    filename,
	}

	imports := extractImports(node)
	for _, imp := range imports {
		info.Imports = append(info.Imports, imp)
	}
	sort.Slice(info.Imports, func(i, j int) bool {
		return info.Imports[i].ImportPath < info.Imports[j].ImportPath
	})

	if typeSpec.TypeParams != nil {
		for _, field := range typeSpec.TypeParams.List {
			for _, name := range field.Names {
				info.TypeParams = append(info.TypeParams, name.Name)
			}
		}
	}

	structType := typeSpec.Type.(*ast.StructType)
	for _, field := range structType.Fields.List {
		fieldType := types.ExprString(field.Type)

		var tag string
		if field.Tag != nil {
			tag, err = strconv.Unquote(field.Tag.Value)
			if err != nil {
				return nil, fmt.Errorf("结构体 %s 字段标签无效 %s: %w", structName, field.Tag.Value, err)
			}
		}

		fieldImports := usedImports(field.Type, imports)

		if len(field.Names) == 0 {
			// 匿名字段
			name := embeddedName(field.Type)
			info.Fields = append(info.Fields, FieldInfo{
				Name:     name,
				Type:     fieldType,
				Tag:      tag,
				Embedded: true,
				Exported: token.IsExported(name),
				Imports:  fieldImports,
			})
			continue
		}
		for _, name := range field.Names {
			info.Fields = append(info.Fields, FieldInfo{
				Name:     name.Name,
				Type:     fieldType,
				Tag:      tag,
				Exported: name.IsExported(),
				Imports:  fieldImports,
			})
		}
	}

	return info, nil
}

// findStruct 查找目标结构体的类型声明
func findStruct(node *ast.File, structName string) *ast.TypeSpec {
	for _, decl := range node.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}
		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok || typeSpec.Name.Name != structName {
				continue
			}
			if _, ok := typeSpec.Type.(*ast.StructType); ok {
				return typeSpec
			}
		}
	}
	return nil
}

// extractImports 提取文件中的导入信息，key 为源码中使用的包限定符
func extractImports(node *ast.File) map[string]ImportInfo {
	imports := make(map[string]ImportInfo)
	for _, imp := range node.Imports {
		importPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		info := ImportInfo{ImportPath: importPath}
		if imp.Name != nil {
			if imp.Name.Name == "_" || imp.Name.Name == "." {
				continue
			}
			info.Alias = imp.Name.Name
			info.Qualifier = imp.Name.Name
		} else {
			info.Qualifier = assumedPackageName(importPath)
		}
		imports[info.Qualifier] = info
	}
	return imports
}

// usedImports 类型表达式中出现的包限定符对应的导入
func usedImports(expr ast.Expr, imports map[string]ImportInfo) []ImportInfo {
	var out []ImportInfo
	seen := make(map[string]bool)
	ast.Inspect(expr, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if x, ok := sel.X.(*ast.Ident); ok && !seen[x.Name] {
			seen[x.Name] = true
			if imp, ok := imports[x.Name]; ok {
				out = append(out, imp)
			}
		}
		return true
	})
	return out
}

// embeddedName 匿名字段的字段名：*pkg.T[X] -> T
func embeddedName(expr ast.Expr) string {
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.SelectorExpr:
			return e.Sel.Name
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.Ident:
			return e.Name
		default:
			return types.ExprString(expr)
		}
	}
}

// assumedPackageName 由导入路径推测包名
// "github.com/jackc/pgx/v5" -> "pgx"，"gopkg.in/yaml.v3" -> "yaml"，"github.com/mattn/go-sqlite3" -> "sqlite3"
func assumedPackageName(importPath string) string {
	base := path.Base(importPath)
	if isVersionElem(base) {
		base = path.Base(path.Dir(importPath))
	}
	if i := strings.Index(base, ".v"); i > 0 {
		base = base[:i]
	}
	base = strings.TrimPrefix(base, "go-")
	if i := strings.IndexAny(base, ".-"); i > 0 {
		base = base[:i]
	}
	return base
}

func isVersionElem(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
