package utils

import (
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// commonInitialisms 常见首字母缩略词，与 GORM 保持一致
var commonInitialisms = []string{
	"API", "ASCII", "CPU", "CSS", "DNS", "EOF", "GUID", "HTML", "HTTP", "HTTPS",
	"ID", "IP", "JSON", "LHS", "QPS", "RAM", "RHS", "RPC", "SLA", "SMTP",
	"SSH", "TLS", "TTL", "UID", "UI", "UUID", "URI", "URL", "UTF8", "VM",
	"XML", "XSRF", "XSS",
}

// initialismReplacer API -> Api, HTTP -> Http
var initialismReplacer = strings.NewReplacer(lo.FlatMap(commonInitialisms, func(s string, _ int) []string {
	return []string{s, s[:1] + strings.ToLower(s[1:])}
})...)

// ToSnakeCase 驼峰转蛇形，结果与 GORM 的 NamingStrategy.ColumnName 一致
//
// 大写字母在单词边界前插入下划线，连续大写视为同一个单词：
// AuthorID -> author_id，HTTPServer -> http_server，SHA256Hash -> sha256_hash。
func ToSnakeCase(name string) string {
	if name == "" {
		return ""
	}

	rs := []rune(initialismReplacer.Replace(name))
	var b strings.Builder
	b.Grow(len(rs) + 4)

	for i, r := range rs {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		prevUpper := i > 0 && unicode.IsUpper(rs[i-1])
		switch {
		case i == len(rs)-1:
			if i > 0 && !prevUpper {
				b.WriteByte('_')
			}
		case prevUpper && (unicode.IsUpper(rs[i+1]) || unicode.IsDigit(rs[i+1])):
		case i > 0 && rs[i-1] != '_' && rs[i+1] != '_':
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}
