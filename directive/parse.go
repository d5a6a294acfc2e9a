package directive

import (
	"reflect"
	"strings"
)

// 已识别的指令 key
const (
	keyFlatten = "flatten"
	keyPrefix  = "prefix"
	keyTryFrom = "try_from"
	keyFrom    = "from"
	keyFromFn  = "from_fn"
	keyRename  = "rename"
	keySkip    = "skip"
	keyDefault = "default"
)

type valueRule int

const (
	valueNone     valueRule = iota // 不接受值
	valueRequired                  // 必须有非空值
	valueOptional                  // 可有可无
)

var knownKeys = map[string]valueRule{
	keyFlatten: valueNone,
	keyPrefix:  valueOptional,
	keyTryFrom: valueRequired,
	keyFrom:    valueRequired,
	keyFromFn:  valueRequired,
	keyRename:  valueRequired,
	keySkip:    valueNone,
	keyDefault: valueNone,
}

type token struct {
	key      string
	value    string
	hasValue bool
}

// LookupTag 从原始 struct tag（可带反引号）中取出 fromrow 指令
func LookupTag(raw string) (string, bool) {
	raw = strings.Trim(raw, "`")
	return reflect.StructTag(raw).Lookup(TagKey)
}

// ParseTag 解析完整的 struct tag，没有 fromrow 键时返回默认的 Plain
func ParseTag(field, rawTag string) (Directive, error) {
	tag, _ := LookupTag(rawTag)
	return Parse(field, tag)
}

// Parse 解析单个字段的 fromrow 指令
//
// 空指令得到不带任何选项的 Plain。"-" 等价于 skip。
func Parse(field, tag string) (Directive, error) {
	tag = strings.TrimSpace(tag)
	if tag == "-" {
		return Skip{}, nil
	}

	tokens, err := tokenize(field, tag)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]token, len(tokens))
	for _, t := range tokens {
		rule, ok := knownKeys[t.key]
		if !ok {
			return nil, conflict(field, RuleUnknownKey, t.key)
		}
		if _, dup := seen[t.key]; dup {
			return nil, conflict(field, RuleDuplicateKey, t.key)
		}
		switch rule {
		case valueNone:
			if t.hasValue {
				return nil, conflict(field, RuleUnexpectedValue, t.key)
			}
		case valueRequired:
			if !t.hasValue || t.value == "" {
				return nil, conflict(field, RuleMissingValue, t.key)
			}
		}
		seen[t.key] = t
	}

	has := func(key string) bool {
		_, ok := seen[key]
		return ok
	}

	if has(keySkip) {
		if has(keyDefault) {
			return nil, conflict(field, RuleDefaultOnSkip, keyDefault)
		}
		if len(seen) > 1 {
			return nil, conflict(field, RuleSkipExclusive, otherKeys(tokens, keySkip))
		}
		return Skip{}, nil
	}

	var conv Conversion
	var convKeys []string
	for _, c := range []struct {
		key  string
		kind ConversionKind
	}{
		{keyFrom, ConvFrom},
		{keyTryFrom, ConvTryFrom},
		{keyFromFn, ConvFromFunc},
	} {
		if t, ok := seen[c.key]; ok {
			conv = Conversion{Kind: c.kind, Target: t.value}
			convKeys = append(convKeys, c.key)
		}
	}
	if len(convKeys) > 1 {
		return nil, conflict(field, RuleConversionExclusive, strings.Join(convKeys, ","))
	}

	if has(keyFlatten) {
		if has(keyRename) {
			return nil, conflict(field, RuleFlattenExclusive, keyRename)
		}
		if len(convKeys) > 0 {
			return nil, conflict(field, RuleFlattenExclusive, convKeys[0])
		}
		d := Flatten{Default: has(keyDefault)}
		if t, ok := seen[keyPrefix]; ok {
			if t.hasValue {
				d.Prefix = Prefix{Mode: PrefixExplicit, Value: t.value}
			} else {
				d.Prefix = Prefix{Mode: PrefixField}
			}
		}
		return d, nil
	}

	if has(keyPrefix) {
		return nil, conflict(field, RulePrefixWithoutFlatten, keyPrefix)
	}

	return Plain{
		Rename:     seen[keyRename].value,
		Conversion: conv,
		Default:    has(keyDefault),
	}, nil
}

// tokenize 按逗号切分，单引号内的逗号不切分
func tokenize(field, tag string) ([]token, error) {
	var parts []string
	var cur strings.Builder
	inQuote := false
	for _, r := range tag {
		switch {
		case r == '\'':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ',' && !inQuote:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, conflict(field, RuleUnterminatedQuote, tag)
	}
	parts = append(parts, cur.String())

	tokens := make([]token, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key, value, hasValue := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if len(value) >= 2 && value[0] == '\'' && value[len(value)-1] == '\'' {
			value = value[1 : len(value)-1]
		}
		tokens = append(tokens, token{key: key, value: value, hasValue: hasValue})
	}
	return tokens, nil
}

func otherKeys(tokens []token, except string) string {
	var keys []string
	for _, t := range tokens {
		if t.key != except {
			keys = append(keys, t.key)
		}
	}
	return strings.Join(keys, ",")
}
