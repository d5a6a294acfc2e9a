package directive

import (
	"errors"
	"fmt"
)

// ErrConflict 所有指令错误都可以通过 errors.Is(err, ErrConflict) 判断
var ErrConflict = errors.New("fromrow: directive conflict")

// Rule 被违反的指令规则
type Rule string

const (
	RuleSkipExclusive        Rule = "skip excludes all other keys"
	RuleDefaultOnSkip        Rule = "default is not valid on skip"
	RuleFlattenExclusive     Rule = "flatten excludes rename, from, try_from and from_fn"
	RulePrefixWithoutFlatten Rule = "prefix is only valid with flatten"
	RuleConversionExclusive  Rule = "at most one of from, try_from and from_fn"
	RuleUnknownKey           Rule = "unknown key"
	RuleDuplicateKey         Rule = "duplicate key"
	RuleMissingValue         Rule = "key requires a value"
	RuleUnexpectedValue      Rule = "key does not take a value"
	RuleUnterminatedQuote    Rule = "unterminated quote"
	RuleFlattenTarget        Rule = "flatten requires a named struct type or a pointer to one"
	RuleGenericStruct        Rule = "generic structs are not supported"
)

// ConflictError 生成期（或注册期）的指令错误，出现即终止，不会产出解码器
type ConflictError struct {
	Struct string // 所在结构体，可能为空
	Field  string
	Rule   Rule
	Detail string // 触发规则的具体 key 或类型
}

func (e *ConflictError) Error() string {
	where := "field " + e.Field
	switch {
	case e.Field == "":
		where = "struct " + e.Struct
	case e.Struct != "":
		where = "field " + e.Struct + "." + e.Field
	}
	if e.Detail != "" {
		return fmt.Sprintf("fromrow: %s: %s (%s)", where, e.Rule, e.Detail)
	}
	return fmt.Sprintf("fromrow: %s: %s", where, e.Rule)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func conflict(field string, rule Rule, detail string) *ConflictError {
	return &ConflictError{Field: field, Rule: rule, Detail: detail}
}
