package fromrow

import (
	"errors"
	"fmt"
)

// ErrorKind 解码错误类型
type ErrorKind int

const (
	KindMissingColumn ErrorKind = iota + 1
	KindTypeMismatch
	KindNullOnNonNullable
	KindConversionFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingColumn:
		return "missing column"
	case KindTypeMismatch:
		return "type mismatch"
	case KindNullOnNonNullable:
		return "null on non-nullable"
	case KindConversionFailed:
		return "conversion failed"
	default:
		return "unknown"
	}
}

// 用于 errors.Is 的哨兵错误
var (
	ErrMissingColumn     = errors.New("fromrow: missing column")
	ErrTypeMismatch      = errors.New("fromrow: type mismatch")
	ErrNullOnNonNullable = errors.New("fromrow: null on non-nullable")
	ErrConversionFailed  = errors.New("fromrow: conversion failed")
)

// Error 单列解码错误
type Error struct {
	Kind     ErrorKind
	Column   string
	Expected string // 目标类型
	Found    string // 源值类型，仅 TypeMismatch
	Cause    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingColumn:
		return fmt.Sprintf("fromrow: column %q: missing", e.Column)
	case KindTypeMismatch:
		if e.Cause != nil {
			return fmt.Sprintf("fromrow: column %q: cannot decode %s into %s: %v", e.Column, e.Found, e.Expected, e.Cause)
		}
		return fmt.Sprintf("fromrow: column %q: cannot decode %s into %s", e.Column, e.Found, e.Expected)
	case KindNullOnNonNullable:
		return fmt.Sprintf("fromrow: column %q: NULL into non-nullable %s", e.Column, e.Expected)
	case KindConversionFailed:
		return fmt.Sprintf("fromrow: column %q: conversion to %s failed: %v", e.Column, e.Expected, e.Cause)
	default:
		return fmt.Sprintf("fromrow: column %q: %v", e.Column, e.Cause)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrMissingColumn:
		return e.Kind == KindMissingColumn
	case ErrTypeMismatch:
		return e.Kind == KindTypeMismatch
	case ErrNullOnNonNullable:
		return e.Kind == KindNullOnNonNullable
	case ErrConversionFailed:
		return e.Kind == KindConversionFailed
	}
	return false
}

func MissingColumn(column string) *Error {
	return &Error{Kind: KindMissingColumn, Column: column}
}

func TypeMismatch(column, expected, found string) *Error {
	return &Error{Kind: KindTypeMismatch, Column: column, Expected: expected, Found: found}
}

func NullOnNonNullable(column, expected string) *Error {
	return &Error{Kind: KindNullOnNonNullable, Column: column, Expected: expected}
}

func ConversionFailed(column, expected string, cause error) *Error {
	return &Error{Kind: KindConversionFailed, Column: column, Expected: expected, Cause: cause}
}
