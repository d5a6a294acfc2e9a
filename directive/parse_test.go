package directive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		want Directive
	}{
		{"empty", "", Plain{}},
		{"rename", "rename=todo_id", Plain{Rename: "todo_id"}},
		{"default", "default", Plain{Default: true}},
		{"from", "from=int64", Plain{Conversion: Conversion{Kind: ConvFrom, Target: "int64"}}},
		{"try_from", "try_from=string", Plain{Conversion: Conversion{Kind: ConvTryFrom, Target: "string"}}},
		{"from_fn with default", "from_fn=parseRole,default", Plain{Conversion: Conversion{Kind: ConvFromFunc, Target: "parseRole"}, Default: true}},
		{"skip", "skip", Skip{}},
		{"dash", "-", Skip{}},
		{"flatten", "flatten", Flatten{}},
		{"flatten prefix field", "flatten,prefix", Flatten{Prefix: Prefix{Mode: PrefixField}}},
		{"flatten prefix explicit", "flatten,prefix=author_", Flatten{Prefix: Prefix{Mode: PrefixExplicit, Value: "author_"}}},
		{"flatten prefix empty value", "flatten,prefix=", Flatten{Prefix: Prefix{Mode: PrefixExplicit}}},
		{"flatten default", "flatten, default", Flatten{Default: true}},
		{"quoted rename", "rename='a,b'", Plain{Rename: "a,b"}},
		{"spaces and empty tokens", " rename = x ,, ", Plain{Rename: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse("F", tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Conflicts(t *testing.T) {
	tests := []struct {
		tag  string
		rule Rule
	}{
		{"skip,rename=x", RuleSkipExclusive},
		{"skip,flatten", RuleSkipExclusive},
		{"skip,default", RuleDefaultOnSkip},
		{"flatten,rename=x", RuleFlattenExclusive},
		{"flatten,from=int64", RuleFlattenExclusive},
		{"flatten,try_from=string", RuleFlattenExclusive},
		{"flatten,from_fn=f", RuleFlattenExclusive},
		{"prefix=a_", RulePrefixWithoutFlatten},
		{"prefix", RulePrefixWithoutFlatten},
		{"from=int64,try_from=string", RuleConversionExclusive},
		{"from=int64,from_fn=f", RuleConversionExclusive},
		{"nullable", RuleUnknownKey},
		{"rename=a,rename=b", RuleDuplicateKey},
		{"rename", RuleMissingValue},
		{"from=", RuleMissingValue},
		{"flatten=yes", RuleUnexpectedValue},
		{"default=true", RuleUnexpectedValue},
		{"rename='a", RuleUnterminatedQuote},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			_, err := Parse("Field", tt.tag)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConflict))

			var ce *ConflictError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.rule, ce.Rule)
			assert.Equal(t, "Field", ce.Field)
		})
	}
}

func TestConflictError_Message(t *testing.T) {
	err := &ConflictError{Struct: "Todo", Field: "Author", Rule: RuleFlattenExclusive, Detail: "rename"}
	assert.Equal(t, "fromrow: field Todo.Author: flatten excludes rename, from, try_from and from_fn (rename)", err.Error())

	err = &ConflictError{Field: "X", Rule: RuleGenericStruct}
	assert.Equal(t, "fromrow: field X: generic structs are not supported", err.Error())

	err = &ConflictError{Struct: "Box", Rule: RuleGenericStruct, Detail: "T, K"}
	assert.Equal(t, "fromrow: struct Box: generic structs are not supported (T, K)", err.Error())
}

func TestParseTag(t *testing.T) {
	d, err := ParseTag("Author", "`json:\"author\" fromrow:\"flatten,prefix=author_\"`")
	require.NoError(t, err)
	assert.Equal(t, Flatten{Prefix: Prefix{Mode: PrefixExplicit, Value: "author_"}}, d)

	d, err = ParseTag("Name", `json:"name"`)
	require.NoError(t, err)
	assert.Equal(t, Plain{}, d)
}

func TestLookupTag(t *testing.T) {
	v, ok := LookupTag("`fromrow:\"skip\"`")
	assert.True(t, ok)
	assert.Equal(t, "skip", v)

	_, ok = LookupTag(`db:"id"`)
	assert.False(t, ok)
}
