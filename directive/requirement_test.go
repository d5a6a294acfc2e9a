package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustResolve(t *testing.T, name, typ, tag string) FieldSpec {
	t.Helper()
	f, err := Resolve(FieldInput{Name: name, Type: typ, Tag: tag, Exported: true}, NamingSnake)
	require.NoError(t, err)
	return f
}

func TestRequirements(t *testing.T) {
	tests := []struct {
		name  string
		field FieldSpec
		want  []Requirement
	}{
		{
			name:  "plain",
			field: mustResolve(t, "Text", "string", ""),
			want:  []Requirement{{Kind: ReqDecodeColumn, Type: "string"}},
		},
		{
			name:  "plain default",
			field: mustResolve(t, "Text", "string", `fromrow:"default"`),
			want: []Requirement{
				{Kind: ReqDecodeColumn, Type: "string"},
				{Kind: ReqProduceDefault, Type: "string"},
			},
		},
		{
			name:  "from",
			field: mustResolve(t, "Count", "Count", `fromrow:"from=int64"`),
			want: []Requirement{
				{Kind: ReqDecodeColumn, Type: "int64"},
				{Kind: ReqConvertFrom, Type: "Count", From: "int64"},
			},
		},
		{
			name:  "try_from",
			field: mustResolve(t, "Role", "Role", `fromrow:"try_from=string"`),
			want: []Requirement{
				{Kind: ReqDecodeColumn, Type: "string"},
				{Kind: ReqTryConvertFrom, Type: "Role", From: "string"},
			},
		},
		{
			name:  "from_fn",
			field: mustResolve(t, "Tags", "[]string", `fromrow:"from_fn=splitTags"`),
			want:  []Requirement{{Kind: ReqFuncSignature, Type: "[]string", Func: "splitTags"}},
		},
		{
			name:  "flatten default",
			field: mustResolve(t, "Author", "User", `fromrow:"flatten,default"`),
			want: []Requirement{
				{Kind: ReqMappingProtocol, Type: "User"},
				{Kind: ReqProduceDefault, Type: "User"},
			},
		},
		{
			name:  "flatten pointer",
			field: mustResolve(t, "Editor", "*User", `fromrow:"flatten,prefix"`),
			want:  []Requirement{{Kind: ReqMappingProtocol, Type: "User"}},
		},
		{
			name:  "skip",
			field: mustResolve(t, "Cache", "[]byte", `fromrow:"skip"`),
			want:  []Requirement{{Kind: ReqProduceDefault, Type: "[]byte"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Requirements(tt.field))
		})
	}
}

func TestStructRequirements_Dedup(t *testing.T) {
	spec, err := BuildStruct("Todo", []FieldInput{
		{Name: "Author", Type: "User", Tag: `fromrow:"flatten,prefix=author_"`, Exported: true},
		{Name: "Editor", Type: "*User", Tag: `fromrow:"flatten,prefix=editor_"`, Exported: true},
		{Name: "Text", Type: "string", Exported: true},
	}, NamingSnake)
	require.NoError(t, err)

	assert.Equal(t, []Requirement{
		{Kind: ReqMappingProtocol, Type: "User"},
		{Kind: ReqDecodeColumn, Type: "string"},
	}, StructRequirements(spec))
}
