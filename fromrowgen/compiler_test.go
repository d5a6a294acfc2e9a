package fromrowgen

import (
	"errors"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/donutnomad/gg"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donutnomad/rowgen/directive"
	"github.com/donutnomad/rowgen/internal/structparse"
	"github.com/donutnomad/rowgen/internal/utils"
)

const todoSource = "package models\n\n" +
	"import (\n" +
	"\t\"database/sql\"\n" +
	"\t\"fmt\"\n" +
	"\t\"strings\"\n" +
	"\t\"time\"\n\n" +
	"\tpg \"github.com/jackc/pgx/v5/pgtype\"\n" +
	")\n\n" +
	"var _ = fmt.Sprint\n\n" +
	"type Todo struct {\n" +
	"\tID       int64             `fromrow:\"rename=todo_id\"`\n" +
	"\tTitle    string\n" +
	"\tNote     sql.NullString    `fromrow:\"default\"`\n" +
	"\tPriority Priority          `fromrow:\"from=int64\"`\n" +
	"\tLevel    Level             `fromrow:\"try_from=string,default\"`\n" +
	"\tTags     []string          `fromrow:\"from_fn=splitTags\"`\n" +
	"\tAuthor   User              `fromrow:\"flatten,prefix=author_\"`\n" +
	"\tEditor   *User             `fromrow:\"flatten,prefix\"`\n" +
	"\tRole     Role              `fromrow:\"flatten,default,prefix=role_\"`\n" +
	"\tStamp    pg.Timestamptz\n" +
	"\tCache    map[string]string `fromrow:\"-\"`\n" +
	"\tAudit\n" +
	"}\n\n" +
	"type Bare struct {\n" +
	"\tCache map[string]int `fromrow:\"skip\"`\n" +
	"\tnote  string\n" +
	"}\n\n" +
	"type Box[T any] struct {\n" +
	"\tValue T\n" +
	"}\n\n" +
	"type Broken struct {\n" +
	"\tAuthor User `fromrow:\"flatten,rename=a\"`\n" +
	"}\n\n" +
	"type Stamped struct {\n" +
	"\ttime.Time\n" +
	"\tID int64\n" +
	"}\n\n" +
	"type Created struct {\n" +
	"\ttime.Time `fromrow:\"rename=created_at\"`\n" +
	"}\n\n" +
	"type Trimmed struct {\n" +
	"\tName string `fromrow:\"from_fn=strings.TrimSpace\"`\n" +
	"}\n\n" +
	"type Ärger struct {\n" +
	"\tID int64\n" +
	"}\n"

// compact 去掉全部空白，避免依赖具体的格式化结果
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func compileSource(t *testing.T, name string, opts Options) (*Compiled, string) {
	t.Helper()
	info, err := structparse.ParseSource("models.go", todoSource, name)
	require.NoError(t, err)

	compiled, err := Compile(info, opts)
	require.NoError(t, err)

	gen := gg.New()
	gen.SetPackage(info.PackageName)
	compiled.Emit(gen)

	_, err = parser.ParseFile(token.NewFileSet(), "out.go", gen.String(), 0)
	require.NoError(t, err, "生成代码语法错误:\n%s", gen.String())

	// 与写盘时一致，经 gofmt 与 goimports 处理
	out, err := utils.Format("out.go", []byte(gen.String()))
	require.NoError(t, err)
	return compiled, string(out)
}

func TestCompile_Extract(t *testing.T) {
	_, code := compileSource(t, "Todo", Options{Assert: true})
	got := compact(code)

	for _, want := range []string{
		`func (t *Todo) TryFromRowPrefixed(row fromrow.Row, prefix string) error`,
		`var out Todo`,
		`var err error`,
		`if out.ID, err = fromrow.Get[int64](row, prefix+"todo_id"); err != nil { return err }`,
		`if out.Title, err = fromrow.Get[string](row, prefix+"title"); err != nil { return err }`,
		`if out.Note, err = fromrow.GetOrDefault[sql.NullString](row, prefix+"note"); err != nil { return err }`,
		`var rawPriority int64`,
		`if rawPriority, err = fromrow.Get[int64](row, prefix+"priority"); err != nil { return err }`,
		`out.Priority = Priority(rawPriority)`,
		`if out.Level, err = fromrow.GetTryFromOrDefault[Level, string](row, prefix+"level"); err != nil { return err }`,
		`if out.Tags, err = fromrow.Apply(row, prefix+"tags", splitTags); err != nil { return err }`,
		`if out.Author, err = fromrow.TryFromPrefixed[User](row, prefix+"author_"); err != nil { return err }`,
		`if out.Editor, err = fromrow.Optional[User](row, prefix+"editor_"); err != nil { return err }`,
		`if out.Role, err = fromrow.OptionalOrDefault[Role](row, prefix+"role_"); err != nil { return err }`,
		`if out.Stamp, err = fromrow.Get[pg.Timestamptz](row, prefix+"stamp"); err != nil { return err }`,
		`out.Cache = fromrow.DefaultOf[map[string]string]()`,
		`if out.Audit, err = fromrow.TryFromPrefixed[Audit](row, prefix); err != nil { return err }`,
		`*t = out return nil`,
	} {
		assert.Contains(t, got, compact(want))
	}

	// 字段按声明顺序解码
	assert.Less(t, strings.Index(got, "out.ID,"), strings.Index(got, "out.Title,"))
	assert.Less(t, strings.Index(got, "out.Stamp,"), strings.Index(got, "out.Cache="))
	assert.Less(t, strings.Index(got, "out.Cache="), strings.Index(got, "out.Audit,"))
}

func TestCompile_IsAllNull(t *testing.T) {
	_, code := compileSource(t, "Todo", Options{})
	got := compact(code)

	assert.Contains(t, got, compact(`func (t *Todo) IsAllNull(row fromrow.Row, prefix string) (bool, error)`))
	for _, want := range []string{
		`row.IsNull(prefix+"todo_id")`,
		`row.IsNull(prefix+"tags")`,
		`fromrow.IsAllNull[User](row, prefix+"author_")`,
		`fromrow.IsAllNull[User](row, prefix+"editor_")`,
		`fromrow.IsAllNull[Audit](row, prefix)`,
	} {
		assert.Contains(t, got, compact("if null, err := "+want+"; err != nil || !null { return false, err }"))
	}
	assert.NotContains(t, got, `"cache"`, "skip 字段不参与探测")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(got), compact("return true, nil }")))
}

func TestCompile_Assertions(t *testing.T) {
	_, code := compileSource(t, "Todo", Options{Assert: true})
	got := compact(code)

	assert.Contains(t, got, compact(`_ fromrow.FromRow = (*Todo)(nil)`))
	assert.Contains(t, got, compact(`_ fromrow.FromRow = (*Role)(nil)`))
	assert.Contains(t, got, compact(`_ fromrow.TryFromer[string] = (*Level)(nil)`))
	assert.Equal(t, 1, strings.Count(got, compact(`_ fromrow.FromRow = (*User)(nil)`)), "重复约束只生成一次")

	_, code = compileSource(t, "Todo", Options{Assert: false})
	assert.NotContains(t, compact(code), "_fromrow.FromRow=")
}

func TestCompile_Imports(t *testing.T) {
	_, code := compileSource(t, "Todo", Options{})

	assert.Contains(t, code, `"github.com/donutnomad/rowgen/fromrow"`)
	assert.Contains(t, code, `"database/sql"`)
	assert.Contains(t, code, `pg "github.com/jackc/pgx/v5/pgtype"`)
	assert.NotContains(t, code, `"fmt"`, "字段未引用的导入不生成")
	assert.NotContains(t, code, `"time"`)

	// 转换函数引用的包
	compiled, code := compileSource(t, "Trimmed", Options{})
	assert.Equal(t, []string{"strings"}, lo.Map(compiled.imports(), func(imp structparse.ImportInfo, _ int) string {
		return imp.ImportPath
	}))
	assert.Contains(t, code, `"strings"`)
	assert.Contains(t, compact(code), compact(`fromrow.Apply(row, prefix+"name", strings.TrimSpace)`))
}

func TestCompile_SkipOnly(t *testing.T) {
	compiled, code := compileSource(t, "Bare", Options{})
	got := compact(code)

	assert.NotContains(t, got, "varerrerror")
	assert.Contains(t, got, compact(`out.Cache = fromrow.DefaultOf[map[string]int]()`))
	assert.Contains(t, got, compact(`out.note = fromrow.DefaultOf[string]()`))
	assert.Contains(t, got, compact(`(row fromrow.Row, prefix string) (bool, error) { return true, nil }`))
	assert.Equal(t, "b", compiled.receiver)
}

func TestCompile_NamingExact(t *testing.T) {
	_, code := compileSource(t, "Todo", Options{Naming: directive.NamingExact})
	got := compact(code)

	assert.Contains(t, got, compact(`fromrow.Get[string](row, prefix+"Title")`))
	assert.Contains(t, got, compact(`fromrow.Optional[User](row, prefix+"Editor_")`))
	assert.Contains(t, got, compact(`prefix+"todo_id"`), "rename 不受命名规则影响")
}

func TestCompile_Errors(t *testing.T) {
	info, err := structparse.ParseSource("models.go", todoSource, "Box")
	require.NoError(t, err)
	_, err = Compile(info, Options{})
	require.True(t, errors.Is(err, directive.ErrConflict))
	var ce *directive.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, directive.RuleGenericStruct, ce.Rule)
	assert.Equal(t, "Box", ce.Struct)

	info, err = structparse.ParseSource("models.go", todoSource, "Broken")
	require.NoError(t, err)
	_, err = Compile(info, Options{})
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, directive.RuleFlattenExclusive, ce.Rule)
	assert.Equal(t, "Broken", ce.Struct)
	assert.Equal(t, "Author", ce.Field)
}

func TestCompile_FlattenTarget(t *testing.T) {
	// 未标记的匿名 time.Time 推导为 flatten，标准库类型没有 TryFromRowPrefixed
	info, err := structparse.ParseSource("models.go", todoSource, "Stamped")
	require.NoError(t, err)
	_, err = Compile(info, Options{})
	require.True(t, errors.Is(err, directive.ErrConflict), "err=%v", err)
	var ce *directive.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, directive.RuleFlattenTarget, ce.Rule)
	assert.Equal(t, "Stamped", ce.Struct)
	assert.Equal(t, "Time", ce.Field)
	assert.Contains(t, ce.Detail, "time.Time")

	// 显式标记为普通列
	_, code := compileSource(t, "Created", Options{})
	assert.Contains(t, compact(code), compact(`if out.Time, err = fromrow.Get[time.Time](row, prefix+"created_at"); err != nil { return err }`))
	assert.Contains(t, code, `"time"`)
}

func TestCompile_Receiver(t *testing.T) {
	compiled, code := compileSource(t, "Ärger", Options{})
	assert.Equal(t, "ä", compiled.receiver)
	assert.Contains(t, compact(code), compact(`func (ä *Ärger) TryFromRowPrefixed(row fromrow.Row, prefix string) error`))
	assert.Contains(t, compact(code), compact(`*ä = out`))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, []string{"uuid", "pg"}, qualifiers("map[uuid.UUID]pg.Text"))
	assert.Equal(t, []string{"strconv"}, qualifiers("strconv.Itoa"))
	assert.Empty(t, qualifiers("[]byte"))
	assert.Empty(t, qualifiers("not a type!"))

	assert.Equal(t, "Priority(raw)", convert("Priority", "raw"))
	assert.Equal(t, "(*Priority)(raw)", convert("*Priority", "raw"))
	assert.Equal(t, "prefix", childPrefix(""))
	assert.Equal(t, `prefix+"a_"`, childPrefix("a_"))
}
