// Package fromrow 是 rowgen 的运行时部分：行访问接口、生成代码实现的映射协议、
// 解码错误，以及在注册时编译同一套 fromrow 指令的反射映射器。
//
// 标注了 @FromRow 的结构体会生成两个方法：
//
//	func (t *Todo) TryFromRowPrefixed(row fromrow.Row, prefix string) error
//	func (t *Todo) IsAllNull(row fromrow.Row, prefix string) (bool, error)
//
// 调用方一般使用泛型包装：
//
//	todo, err := fromrow.TryFrom[Todo](row)
//	editor, err := fromrow.Optional[User](row, "editor_")
package fromrow

// Row 已取出的一行数据，按列名访问
//
// Get 将列解码到 dest（非 nil 指针）。列不存在返回 KindMissingColumn，
// NULL 解码到不可空的目标返回 KindNullOnNonNullable。
type Row interface {
	Get(name string, dest any) error
	IsNull(name string) (bool, error)
}

// FromRow 映射协议，由生成代码实现在 *T 上
type FromRow interface {
	// TryFromRowPrefixed 以 prefix+列名 解码全部字段，失败时接收者保持不变
	TryFromRowPrefixed(row Row, prefix string) error
	// IsAllNull 该类型在 prefix 下读取的列是否全部为 NULL，列不存在返回错误
	IsAllNull(row Row, prefix string) (bool, error)
}

// Defaulter 可选实现在 *T 上，用于定制 skip 和 default 字段的默认值
type Defaulter interface {
	RowDefault()
}

// TryFromer 从 S 的可失败转换，try_from 指令使用
type TryFromer[S any] interface {
	TryFrom(src S) error
}

type ptrFromRow[T any] interface {
	*T
	FromRow
}
