package fromrow_test

import (
	"fmt"
	"strings"

	"github.com/donutnomad/rowgen/fromrow"
)

// Role 手写的映射协议实现，与生成代码结构一致
type Role struct {
	ID   int64
	Name string
}

func (r *Role) TryFromRowPrefixed(row fromrow.Row, prefix string) error {
	var out Role
	var err error
	if out.ID, err = fromrow.Get[int64](row, prefix+"id"); err != nil {
		return err
	}
	if out.Name, err = fromrow.Get[string](row, prefix+"name"); err != nil {
		return err
	}
	*r = out
	return nil
}

func (r *Role) IsAllNull(row fromrow.Row, prefix string) (bool, error) {
	if null, err := row.IsNull(prefix + "id"); err != nil || !null {
		return false, err
	}
	if null, err := row.IsNull(prefix + "name"); err != nil || !null {
		return false, err
	}
	return true, nil
}

type Level int

func (l *Level) TryFrom(s string) error {
	switch s {
	case "low":
		*l = 1
	case "high":
		*l = 2
	default:
		return fmt.Errorf("unknown level %q", s)
	}
	return nil
}

type Count int

type Status string

func (s *Status) RowDefault() { *s = "active" }

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func init() {
	if err := fromrow.RegisterFunc("splitTags", splitTags); err != nil {
		panic(err)
	}
}
