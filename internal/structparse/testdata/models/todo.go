package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	pg "github.com/jackc/pgx/v5/pgtype"
	"gopkg.in/yaml.v3"
)

type Audit struct {
	CreatedAt time.Time
}

// Todo 用于测试字段解析
type Todo struct {
	Audit
	*Owner
	ID, Rev  int64 `fromrow:"rename=todo_id"`
	Text     sql.NullString
	Labels   map[uuid.UUID]pg.Text
	Doc      yaml.Node `fromrow:"skip" json:"-"`
	internal string
}

type Owner struct {
	Name string
}
