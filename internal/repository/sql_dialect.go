package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// caseInsensitiveLikeCondition 构建忽略大小写的 LIKE 条件，兼容 sqlite 与 postgres。
func caseInsensitiveLikeCondition(db *gorm.DB, columns []string) (string, int) {
	return caseInsensitiveLikeConditionByDialect(dbDialectName(db), columns)
}

func caseInsensitiveLikeConditionByDialect(dialect string, columns []string) (string, int) {
	if len(columns) == 0 {
		return "1 = 0", 0
	}
	op := "LIKE"
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		op = "ILIKE"
	}
	parts := make([]string, 0, len(columns))
	for _, column := range columns {
		if op == "LIKE" {
			// sqlite 的 LIKE 仅对 ASCII 忽略大小写，统一转小写
			parts = append(parts, fmt.Sprintf("LOWER(%s) LIKE LOWER(?)", column))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s ILIKE ?", column))
	}
	return "(" + strings.Join(parts, " OR ") + ")", len(parts)
}

// repeatLikeArgs 生成重复的 LIKE 参数。
func repeatLikeArgs(value string, count int) []interface{} {
	args := make([]interface{}, 0, count)
	for i := 0; i < count; i++ {
		args = append(args, value)
	}
	return args
}
