package repository

import (
	"github.com/reelcraft/reelcraft/internal/constants"

	"gorm.io/gorm"
)

// paginate 列表分页 scope，pageSize<=0 时不分页，超出上限按上限截断
func paginate(page, pageSize int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if pageSize <= 0 {
			return db
		}
		if pageSize > constants.MaxPageSize {
			pageSize = constants.MaxPageSize
		}
		if page < 1 {
			page = 1
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}
