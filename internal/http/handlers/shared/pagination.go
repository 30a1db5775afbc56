package shared

import (
	"github.com/reelcraft/reelcraft/internal/constants"
	"github.com/reelcraft/reelcraft/internal/http/response"
)

// NormalizePagination 归一化分页参数。
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}
	return page, pageSize
}

// BuildPagination 构建分页信息。
func BuildPagination(page, pageSize int, total int64) response.Pagination {
	page, pageSize = NormalizePagination(page, pageSize)
	return response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
}
