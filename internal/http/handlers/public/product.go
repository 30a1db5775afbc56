package public

import (
	"strconv"
	"strings"

	handlershared "github.com/reelcraft/reelcraft/internal/http/handlers/shared"
	"github.com/reelcraft/reelcraft/internal/http/response"
	"github.com/reelcraft/reelcraft/internal/service"

	"github.com/gin-gonic/gin"
)

// GetProducts 商品视频流（分页）
func (h *Handler) GetProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	items, total, err := h.ProductService.Feed(service.FeedInput{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, items, handlershared.BuildPagination(page, pageSize, total))
}

// GetProduct 商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	item, err := h.ProductService.Get(c.Param("id"))
	if err != nil {
		respondWithMappedError(c, err, productErrorRules, response.CodeInternal, "error.product_fetch_failed")
		return
	}
	response.Success(c, item)
}
