package public

import (
	"github.com/reelcraft/reelcraft/internal/http/response"

	"github.com/gin-gonic/gin"
)

// Checkout 将购物车下单
func (h *Handler) Checkout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	order, err := h.CheckoutService.PlaceOrder(c.Request.Context(), uid)
	if err != nil {
		respondWithMappedError(c, err, checkoutErrorRules, response.CodeInternal, "error.order_create_failed")
		return
	}
	response.Success(c, order)
}

// GetOrderByOrderNo 获取当前用户订单
func (h *Handler) GetOrderByOrderNo(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	order, err := h.CheckoutService.GetOrder(uid, c.Param("order_no"))
	if err != nil {
		respondWithMappedError(c, err, checkoutErrorRules, response.CodeInternal, "error.order_fetch_failed")
		return
	}
	response.Success(c, order)
}
