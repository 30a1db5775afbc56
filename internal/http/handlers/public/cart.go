package public

import (
	"net/http"
	"strings"

	"github.com/reelcraft/reelcraft/internal/cartapi"

	"github.com/gin-gonic/gin"
)

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := getCartUserID(c)
	if !ok {
		return
	}
	cart, err := h.CartService.View(c.Request.Context(), uid)
	if err != nil {
		respondCartError(c, err, "error.cart_fetch_failed")
		return
	}
	c.JSON(http.StatusOK, cart)
}

// AddCartItem 按相对增量调整购物车行，结果 ≤ 0 时删除该行
func (h *Handler) AddCartItem(c *gin.Context) {
	uid, ok := getCartUserID(c)
	if !ok {
		return
	}
	var req cartapi.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondStatusError(c, http.StatusBadRequest, "error.bad_request", nil)
		return
	}
	item, err := h.CartService.ApplyDelta(c.Request.Context(), uid, req.ProductID, req.Quantity)
	if err != nil {
		respondCartError(c, err, "error.cart_update_failed")
		return
	}
	requestLog(c).Debugw("cart_delta_applied",
		"user_id", uid,
		"product_id", req.ProductID,
		"delta", req.Quantity,
		"quantity", item.Quantity,
	)
	c.JSON(http.StatusOK, item)
}

// RemoveCartItem 删除购物车行（幂等）
func (h *Handler) RemoveCartItem(c *gin.Context) {
	uid, ok := getCartUserID(c)
	if !ok {
		return
	}
	itemID := strings.TrimSpace(c.Query(cartapi.ItemIDQuery))
	if itemID == "" {
		respondStatusError(c, http.StatusBadRequest, "error.cart_item_invalid", nil)
		return
	}
	deleted, err := h.CartService.RemoveLine(c.Request.Context(), uid, itemID)
	if err != nil {
		respondCartError(c, err, "error.cart_remove_failed")
		return
	}
	c.JSON(http.StatusOK, cartapi.DeleteResponse{Deleted: deleted})
}
