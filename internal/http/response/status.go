package response

import (
	"github.com/reelcraft/reelcraft/internal/cartapi"

	"github.com/gin-gonic/gin"
)

// JSON 以真实 HTTP 状态码输出原始结构（购物车接口不使用统一包装）
func JSON(c *gin.Context, httpStatus int, data interface{}) {
	c.JSON(httpStatus, data)
}

// StatusError 以真实 HTTP 状态码输出 {"error": msg}
func StatusError(c *gin.Context, httpStatus int, msg string) {
	if requestID := requestIDFrom(c); requestID != "" {
		c.Header("X-Request-ID", requestID)
	}
	c.JSON(httpStatus, cartapi.ErrorResponse{Error: msg})
}
