package shared

import (
	"github.com/reelcraft/reelcraft/internal/http/response"
	"github.com/reelcraft/reelcraft/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回统一包装的错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	Respond(c, response.EnvelopeError(code, key, err))
}

// RespondStatusError 以真实 HTTP 状态码返回错误（购物车接口）。
func RespondStatusError(c *gin.Context, httpStatus int, key string, err error) {
	Respond(c, response.HTTPError(httpStatus, key, err))
}

// Respond 记录原始错误后写出响应
func Respond(c *gin.Context, appErr *response.AppError) {
	if appErr.Err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"key", appErr.Key,
			"message", appErr.Message,
			"error", appErr.Err,
		)
	}
	appErr.Respond(c)
}
