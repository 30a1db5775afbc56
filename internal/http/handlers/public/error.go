package public

import (
	handlershared "github.com/reelcraft/reelcraft/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondStatusError(c *gin.Context, httpStatus int, key string, err error) {
	handlershared.RespondStatusError(c, httpStatus, key, err)
}
