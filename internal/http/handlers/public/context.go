package public

import (
	"net/http"

	handlershared "github.com/reelcraft/reelcraft/internal/http/handlers/shared"
	"github.com/reelcraft/reelcraft/internal/http/response"

	"github.com/gin-gonic/gin"
)

func getUserID(c *gin.Context) (uint, bool) {
	uid, failKey := handlershared.CurrentUserID(c)
	if failKey != "" {
		respondError(c, response.CodeUnauthorized, failKey, nil)
		return 0, false
	}
	return uid, true
}

// getCartUserID 购物车接口读取用户 ID，失败时返回真实 401
func getCartUserID(c *gin.Context) (uint, bool) {
	uid, failKey := handlershared.CurrentUserID(c)
	if failKey != "" {
		respondStatusError(c, http.StatusUnauthorized, failKey, nil)
		return 0, false
	}
	return uid, true
}
