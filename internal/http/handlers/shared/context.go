package shared

import (
	"github.com/gin-gonic/gin"
)

// 鉴权中间件写入的上下文键
const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
	UserRoleKey  = "user_role"
)

// CurrentUserID 读取当前登录用户 ID，失败时返回错误文案键
func CurrentUserID(c *gin.Context) (uint, string) {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return 0, "error.unauthorized"
	}
	uid, ok := value.(uint)
	if !ok || uid == 0 {
		return 0, "error.user_id_invalid"
	}
	return uid, ""
}
