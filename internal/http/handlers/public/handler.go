package public

import "github.com/reelcraft/reelcraft/internal/provider"

// Handler 前台/用户侧接口处理器入口
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
