package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reelcraft/reelcraft/internal/constants"
	"github.com/reelcraft/reelcraft/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// UserAuthState 鉴权中间件缓存的账号状态，购物车请求命中时不查库
type UserAuthState struct {
	UserID       uint   `json:"user_id"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	TokenVersion uint64 `json:"token_version"`
	// TokenInvalidBefore Unix 秒，0 表示未设置
	TokenInvalidBefore int64 `json:"token_invalid_before"`
	CachedAt           int64 `json:"cached_at"`
}

func userAuthStateKey(userID uint) string {
	return fmt.Sprintf("auth:user:%d", userID)
}

// AuthStateFromUser 从账号构建鉴权状态
func AuthStateFromUser(user *models.User) *UserAuthState {
	if user == nil {
		return nil
	}
	role := user.Role
	if role == "" {
		role = constants.UserRoleBuyer
	}
	state := &UserAuthState{
		UserID:       user.ID,
		Role:         role,
		Status:       user.Status,
		TokenVersion: user.TokenVersion,
		CachedAt:     time.Now().Unix(),
	}
	if user.TokenInvalidBefore != nil {
		state.TokenInvalidBefore = user.TokenInvalidBefore.Unix()
	}
	return state
}

// Active 账号是否可用
func (s UserAuthState) Active() bool {
	return strings.EqualFold(strings.TrimSpace(s.Status), constants.UserStatusActive)
}

// Accepts 判断 Token 是否未被登出吊销：版本一致且签发不早于失效时间点
func (s UserAuthState) Accepts(tokenVersion uint64, issuedAt time.Time) bool {
	if tokenVersion != s.TokenVersion {
		return false
	}
	if s.TokenInvalidBefore <= 0 {
		return true
	}
	return !issuedAt.IsZero() && issuedAt.Unix() >= s.TokenInvalidBefore
}

// GetUserAuthState 获取鉴权状态
func GetUserAuthState(ctx context.Context, userID uint) (*UserAuthState, bool, error) {
	if userID == 0 {
		return nil, false, nil
	}
	var state UserAuthState
	hit, err := GetJSON(ctx, userAuthStateKey(userID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetUserAuthState 写入鉴权状态
func SetUserAuthState(ctx context.Context, state *UserAuthState) error {
	if state == nil || state.UserID == 0 {
		return nil
	}
	return SetJSON(ctx, userAuthStateKey(state.UserID), state, authStateCacheTTL)
}

// DelUserAuthState 删除鉴权状态
func DelUserAuthState(ctx context.Context, userID uint) error {
	if userID == 0 {
		return nil
	}
	return Del(ctx, userAuthStateKey(userID))
}
