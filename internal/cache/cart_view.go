package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/reelcraft/reelcraft/internal/cartapi"
)

// DefaultCartViewTTL 购物车视图默认缓存时长
const DefaultCartViewTTL = time.Minute

func cartViewKey(userID uint) string {
	return fmt.Sprintf("cart:view:%d", userID)
}

// GetCartView 读取用户购物车视图缓存
func GetCartView(ctx context.Context, userID uint) (*cartapi.Cart, bool, error) {
	if userID == 0 {
		return nil, false, nil
	}
	var view cartapi.Cart
	hit, err := GetJSON(ctx, cartViewKey(userID), &view)
	if err != nil || !hit {
		return nil, hit, err
	}
	if view.Items == nil {
		view.Items = []cartapi.CartItem{}
	}
	return &view, true, nil
}

// SetCartView 写入用户购物车视图缓存
func SetCartView(ctx context.Context, userID uint, view *cartapi.Cart, ttl time.Duration) error {
	if userID == 0 || view == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultCartViewTTL
	}
	return SetJSON(ctx, cartViewKey(userID), view, ttl)
}

// InvalidateCartView 购物车变更后删除视图缓存
func InvalidateCartView(ctx context.Context, userID uint) error {
	if userID == 0 {
		return nil
	}
	return Del(ctx, cartViewKey(userID))
}
