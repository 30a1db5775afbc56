package cartsync

import (
	"context"
	"errors"
	"sync"

	"github.com/reelcraft/reelcraft/internal/cartapi"

	"go.uber.org/zap"
)

var (
	// ErrUnauthenticated 当前没有登录会话
	ErrUnauthenticated = errors.New("no active session")
	// ErrLineNotFound 购物车中没有对应的行
	ErrLineNotFound = errors.New("cart line not found")
	// ErrClosed 引擎已关闭
	ErrClosed = errors.New("cart engine closed")
)

// CartAPI 远程购物车服务
type CartAPI interface {
	GetCart(ctx context.Context) (cartapi.Cart, error)
	AddItem(ctx context.Context, productID string, quantity int) (cartapi.CartItem, error)
	RemoveItem(ctx context.Context, lineID string) (bool, error)
}

// Session 登录态
type Session interface {
	Active() bool
}

// SessionFunc 函数适配 Session
type SessionFunc func() bool

// Active 调用自身
func (f SessionFunc) Active() bool { return f() }

// Navigator 未登录时跳转
type Navigator interface {
	RedirectToSignIn()
}

// NavigatorFunc 函数适配 Navigator
type NavigatorFunc func()

// RedirectToSignIn 调用自身
func (f NavigatorFunc) RedirectToSignIn() { f() }

// Notifier 用户可见的提示
type Notifier interface {
	Success(message string)
	Failure(message string, err error)
}

// ProductLookup 同步获取商品详情（用于乐观插入）
type ProductLookup interface {
	Lookup(productID string) (Product, bool)
}

// LogNotifier 输出到日志的提示
type LogNotifier struct {
	Log *zap.SugaredLogger
}

// Success 成功提示
func (n LogNotifier) Success(message string) {
	if n.Log != nil {
		n.Log.Infow("cart_notify_success", "message", message)
	}
}

// Failure 失败提示
func (n LogNotifier) Failure(message string, err error) {
	if n.Log != nil {
		n.Log.Warnw("cart_notify_failure", "message", message, "error", err)
	}
}

// Catalog 内存商品目录，由商品流填充
type Catalog struct {
	mu       sync.RWMutex
	products map[string]Product
}

// NewCatalog 创建商品目录
func NewCatalog() *Catalog {
	return &Catalog{products: make(map[string]Product)}
}

// Put 写入商品
func (c *Catalog) Put(products ...cartapi.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		c.products[p.ID] = ProductFromAPI(p)
	}
}

// Lookup 查找商品
func (c *Catalog) Lookup(productID string) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[productID]
	return p, ok
}

// Len 商品数量
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

type noopNavigator struct{}

func (noopNavigator) RedirectToSignIn() {}

type emptyLookup struct{}

func (emptyLookup) Lookup(string) (Product, bool) { return Product{}, false }
