package cartsync

import (
	"strings"

	"github.com/reelcraft/reelcraft/internal/cartapi"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProvisionalPrefix 本地临时行 ID 前缀，服务端 ID 不会使用
const ProvisionalPrefix = "tmp-"

// LineRef 购物车行标识：Provisional 或 Confirmed
type LineRef interface {
	// ID 返回界面上使用的行 ID
	ID() string
	isLineRef()
}

// Provisional 尚未被服务端确认的行
type Provisional struct {
	LocalID   string
	ProductID string
}

// ID 本地临时 ID
func (p Provisional) ID() string { return p.LocalID }

func (Provisional) isLineRef() {}

// Confirmed 服务端分配 ID 的行
type Confirmed struct {
	ServerID string
}

// ID 服务端 ID
func (c Confirmed) ID() string { return c.ServerID }

func (Confirmed) isLineRef() {}

// NewProvisional 为商品生成临时行标识
func NewProvisional(productID string) Provisional {
	return Provisional{LocalID: ProvisionalPrefix + uuid.NewString(), ProductID: productID}
}

// IsProvisionalID 判断 ID 是否为本地临时 ID
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}

// Product 行内商品快照
type Product struct {
	ID          string
	Title       string
	Price       decimal.Decimal
	ImageURL    string
	ArtisanName string
}

// ProductFromAPI 从接口格式转换
func ProductFromAPI(p cartapi.Product) Product {
	return Product{
		ID:          p.ID,
		Title:       p.Title,
		Price:       p.Price.Decimal,
		ImageURL:    p.ImageURL,
		ArtisanName: p.Artisan.User.Name,
	}
}

// API 转换为接口格式
func (p Product) API() cartapi.Product {
	return cartapi.Product{
		ID:       p.ID,
		Title:    p.Title,
		Price:    cartapi.NewPrice(p.Price),
		ImageURL: p.ImageURL,
		Artisan:  cartapi.Artisan{User: cartapi.ArtisanUser{Name: p.ArtisanName}},
	}
}

// Line 购物车行
type Line struct {
	Ref      LineRef
	Quantity int
	Product  Product
}

// ID 行 ID
func (l Line) ID() string {
	if l.Ref == nil {
		return ""
	}
	return l.Ref.ID()
}

// ProductID 行所属商品
func (l Line) ProductID() string {
	if p, ok := l.Ref.(Provisional); ok && p.ProductID != "" {
		return p.ProductID
	}
	return l.Product.ID
}

// IsProvisional 是否为未确认行
func (l Line) IsProvisional() bool {
	_, ok := l.Ref.(Provisional)
	return ok
}

// Subtotal 行小计
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
