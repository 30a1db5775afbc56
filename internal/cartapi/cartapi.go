// Package cartapi 定义购物车远程接口的线上数据格式（服务端与客户端共用）。
package cartapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// CartPath 购物车接口路径
	CartPath = "/api/v1/cart"
	// ItemIDQuery 删除接口的行 ID 查询参数
	ItemIDQuery = "itemId"
)

// Price 金额（JSON 中以数字输出，保留 2 位小数）
type Price struct {
	decimal.Decimal
}

// NewPrice 从 decimal 创建金额
func NewPrice(d decimal.Decimal) Price {
	return Price{Decimal: d.Round(2)}
}

// MustPrice 从字符串创建金额，格式错误时 panic（仅用于常量与测试）
func MustPrice(s string) Price {
	return NewPrice(decimal.RequireFromString(s))
}

// MarshalJSON 输出不带引号的数字
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.Decimal.Round(2).StringFixed(2)), nil
}

// UnmarshalJSON 兼容数字与字符串
func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		p.Decimal = decimal.Zero
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", string(b), err)
	}
	p.Decimal = d.Round(2)
	return nil
}

// ArtisanUser 手作人账号信息
type ArtisanUser struct {
	Name string `json:"name"`
}

// Artisan 商品所属手作人
type Artisan struct {
	User ArtisanUser `json:"user"`
}

// Product 购物车行内的商品快照
type Product struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    Price   `json:"price"`
	ImageURL string  `json:"imageUrl"`
	Artisan  Artisan `json:"artisan"`
}

// CartItem 购物车行
type CartItem struct {
	ID       string  `json:"id"`
	Quantity int     `json:"quantity"`
	Product  Product `json:"product"`
}

// Cart GET /cart 响应
type Cart struct {
	Items []CartItem `json:"items"`
	Total Price      `json:"total"`
}

// AddItemRequest POST /cart 请求，Quantity 为相对增量（可为负）
type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// DeleteResponse DELETE /cart 响应
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// ErrorResponse 购物车接口错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// FeedItem 视频流中的商品卡片
type FeedItem struct {
	Product
	Description string `json:"description"`
	VideoURL    string `json:"videoUrl"`
}
