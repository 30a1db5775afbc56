package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/reelcraft/reelcraft/internal/cartapi"
)

// APIError 统一包装接口返回的业务错误（status_code != 0）
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// Is 401 业务码视为未登录
func (e *APIError) Is(target error) bool {
	return target == ErrNoToken && e.Code == http.StatusUnauthorized
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// AuthUser 登录用户信息
type AuthUser struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// AuthResult 登录/注册结果
type AuthResult struct {
	User      AuthUser  `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OrderItem 订单项
type OrderItem struct {
	ProductID   uint          `json:"product_id"`
	Title       string        `json:"title"`
	ArtisanName string        `json:"artisan_name"`
	UnitPrice   cartapi.Price `json:"unit_price"`
	Quantity    int           `json:"quantity"`
	TotalPrice  cartapi.Price `json:"total_price"`
}

// Order 下单结果
type Order struct {
	OrderNo     string        `json:"order_no"`
	Status      string        `json:"status"`
	TotalAmount cartapi.Price `json:"total_amount"`
	Items       []OrderItem   `json:"items"`
}

// FeedPage 商品流一页
type FeedPage struct {
	Items      []cartapi.FeedItem
	Pagination Pagination
}

// APIClient 非购物车接口客户端（统一包装响应）
type APIClient struct {
	baseURL string
	doer    Doer
	tokens  TokenSource
}

// NewAPIClient 创建客户端，doer 通常与 CartClient 共用同一个 *RetryClient
func NewAPIClient(baseURL string, doer Doer, tokens TokenSource) (*APIClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api base url is empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if doer == nil {
		doer = http.DefaultClient
	}
	return &APIClient{baseURL: baseURL, doer: doer, tokens: tokens}, nil
}

// Register 注册
func (c *APIClient) Register(ctx context.Context, email, password, displayName string) (AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password, "display_name": displayName}
	_, err := c.call(ctx, http.MethodPost, "/api/v1/auth/register", body, false, &out)
	return out, err
}

// Login 登录
func (c *APIClient) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password}
	_, err := c.call(ctx, http.MethodPost, "/api/v1/auth/login", body, false, &out)
	return out, err
}

// Logout 吊销服务端 Token
func (c *APIClient) Logout(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPost, "/api/v1/auth/logout", nil, true, nil)
	return err
}

// Feed 商品视频流
func (c *APIClient) Feed(ctx context.Context, page, pageSize int, search string) (FeedPage, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		query.Set("page_size", strconv.Itoa(pageSize))
	}
	if s := strings.TrimSpace(search); s != "" {
		query.Set("search", s)
	}
	path := "/api/v1/products"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var items []cartapi.FeedItem
	pagination, err := c.call(ctx, http.MethodGet, path, nil, false, &items)
	result := FeedPage{Items: items}
	if pagination != nil {
		result.Pagination = *pagination
	}
	return result, err
}

// Product 商品详情
func (c *APIClient) Product(ctx context.Context, productID string) (cartapi.FeedItem, error) {
	var out cartapi.FeedItem
	_, err := c.call(ctx, http.MethodGet, "/api/v1/products/"+url.PathEscape(productID), nil, false, &out)
	return out, err
}

// Checkout 将服务端购物车下单
func (c *APIClient) Checkout(ctx context.Context) (Order, error) {
	var out Order
	_, err := c.call(ctx, http.MethodPost, "/api/v1/checkout", nil, true, &out)
	return out, err
}

func (c *APIClient) call(ctx context.Context, method, path string, payload any, auth bool, out any) (*Pagination, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request failed: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		if c.tokens == nil {
			return nil, ErrNoToken
		}
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if !IsSuccess(resp.StatusCode) {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}
	if env.StatusCode != 0 {
		return nil, &APIError{Code: env.StatusCode, Message: env.Msg}
	}
	if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode response data failed: %w", err)
		}
	}
	return env.Pagination, nil
}
