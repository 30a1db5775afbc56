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
	"strings"

	"github.com/reelcraft/reelcraft/internal/cartapi"
)

// ErrNoToken 本地没有可用的登录凭证
var ErrNoToken = errors.New("no session token")

// TokenSource 提供 Bearer token
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken 固定 token
type StaticToken string

// Token 返回固定 token
func (t StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(t)) == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// CartClient 远程购物车接口客户端
type CartClient struct {
	baseURL string
	doer    Doer
	tokens  TokenSource
}

// NewCartClient 创建购物车客户端，doer 通常是 *RetryClient
func NewCartClient(baseURL string, doer Doer, tokens TokenSource) (*CartClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("cart api base url is empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid cart api base url: %w", err)
	}
	if doer == nil {
		doer = http.DefaultClient
	}
	return &CartClient{baseURL: baseURL, doer: doer, tokens: tokens}, nil
}

// GetCart 获取服务端购物车
func (c *CartClient) GetCart(ctx context.Context) (cartapi.Cart, error) {
	var cart cartapi.Cart
	err := c.do(ctx, http.MethodGet, c.baseURL+cartapi.CartPath, nil, &cart)
	if cart.Items == nil {
		cart.Items = []cartapi.CartItem{}
	}
	return cart, err
}

// AddItem 按增量调整商品数量，返回受影响的购物车行
func (c *CartClient) AddItem(ctx context.Context, productID string, quantity int) (cartapi.CartItem, error) {
	var item cartapi.CartItem
	body := cartapi.AddItemRequest{ProductID: productID, Quantity: quantity}
	err := c.do(ctx, http.MethodPost, c.baseURL+cartapi.CartPath, body, &item)
	return item, err
}

// RemoveItem 按行 ID 删除；行不存在时返回 deleted=false
func (c *CartClient) RemoveItem(ctx context.Context, lineID string) (bool, error) {
	var resp cartapi.DeleteResponse
	query := url.Values{cartapi.ItemIDQuery: []string{lineID}}
	err := c.do(ctx, http.MethodDelete, c.baseURL+cartapi.CartPath+"?"+query.Encode(), nil, &resp)
	return resp.Deleted, err
}

func (c *CartClient) do(ctx context.Context, method, target string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode cart request failed: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build cart request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !IsSuccess(resp.StatusCode) {
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode cart response failed: %w", err)
	}
	return nil
}

func errorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 512))
	var payload cartapi.ErrorResponse
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}
