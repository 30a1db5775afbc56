package service

import "errors"

// 通用错误
var (
	ErrNotFound = errors.New("resource not found")
)

// 认证相关错误
var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserDisabled       = errors.New("user disabled")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrInvalidToken       = errors.New("invalid token")
)

// 商品与购物车相关错误
var (
	ErrProductNotFound     = errors.New("product not found")
	ErrProductNotAvailable = errors.New("product not available")
	ErrInvalidQuantity     = errors.New("quantity must not be zero")
	ErrQuantityLimit       = errors.New("quantity exceeds limit")
	ErrInvalidCartItem     = errors.New("invalid cart item")
)

// 订单相关错误
var (
	ErrCartEmpty         = errors.New("cart is empty")
	ErrOrderCreateFailed = errors.New("order create failed")
	ErrOrderNotFound     = errors.New("order not found")
)
