package response

import (
	"fmt"
	"strings"
)

// messages 错误文案表，key 与业务错误映射规则保持一致
var messages = map[string]string{
	"error.bad_request":              "Bad request",
	"error.unauthorized":             "Unauthorized",
	"error.not_found":                "Not found",
	"error.internal":                 "Internal server error",
	"error.user_id_invalid":          "Invalid user id",
	"error.jwt_secret_missing":       "JWT secret is not configured",
	"error.auth_header_missing":      "Authorization header is missing",
	"error.auth_header_invalid":      "Authorization header is invalid",
	"error.token_invalid":            "Token is invalid",
	"error.token_revoked":            "Token has been revoked",
	"error.user_disabled":            "Account is disabled",
	"error.user_not_found":           "User not found",
	"error.rate_limit_unavailable":   "Rate limiter is unavailable",
	"error.rate_limited":             "Too many requests, retry in %d seconds",
	"error.login_too_many":           "Too many login attempts, retry in %d seconds",
	"error.email_invalid":            "Email is invalid",
	"error.email_exists":             "Email is already registered",
	"error.invalid_credentials":      "Email or password is incorrect",
	"error.password_weak":            "Password is too weak",
	"error.password_min_length":      "Password must be at least %d characters",
	"error.password_require_upper":   "Password must contain an uppercase letter",
	"error.password_require_lower":   "Password must contain a lowercase letter",
	"error.password_require_number":  "Password must contain a number",
	"error.password_require_special": "Password must contain a special character",
	"error.register_failed":          "Registration failed",
	"error.login_failed":             "Login failed",
	"error.logout_failed":            "Logout failed",
	"error.product_not_found":        "Product not found",
	"error.product_not_available":    "Product is not available",
	"error.product_fetch_failed":     "Failed to load products",
	"error.quantity_invalid":         "Quantity must not be zero",
	"error.quantity_limit":           "Quantity exceeds the per-item limit",
	"error.cart_item_invalid":        "Cart item is invalid",
	"error.cart_fetch_failed":        "Failed to load cart",
	"error.cart_update_failed":       "Failed to update cart",
	"error.cart_remove_failed":       "Failed to remove cart item",
	"error.cart_empty":               "Cart is empty",
	"error.order_create_failed":      "Failed to place order",
	"error.order_not_found":          "Order not found",
	"error.order_fetch_failed":       "Failed to load order",
}

// Message 按 key 取文案，未登记的 key 原样返回
func Message(key string, args ...interface{}) string {
	key = strings.TrimSpace(key)
	text, ok := messages[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}
