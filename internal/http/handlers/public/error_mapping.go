package public

import (
	"errors"
	"net/http"

	handlershared "github.com/reelcraft/reelcraft/internal/http/handlers/shared"
	"github.com/reelcraft/reelcraft/internal/http/response"
	"github.com/reelcraft/reelcraft/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func matchMappedError(err error, rules []mappedHandlerError) (mappedHandlerError, bool) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			return rule, true
		}
	}
	return mappedHandlerError{}, false
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	if rule, ok := matchMappedError(err, rules); ok {
		respondError(c, rule.code, rule.key, nil)
		return
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

// respondWithMappedStatusError 同上，但 code 作为真实 HTTP 状态码输出
func respondWithMappedStatusError(c *gin.Context, err error, rules []mappedHandlerError, fallbackKey string) {
	if rule, ok := matchMappedError(err, rules); ok {
		respondStatusError(c, rule.code, rule.key, nil)
		return
	}
	respondStatusError(c, http.StatusInternalServerError, fallbackKey, err)
}

var cartErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidQuantity, code: http.StatusBadRequest, key: "error.quantity_invalid"},
	{target: service.ErrInvalidCartItem, code: http.StatusBadRequest, key: "error.cart_item_invalid"},
	{target: service.ErrProductNotFound, code: http.StatusNotFound, key: "error.product_not_found"},
	{target: service.ErrProductNotAvailable, code: http.StatusConflict, key: "error.product_not_available"},
	{target: service.ErrQuantityLimit, code: http.StatusConflict, key: "error.quantity_limit"},
}

var userAuthErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidEmail, code: response.CodeBadRequest, key: "error.email_invalid"},
	{target: service.ErrEmailExists, code: response.CodeConflict, key: "error.email_exists"},
	{target: service.ErrInvalidCredentials, code: response.CodeUnauthorized, key: "error.invalid_credentials"},
	{target: service.ErrUserDisabled, code: response.CodeUnauthorized, key: "error.user_disabled"},
	{target: service.ErrWeakPassword, code: response.CodeBadRequest, key: "error.password_weak"},
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
}

var productErrorRules = []mappedHandlerError{
	{target: service.ErrProductNotFound, code: response.CodeNotFound, key: "error.product_not_found"},
}

var checkoutErrorRules = []mappedHandlerError{
	{target: service.ErrCartEmpty, code: response.CodeBadRequest, key: "error.cart_empty"},
	{target: service.ErrInvalidCartItem, code: response.CodeBadRequest, key: "error.cart_item_invalid"},
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
}

func respondCartError(c *gin.Context, err error, fallbackKey string) {
	respondWithMappedStatusError(c, err, cartErrorRules, fallbackKey)
}

func respondUserAuthError(c *gin.Context, err error, fallbackKey string) {
	var perr *service.PasswordPolicyError
	if errors.As(err, &perr) {
		handlershared.Respond(c, response.EnvelopeError(response.CodeBadRequest, perr.Key, nil).
			WithMessage(response.Message(perr.Key, perr.Args...)))
		return
	}
	respondWithMappedError(c, err, userAuthErrorRules, response.CodeInternal, fallbackKey)
}
