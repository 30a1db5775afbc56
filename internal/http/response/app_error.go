package response

import (
	"github.com/gin-gonic/gin"
)

// AppError 处理器返回给客户端的错误
// Status 非 0 时按真实 HTTP 状态码输出（购物车接口），否则走统一包装
type AppError struct {
	Status  int
	Code    int
	Key     string
	Message string
	Err     error
}

// EnvelopeError 统一包装错误，HTTP 200 + 业务码
func EnvelopeError(code int, key string, err error) *AppError {
	return &AppError{Code: code, Key: key, Message: Message(key), Err: err}
}

// HTTPError 真实状态码错误
func HTTPError(status int, key string, err error) *AppError {
	return &AppError{Status: status, Code: status, Key: key, Message: Message(key), Err: err}
}

// WithMessage 覆盖文案（密码策略等带参数的提示）
func (e *AppError) WithMessage(msg string) *AppError {
	if msg != "" {
		e.Message = msg
	}
	return e
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Respond 写出响应
func (e *AppError) Respond(c *gin.Context) {
	if e.Status != 0 {
		StatusError(c, e.Status, e.Message)
		return
	}
	Error(c, e.Code, e.Message)
}
