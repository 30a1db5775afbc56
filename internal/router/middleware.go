package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/reelcraft/reelcraft/internal/cache"
	"github.com/reelcraft/reelcraft/internal/config"
	handlershared "github.com/reelcraft/reelcraft/internal/http/handlers/shared"
	"github.com/reelcraft/reelcraft/internal/http/response"
	"github.com/reelcraft/reelcraft/internal/repository"
	"github.com/reelcraft/reelcraft/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"

// AuthFailureResponder 鉴权失败时的响应方式
type AuthFailureResponder func(c *gin.Context, key string)

// EnvelopeAuthFailure 统一包装响应（HTTP 200 + status_code 401）
func EnvelopeAuthFailure(c *gin.Context, key string) {
	handlershared.RespondError(c, response.CodeUnauthorized, key, nil)
}

// StatusAuthFailure 真实 HTTP 401（购物车接口）
func StatusAuthFailure(c *gin.Context, key string) {
	handlershared.RespondStatusError(c, http.StatusUnauthorized, key, nil)
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			"X-CSRF-Token",
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// UserJWTAuthMiddleware 用户 JWT 鉴权中间件
func UserJWTAuthMiddleware(secretKey string, userRepo repository.UserRepository, fail AuthFailureResponder) gin.HandlerFunc {
	if fail == nil {
		fail = EnvelopeAuthFailure
	}
	return func(c *gin.Context) {
		if secretKey == "" {
			fail(c, "error.jwt_secret_missing")
			c.Abort()
			return
		}
		if userRepo == nil {
			fail(c, "error.token_invalid")
			c.Abort()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			fail(c, "error.auth_header_missing")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			fail(c, "error.auth_header_invalid")
			c.Abort()
			return
		}

		claims, err := service.ParseUserJWT(secretKey, parts[1])
		if err != nil {
			fail(c, "error.token_invalid")
			c.Abort()
			return
		}

		state, err := loadAuthState(c, userRepo, claims.UserID)
		if err != nil || state == nil {
			fail(c, "error.token_invalid")
			c.Abort()
			return
		}
		if !state.Active() {
			fail(c, "error.user_disabled")
			c.Abort()
			return
		}
		var issuedAt time.Time
		if claims.IssuedAt != nil {
			issuedAt = claims.IssuedAt.Time
		}
		if !state.Accepts(claims.TokenVersion, issuedAt) {
			fail(c, "error.token_revoked")
			c.Abort()
			return
		}

		c.Set(handlershared.UserIDKey, claims.UserID)
		c.Set(handlershared.UserEmailKey, claims.Email)
		c.Set(handlershared.UserRoleKey, state.Role)
		c.Next()
	}
}

// loadAuthState 先读 Redis，未命中时查库并回填
func loadAuthState(c *gin.Context, userRepo repository.UserRepository, userID uint) (*cache.UserAuthState, error) {
	ctx := c.Request.Context()
	if cached, hit, err := cache.GetUserAuthState(ctx, userID); err == nil && hit && cached != nil {
		return cached, nil
	}
	user, err := userRepo.GetByID(userID)
	if err != nil || user == nil {
		return nil, err
	}
	state := cache.AuthStateFromUser(user)
	_ = cache.SetUserAuthState(ctx, state)
	return state, nil
}
