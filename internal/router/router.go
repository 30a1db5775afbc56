package router

import (
	"fmt"
	"strings"

	"github.com/reelcraft/reelcraft/internal/cache"
	"github.com/reelcraft/reelcraft/internal/cartapi"
	"github.com/reelcraft/reelcraft/internal/config"
	publichandlers "github.com/reelcraft/reelcraft/internal/http/handlers/public"
	"github.com/reelcraft/reelcraft/internal/logger"
	"github.com/reelcraft/reelcraft/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "rc"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		MessageKey:    "error.login_too_many",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		apiV1.GET("/products", publicHandler.GetProducts)
		apiV1.GET("/products/:id", publicHandler.GetProduct)

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.RegisterUser)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.LoginUser)
		}

		// 用户接口（需鉴权，统一包装响应）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo, EnvelopeAuthFailure))
		{
			user.POST("/auth/logout", publicHandler.LogoutUser)
			user.GET("/me", publicHandler.GetCurrentUser)
			user.POST("/checkout", publicHandler.Checkout)
			user.GET("/orders/:order_no", publicHandler.GetOrderByOrderNo)
		}

		// 购物车接口（需鉴权，真实 HTTP 状态码）
		cart := apiV1.Group(strings.TrimPrefix(cartapi.CartPath, "/api/v1"))
		cart.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo, StatusAuthFailure))
		{
			cart.GET("", publicHandler.GetCart)
			cart.POST("", publicHandler.AddCartItem)
			cart.DELETE("", publicHandler.RemoveCartItem)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
