package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/reelcraft/reelcraft/internal/app"
	"github.com/reelcraft/reelcraft/internal/config"
	"github.com/reelcraft/reelcraft/internal/logger"
	"github.com/reelcraft/reelcraft/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

func main() {
	// 解析命令行参数
	var mode string
	var configPath string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.StringVar(&configPath, "config", "", "配置文件路径（默认按 ./config.yml、../config.yml、./etc 查找）")
	flag.Parse()

	printStartupBanner(mode)

	// 加载配置
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置加载失败: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if cfg.Server.Mode == "release" {
		if isWeakSecret(cfg.UserJWT.SecretKey) {
			stdLog.Fatalf("user_jwt secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
		}
	} else if isWeakSecret(cfg.UserJWT.SecretKey) {
		stdLog.Printf("警告: user_jwt secret 过弱或仍为默认值，建议在生产环境中更换")
	}

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, cfg.Server.Mode == logger.ModeDebug); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 初始化演示商品（仅在商品表为空时）
	demoEmail := os.Getenv("RC_DEMO_ARTISAN_EMAIL")
	demoPass := os.Getenv("RC_DEMO_ARTISAN_PASSWORD")
	if cfg.Server.Mode == "release" && demoPass == "" {
		stdLog.Printf("警告: 未设置 RC_DEMO_ARTISAN_PASSWORD，已跳过演示商品初始化")
	} else if err := models.InitDemoCatalog(demoEmail, demoPass); err != nil {
		stdLog.Printf("警告: 初始化演示商品失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner(mode string) {
	fmt.Println(ansiYellow + "╔════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiYellow + "║        🎬 ReelCraft Cart API 启动中         ║" + ansiReset)
	fmt.Println(ansiYellow + "╚════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiCyan + ansiBold + "mode: " + mode + ansiReset)
	fmt.Println(ansiDim + "----------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
