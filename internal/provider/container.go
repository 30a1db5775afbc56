package provider

import (
	"github.com/reelcraft/reelcraft/internal/cache"
	"github.com/reelcraft/reelcraft/internal/config"
	"github.com/reelcraft/reelcraft/internal/logger"
	"github.com/reelcraft/reelcraft/internal/models"
	"github.com/reelcraft/reelcraft/internal/queue"
	"github.com/reelcraft/reelcraft/internal/repository"
	"github.com/reelcraft/reelcraft/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo    repository.UserRepository
	ArtisanRepo repository.ArtisanRepository
	ProductRepo repository.ProductRepository
	CartRepo    repository.CartRepository
	OrderRepo   repository.OrderRepository

	// Services
	UserAuthService *service.UserAuthService
	ProductService  *service.ProductService
	CartService     *service.CartService
	CheckoutService *service.CheckoutService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	return NewContainerWithDB(cfg, models.DB, queueClient)
}

// NewContainerWithDB 使用指定数据库与队列客户端组装容器（测试使用）
func NewContainerWithDB(cfg *config.Config, db *gorm.DB, queueClient *queue.Client) *Container {
	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories(db)

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.UserRepo = repository.NewUserRepository(db)
	c.ArtisanRepo = repository.NewArtisanRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
}

func (c *Container) initServices() {
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.ProductService = service.NewProductService(c.ProductRepo)
	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo, c.Config.Cart)
	c.CheckoutService = service.NewCheckoutService(c.CartRepo, c.OrderRepo, c.QueueClient)
}
