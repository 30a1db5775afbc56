package repository

import (
	"errors"
	"strings"

	"github.com/reelcraft/reelcraft/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	List(filter ProductListFilter) ([]models.Product, int64, error)
	GetByID(id uint, onlyActive bool) (*models.Product, error)
	ListByIDs(ids []uint) ([]models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	WithTx(tx *gorm.DB) ProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// List 商品列表（视频流按排序权重倒序）
func (r *GormProductRepository) List(filter ProductListFilter) ([]models.Product, int64, error) {
	var products []models.Product

	query := r.db.Model(&models.Product{})
	if filter.WithArtisan {
		query = query.Preload("Artisan").Preload("Artisan.User")
	}
	if filter.OnlyActive {
		query = query.Where("is_active = ?", true)
	}
	if filter.ArtisanID != 0 {
		query = query.Where("artisan_id = ?", filter.ArtisanID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := caseInsensitiveLikeCondition(r.db, []string{"title", "description"})
		query = query.Where(condition, repeatLikeArgs("%"+search+"%", argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	if err := query.Order("sort_order DESC, created_at DESC, id DESC").Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// GetByID 根据 ID 获取商品（含手作人），不存在返回 nil
func (r *GormProductRepository) GetByID(id uint, onlyActive bool) (*models.Product, error) {
	var product models.Product
	query := r.db.Preload("Artisan").Preload("Artisan.User")
	if onlyActive {
		query = query.Where("is_active = ?", true)
	}
	if err := query.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListByIDs 批量获取商品
func (r *GormProductRepository) ListByIDs(ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	if err := r.db.Preload("Artisan").Preload("Artisan.User").Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// Update 更新商品
func (r *GormProductRepository) Update(product *models.Product) error {
	return r.db.Save(product).Error
}
