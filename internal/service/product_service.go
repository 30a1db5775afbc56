package service

import (
	"strings"

	"github.com/reelcraft/reelcraft/internal/cartapi"
	"github.com/reelcraft/reelcraft/internal/constants"
	"github.com/reelcraft/reelcraft/internal/models"
	"github.com/reelcraft/reelcraft/internal/repository"
)

// ProductService 商品业务服务
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// FeedInput 视频流查询参数
type FeedInput struct {
	Page     int
	PageSize int
	Search   string
}

// Feed 分页获取上架商品视频流
func (s *ProductService) Feed(input FeedInput) ([]cartapi.FeedItem, int64, error) {
	page, pageSize := normalizePage(input.Page, input.PageSize)
	products, total, err := s.repo.List(repository.ProductListFilter{
		Page:        page,
		PageSize:    pageSize,
		Search:      strings.TrimSpace(input.Search),
		OnlyActive:  true,
		WithArtisan: true,
	})
	if err != nil {
		return nil, 0, err
	}
	items := make([]cartapi.FeedItem, 0, len(products))
	for i := range products {
		items = append(items, toFeedItem(&products[i]))
	}
	return items, total, nil
}

// Get 获取上架商品详情
func (s *ProductService) Get(rawID string) (*cartapi.FeedItem, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, ErrProductNotFound
	}
	product, err := s.repo.GetByID(id, true)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	item := toFeedItem(product)
	return &item, nil
}

func toFeedItem(product *models.Product) cartapi.FeedItem {
	return cartapi.FeedItem{
		Product:     toCartProduct(product),
		Description: product.Description,
		VideoURL:    product.VideoURL,
	}
}

// normalizePage 规范化分页参数
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}
	return page, pageSize
}
