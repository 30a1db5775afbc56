package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/reelcraft/reelcraft/internal/cache"
	"github.com/reelcraft/reelcraft/internal/cartapi"
	"github.com/reelcraft/reelcraft/internal/config"
	"github.com/reelcraft/reelcraft/internal/logger"
	"github.com/reelcraft/reelcraft/internal/models"
	"github.com/reelcraft/reelcraft/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultMaxCartQuantity = 99

// CartService 购物车服务
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	cfg         config.CartConfig
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, cfg config.CartConfig) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		cfg:         cfg,
	}
}

// View 获取用户购物车视图（优先读缓存）
func (s *CartService) View(ctx context.Context, userID uint) (*cartapi.Cart, error) {
	if userID == 0 {
		return nil, ErrInvalidCartItem
	}
	if cached, hit, err := cache.GetCartView(ctx, userID); err != nil {
		logger.Warnw("cart_view_cache_read_failed", "user_id", userID, "error", err)
	} else if hit {
		return cached, nil
	}

	items, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	view := &cartapi.Cart{Items: make([]cartapi.CartItem, 0, len(items))}
	total := decimal.Zero
	for _, item := range items {
		product := item.Product
		if product == nil || product.ID == 0 || !product.IsActive {
			// 下架商品不再展示
			if _, err := s.cartRepo.DeleteByIDAndUser(item.ID, userID); err != nil {
				logger.Warnw("cart_inactive_item_cleanup_failed", "user_id", userID, "item_id", item.ID, "error", err)
			}
			continue
		}
		line := toCartItem(item.ID, item.Quantity, product)
		total = total.Add(line.Product.Price.Decimal.Mul(decimal.NewFromInt(int64(line.Quantity))))
		view.Items = append(view.Items, line)
	}
	view.Total = cartapi.NewPrice(total)

	if err := cache.SetCartView(ctx, userID, view, s.cfg.ViewCacheTTL()); err != nil {
		logger.Warnw("cart_view_cache_write_failed", "user_id", userID, "error", err)
	}
	return view, nil
}

// ApplyDelta 按增量调整商品数量；结果 ≤ 0 时删除该行并返回数量 0
func (s *CartService) ApplyDelta(ctx context.Context, userID uint, rawProductID string, delta int) (*cartapi.CartItem, error) {
	if userID == 0 {
		return nil, ErrInvalidCartItem
	}
	if delta == 0 {
		return nil, ErrInvalidQuantity
	}
	productID, err := parseID(rawProductID)
	if err != nil {
		return nil, ErrProductNotFound
	}

	var result cartapi.CartItem
	err = s.cartRepo.Transaction(func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		product, err := s.productRepo.WithTx(tx).GetByID(productID, false)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrProductNotFound
		}

		existing, err := cartRepo.GetByUserAndProduct(userID, productID)
		if err != nil {
			return err
		}
		current := 0
		if existing != nil {
			current = existing.Quantity
		}
		next := current + delta
		if delta > 0 && !product.IsActive {
			return ErrProductNotAvailable
		}
		if next > s.maxQuantity() {
			return ErrQuantityLimit
		}

		switch {
		case next <= 0 && existing == nil:
			result = toCartItem(0, 0, product)
		case next <= 0:
			if _, err := cartRepo.DeleteByIDAndUser(existing.ID, userID); err != nil {
				return err
			}
			result = toCartItem(existing.ID, 0, product)
		case existing == nil:
			item := &models.CartItem{UserID: userID, ProductID: productID, Quantity: next}
			if err := cartRepo.Create(item); err != nil {
				return err
			}
			result = toCartItem(item.ID, next, product)
		default:
			if err := cartRepo.UpdateQuantity(existing.ID, next); err != nil {
				return err
			}
			result = toCartItem(existing.ID, next, product)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return &result, nil
}

// RemoveLine 删除购物车行；行不存在时返回 false，不视为错误
func (s *CartService) RemoveLine(ctx context.Context, userID uint, rawLineID string) (bool, error) {
	if userID == 0 {
		return false, ErrInvalidCartItem
	}
	lineID, err := parseID(rawLineID)
	if err != nil {
		return false, nil
	}
	affected, err := s.cartRepo.DeleteByIDAndUser(lineID, userID)
	if err != nil {
		return false, err
	}
	s.invalidate(ctx, userID)
	return affected > 0, nil
}

func (s *CartService) invalidate(ctx context.Context, userID uint) {
	if err := cache.InvalidateCartView(ctx, userID); err != nil {
		logger.Warnw("cart_view_cache_invalidate_failed", "user_id", userID, "error", err)
	}
}

func (s *CartService) maxQuantity() int {
	if s.cfg.MaxQuantity > 0 {
		return s.cfg.MaxQuantity
	}
	return defaultMaxCartQuantity
}

func toCartItem(id uint, quantity int, product *models.Product) cartapi.CartItem {
	item := cartapi.CartItem{Quantity: quantity, Product: toCartProduct(product)}
	if id != 0 {
		item.ID = formatID(id)
	}
	return item
}

func toCartProduct(product *models.Product) cartapi.Product {
	if product == nil {
		return cartapi.Product{}
	}
	return cartapi.Product{
		ID:       formatID(product.ID),
		Title:    product.Title,
		Price:    cartapi.NewPrice(product.PriceAmount.Decimal),
		ImageURL: product.ImageURL,
		Artisan:  cartapi.Artisan{User: cartapi.ArtisanUser{Name: product.Artisan.DisplayName()}},
	}
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrNotFound
	}
	return uint(id), nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
