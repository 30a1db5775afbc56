package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reelcraft/reelcraft/internal/cache"
	"github.com/reelcraft/reelcraft/internal/constants"
	"github.com/reelcraft/reelcraft/internal/logger"
	"github.com/reelcraft/reelcraft/internal/models"
	"github.com/reelcraft/reelcraft/internal/queue"
	"github.com/reelcraft/reelcraft/internal/repository"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderPlacedEnqueuer 下单任务投递
type OrderPlacedEnqueuer interface {
	EnqueueOrderPlaced(payload queue.OrderPlacedPayload, opts ...asynq.Option) error
}

// CheckoutService 结账服务（不含支付）
type CheckoutService struct {
	cartRepo  repository.CartRepository
	orderRepo repository.OrderRepository
	queue     OrderPlacedEnqueuer
	now       func() time.Time
}

// NewCheckoutService 创建结账服务
func NewCheckoutService(cartRepo repository.CartRepository, orderRepo repository.OrderRepository, enqueuer OrderPlacedEnqueuer) *CheckoutService {
	return &CheckoutService{
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		queue:     enqueuer,
		now:       time.Now,
	}
}

// PlaceOrder 将购物车快照为订单并清空购物车（同一事务）
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID uint) (*models.Order, error) {
	if userID == 0 {
		return nil, ErrInvalidCartItem
	}

	var order *models.Order
	err := s.cartRepo.Transaction(func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		items, err := cartRepo.ListByUser(userID)
		if err != nil {
			return err
		}
		orderItems := make([]models.OrderItem, 0, len(items))
		total := models.NewMoneyFromDecimal(decimal.Zero)
		for _, item := range items {
			product := item.Product
			if product == nil || !product.IsActive || item.Quantity <= 0 {
				continue
			}
			lineTotal := product.PriceAmount.Mul(item.Quantity)
			total = total.Add(lineTotal)
			orderItems = append(orderItems, models.OrderItem{
				ProductID:   product.ID,
				Title:       product.Title,
				ArtisanName: product.Artisan.DisplayName(),
				UnitPrice:   product.PriceAmount,
				Quantity:    item.Quantity,
				TotalPrice:  lineTotal,
			})
		}
		if len(orderItems) == 0 {
			return ErrCartEmpty
		}

		order = &models.Order{
			OrderNo:     generateOrderNo(s.now()),
			UserID:      userID,
			Status:      constants.OrderStatusPlaced,
			TotalAmount: total,
		}
		if err := s.orderRepo.WithTx(tx).Create(order, orderItems); err != nil {
			return fmt.Errorf("%w: %v", ErrOrderCreateFailed, err)
		}
		return cartRepo.ClearByUser(userID)
	})
	if err != nil {
		if !errors.Is(err, ErrCartEmpty) {
			logger.Errorw("checkout_place_order_failed", "user_id", userID, "error", err)
		}
		return nil, err
	}

	if err := cache.InvalidateCartView(ctx, userID); err != nil {
		logger.Warnw("cart_view_cache_invalidate_failed", "user_id", userID, "error", err)
	}
	if s.queue != nil {
		payload := queue.OrderPlacedPayload{OrderID: order.ID, OrderNo: order.OrderNo, UserID: userID}
		if err := s.queue.EnqueueOrderPlaced(payload); err != nil {
			// 订单已落库，任务投递失败只记录
			logger.Warnw("checkout_enqueue_order_placed_failed", "order_id", order.ID, "order_no", order.OrderNo, "error", err)
		}
	}
	logger.Infow("checkout_order_placed", "order_id", order.ID, "order_no", order.OrderNo, "user_id", userID, "total", order.TotalAmount.String())
	return order, nil
}

// GetOrder 获取用户订单
func (s *CheckoutService) GetOrder(userID uint, orderNo string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNoAndUser(strings.TrimSpace(orderNo), userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// MarkNotified 下单任务处理完成后标记订单；重复投递时返回 false
func (s *CheckoutService) MarkNotified(orderID uint) (bool, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return false, err
	}
	if order == nil {
		return false, ErrOrderNotFound
	}
	now := s.now()
	affected, err := s.orderRepo.MarkNotified(orderID, map[string]interface{}{
		"notified_at": now,
		"status":      constants.OrderStatusNotified,
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func generateOrderNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("RC%s%s", now.Format("20060102150405"), suffix)
}
