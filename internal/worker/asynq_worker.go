package worker

import (
	"context"
	"errors"

	"github.com/reelcraft/reelcraft/internal/logger"
	"github.com/reelcraft/reelcraft/internal/provider"
	"github.com/reelcraft/reelcraft/internal/queue"
	"github.com/reelcraft/reelcraft/internal/service"

	"github.com/hibiken/asynq"
)

// OrderNotifier 下单任务的业务处理
type OrderNotifier interface {
	MarkNotified(orderID uint) (bool, error)
}

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
	orders OrderNotifier
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	consumer := &Consumer{Container: c}
	if c != nil && c.CheckoutService != nil {
		consumer.orders = c.CheckoutService
	}
	return consumer
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderPlaced, c.handleOrderPlaced)
}

func (c *Consumer) handleOrderPlaced(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_placed_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseOrderPlacedPayload(task)
	if err != nil {
		logger.Warnw("worker_order_placed_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_placed_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.orders == nil {
		logger.Warnw("worker_order_placed_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	applied, err := c.orders.MarkNotified(payload.OrderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			logger.Debugw("worker_order_placed_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		}
		logger.Warnw("worker_order_placed_failed", "order_id", payload.OrderID, "order_no", payload.OrderNo, "error", err)
		return err
	}
	if !applied {
		logger.Debugw("worker_order_placed_skip_already_notified", "order_id", payload.OrderID)
		return nil
	}
	logger.Infow("worker_order_placed_notified", "order_id", payload.OrderID, "order_no", payload.OrderNo, "user_id", payload.UserID)
	return nil
}
