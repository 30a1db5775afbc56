package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/reelcraft/reelcraft/internal/constants"
	"github.com/reelcraft/reelcraft/internal/queue"
	"github.com/reelcraft/reelcraft/internal/repository"

	"github.com/hibiken/asynq"
)

type recordingEnqueuer struct {
	mu       sync.Mutex
	payloads []queue.OrderPlacedPayload
	err      error
}

func (r *recordingEnqueuer) EnqueueOrderPlaced(payload queue.OrderPlacedPayload, _ ...asynq.Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	return r.err
}

func TestPlaceOrderSnapshotsAndEmptiesCart(t *testing.T) {
	db := setupServiceDB(t)
	cartRepo := repository.NewCartRepository(db)
	cartSvc := NewCartService(cartRepo, repository.NewProductRepository(db), testConfig().Cart)
	enqueuer := &recordingEnqueuer{}
	checkout := NewCheckoutService(cartRepo, repository.NewOrderRepository(db), enqueuer)
	ctx := context.Background()

	mug := seedProduct(t, db, "Mug", "12.50", true)
	vase := seedProduct(t, db, "Vase", "40.00", true)
	if _, err := cartSvc.ApplyDelta(ctx, 1, formatID(mug.ID), 2); err != nil {
		t.Fatalf("add mug failed: %v", err)
	}
	if _, err := cartSvc.ApplyDelta(ctx, 1, formatID(vase.ID), 1); err != nil {
		t.Fatalf("add vase failed: %v", err)
	}

	order, err := checkout.PlaceOrder(ctx, 1)
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	if order.TotalAmount.String() != "65.00" || len(order.Items) != 2 {
		t.Fatalf("unexpected order %+v", order)
	}
	if order.Status != constants.OrderStatusPlaced || order.OrderNo == "" {
		t.Fatalf("unexpected order status/no %+v", order)
	}
	if order.Items[0].ArtisanName != "Studio Loam" {
		t.Fatalf("expected artisan snapshot, got %+v", order.Items[0])
	}

	view, err := cartSvc.View(ctx, 1)
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("expected cart to be emptied, got %+v", view.Items)
	}
	if len(enqueuer.payloads) != 1 || enqueuer.payloads[0].OrderID != order.ID {
		t.Fatalf("expected one order:placed task, got %+v", enqueuer.payloads)
	}

	if _, err := checkout.PlaceOrder(ctx, 1); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty on second checkout, got %v", err)
	}
}

func TestPlaceOrderSurvivesEnqueueFailure(t *testing.T) {
	db := setupServiceDB(t)
	cartRepo := repository.NewCartRepository(db)
	cartSvc := NewCartService(cartRepo, repository.NewProductRepository(db), testConfig().Cart)
	checkout := NewCheckoutService(cartRepo, repository.NewOrderRepository(db), &recordingEnqueuer{err: errors.New("redis down")})
	ctx := context.Background()

	mug := seedProduct(t, db, "Mug", "12.50", true)
	if _, err := cartSvc.ApplyDelta(ctx, 7, formatID(mug.ID), 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	order, err := checkout.PlaceOrder(ctx, 7)
	if err != nil {
		t.Fatalf("enqueue failure must not fail checkout: %v", err)
	}
	got, err := checkout.GetOrder(7, order.OrderNo)
	if err != nil || got.ID != order.ID {
		t.Fatalf("expected persisted order, got %+v err=%v", got, err)
	}
}

func TestMarkNotifiedOnlyOnce(t *testing.T) {
	db := setupServiceDB(t)
	cartRepo := repository.NewCartRepository(db)
	cartSvc := NewCartService(cartRepo, repository.NewProductRepository(db), testConfig().Cart)
	checkout := NewCheckoutService(cartRepo, repository.NewOrderRepository(db), nil)
	ctx := context.Background()

	mug := seedProduct(t, db, "Mug", "12.50", true)
	if _, err := cartSvc.ApplyDelta(ctx, 3, formatID(mug.ID), 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	order, err := checkout.PlaceOrder(ctx, 3)
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}
	first, err := checkout.MarkNotified(order.ID)
	if err != nil || !first {
		t.Fatalf("first mark should apply, got %v err=%v", first, err)
	}
	second, err := checkout.MarkNotified(order.ID)
	if err != nil || second {
		t.Fatalf("second mark should be a no-op, got %v err=%v", second, err)
	}
	if _, err := checkout.MarkNotified(order.ID + 100); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
