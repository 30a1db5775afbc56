package service

import (
	"context"
	"errors"
	"testing"

	"github.com/reelcraft/reelcraft/internal/cache"
	"github.com/reelcraft/reelcraft/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func newCartServiceForTest(t *testing.T) (*CartService, *gorm.DB) {
	t.Helper()
	db := setupServiceDB(t)
	svc := NewCartService(repository.NewCartRepository(db), repository.NewProductRepository(db), testConfig().Cart)
	t.Cleanup(func() { cache.UseClient(nil, "") })
	return svc, db
}

func TestCartApplyDeltaIsRelative(t *testing.T) {
	svc, db := newCartServiceForTest(t)
	ctx := context.Background()
	mug := seedProduct(t, db, "Mug", "12.50", true)
	productID := formatID(mug.ID)

	first, err := svc.ApplyDelta(ctx, 1, productID, 2)
	if err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if first.Quantity != 2 || first.ID == "" {
		t.Fatalf("expected new line with quantity 2, got %+v", first)
	}
	second, err := svc.ApplyDelta(ctx, 1, productID, 3)
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if second.ID != first.ID || second.Quantity != 5 {
		t.Fatalf("expected merged line quantity 5, got %+v", second)
	}
	if second.Product.Title != "Mug" || second.Product.Artisan.User.Name != "Studio Loam" {
		t.Fatalf("expected product snapshot, got %+v", second.Product)
	}

	view, err := svc.View(ctx, 1)
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if len(view.Items) != 1 || view.Total.StringFixed(2) != "62.50" {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestCartApplyDeltaDeletesAtZero(t *testing.T) {
	svc, db := newCartServiceForTest(t)
	ctx := context.Background()
	mug := seedProduct(t, db, "Mug", "12.50", true)
	productID := formatID(mug.ID)

	added, err := svc.ApplyDelta(ctx, 1, productID, 2)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	removed, err := svc.ApplyDelta(ctx, 1, productID, -5)
	if err != nil {
		t.Fatalf("negative delta failed: %v", err)
	}
	if removed.Quantity != 0 || removed.ID != added.ID {
		t.Fatalf("expected deleted line with quantity 0, got %+v", removed)
	}
	view, err := svc.View(ctx, 1)
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if len(view.Items) != 0 || !view.Total.IsZero() {
		t.Fatalf("expected empty cart, got %+v", view)
	}

	// 不存在的行收到负增量时不创建
	missing, err := svc.ApplyDelta(ctx, 1, productID, -1)
	if err != nil {
		t.Fatalf("negative delta on missing line failed: %v", err)
	}
	if missing.ID != "" || missing.Quantity != 0 {
		t.Fatalf("expected empty result, got %+v", missing)
	}
}

func TestCartApplyDeltaValidation(t *testing.T) {
	svc, db := newCartServiceForTest(t)
	ctx := context.Background()
	mug := seedProduct(t, db, "Mug", "12.50", true)
	retired := seedProduct(t, db, "Retired", "3.00", false)

	cases := []struct {
		name      string
		productID string
		delta     int
		want      error
	}{
		{"zero delta", formatID(mug.ID), 0, ErrInvalidQuantity},
		{"unknown product", "99999", 1, ErrProductNotFound},
		{"malformed product", "abc", 1, ErrProductNotFound},
		{"inactive product", formatID(retired.ID), 1, ErrProductNotAvailable},
		{"over limit", formatID(mug.ID), 11, ErrQuantityLimit},
	}
	for _, tc := range cases {
		if _, err := svc.ApplyDelta(ctx, 1, tc.productID, tc.delta); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCartRemoveLineIsIdempotent(t *testing.T) {
	svc, db := newCartServiceForTest(t)
	ctx := context.Background()
	mug := seedProduct(t, db, "Mug", "12.50", true)

	line, err := svc.ApplyDelta(ctx, 1, formatID(mug.ID), 1)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if deleted, err := svc.RemoveLine(ctx, 2, line.ID); err != nil || deleted {
		t.Fatalf("other user must not delete line, deleted=%v err=%v", deleted, err)
	}
	if deleted, err := svc.RemoveLine(ctx, 1, line.ID); err != nil || !deleted {
		t.Fatalf("expected delete, deleted=%v err=%v", deleted, err)
	}
	if deleted, err := svc.RemoveLine(ctx, 1, line.ID); err != nil || deleted {
		t.Fatalf("second delete should report false, deleted=%v err=%v", deleted, err)
	}
	if deleted, err := svc.RemoveLine(ctx, 1, "not-a-number"); err != nil || deleted {
		t.Fatalf("malformed id should report false, deleted=%v err=%v", deleted, err)
	}
}

func TestCartViewCacheInvalidatedOnMutation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, db := newCartServiceForTest(t)
	cache.UseClient(client, "test")
	ctx := context.Background()
	mug := seedProduct(t, db, "Mug", "12.50", true)

	if _, err := svc.View(ctx, 1); err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if !mr.Exists("test:cart:view:1") {
		t.Fatalf("expected view to be cached")
	}
	if _, err := svc.ApplyDelta(ctx, 1, formatID(mug.ID), 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if mr.Exists("test:cart:view:1") {
		t.Fatalf("expected cached view to be invalidated")
	}
	view, err := svc.View(ctx, 1)
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if len(view.Items) != 1 {
		t.Fatalf("expected fresh view with one line, got %+v", view)
	}
}

func TestCartViewDropsInactiveProducts(t *testing.T) {
	svc, db := newCartServiceForTest(t)
	ctx := context.Background()
	mug := seedProduct(t, db, "Mug", "12.50", true)
	if _, err := svc.ApplyDelta(ctx, 1, formatID(mug.ID), 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := db.Model(mug).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	view, err := svc.View(ctx, 1)
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("inactive product should be dropped, got %+v", view.Items)
	}
}
