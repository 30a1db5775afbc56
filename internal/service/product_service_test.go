package service

import (
	"errors"
	"testing"

	"github.com/reelcraft/reelcraft/internal/repository"
)

func TestFeedListsActiveProductsWithVideo(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewProductService(repository.NewProductRepository(db))
	mug := seedProduct(t, db, "Mug", "12.50", true)
	if err := db.Model(mug).Update("video_url", "https://cdn.example.com/mug.mp4").Error; err != nil {
		t.Fatalf("set video failed: %v", err)
	}
	seedProduct(t, db, "Retired", "3.00", false)

	items, total, err := svc.Feed(FeedInput{})
	if err != nil {
		t.Fatalf("feed failed: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("expected one active product, got total=%d items=%+v", total, items)
	}
	if items[0].VideoURL != "https://cdn.example.com/mug.mp4" || items[0].Price.StringFixed(2) != "12.50" {
		t.Fatalf("unexpected feed item %+v", items[0])
	}
}

func TestGetProductHidesInactive(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewProductService(repository.NewProductRepository(db))
	retired := seedProduct(t, db, "Retired", "3.00", false)

	if _, err := svc.Get(formatID(retired.ID)); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := svc.Get("nope"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound for malformed id, got %v", err)
	}
}

func TestNormalizePage(t *testing.T) {
	page, size := normalizePage(0, 0)
	if page != 1 || size != 20 {
		t.Fatalf("unexpected defaults %d/%d", page, size)
	}
	_, size = normalizePage(2, 1000)
	if size != 100 {
		t.Fatalf("expected page size capped at 100, got %d", size)
	}
}
