package cache

import (
	"context"
	"testing"
	"time"

	"github.com/reelcraft/reelcraft/internal/cartapi"
	"github.com/reelcraft/reelcraft/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	UseClient(client, "test")
	t.Cleanup(func() {
		UseClient(nil, "")
		_ = client.Close()
	})
	return mr
}

func TestDisabledCacheIsNoop(t *testing.T) {
	UseClient(nil, "")
	ctx := context.Background()

	if err := SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute); err != nil {
		t.Fatalf("set on disabled cache should not fail: %v", err)
	}
	var dest map[string]int
	hit, err := GetJSON(ctx, "k", &dest)
	if err != nil || hit {
		t.Fatalf("disabled cache should miss, hit=%v err=%v", hit, err)
	}
	if err := Del(ctx, "k"); err != nil {
		t.Fatalf("del on disabled cache should not fail: %v", err)
	}
}

func TestCartViewRoundTripAndInvalidate(t *testing.T) {
	mr := useMiniredis(t)
	ctx := context.Background()

	view := &cartapi.Cart{
		Items: []cartapi.CartItem{{
			ID:       "11",
			Quantity: 2,
			Product:  cartapi.Product{ID: "3", Title: "Mug", Price: cartapi.MustPrice("12.50")},
		}},
		Total: cartapi.MustPrice("25.00"),
	}
	if err := SetCartView(ctx, 42, view, 30*time.Second); err != nil {
		t.Fatalf("set cart view failed: %v", err)
	}
	if !mr.Exists("test:cart:view:42") {
		t.Fatalf("cart view key should exist")
	}
	if ttl := mr.TTL("test:cart:view:42"); ttl != 30*time.Second {
		t.Fatalf("ttl want 30s got %v", ttl)
	}

	got, hit, err := GetCartView(ctx, 42)
	if err != nil || !hit {
		t.Fatalf("cart view should hit, hit=%v err=%v", hit, err)
	}
	if len(got.Items) != 1 || got.Items[0].ID != "11" {
		t.Fatalf("unexpected items: %+v", got.Items)
	}
	if !got.Total.Equal(view.Total.Decimal) {
		t.Fatalf("total want %s got %s", view.Total.String(), got.Total.String())
	}

	if err := InvalidateCartView(ctx, 42); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if _, hit, err = GetCartView(ctx, 42); err != nil || hit {
		t.Fatalf("invalidated view should miss, hit=%v err=%v", hit, err)
	}
}

func TestCartViewDefaultTTL(t *testing.T) {
	mr := useMiniredis(t)
	if err := SetCartView(context.Background(), 1, &cartapi.Cart{}, 0); err != nil {
		t.Fatalf("set cart view failed: %v", err)
	}
	if ttl := mr.TTL("test:cart:view:1"); ttl != DefaultCartViewTTL {
		t.Fatalf("ttl want %v got %v", DefaultCartViewTTL, ttl)
	}

	got, hit, err := GetCartView(context.Background(), 1)
	if err != nil || !hit {
		t.Fatalf("cart view should hit, hit=%v err=%v", hit, err)
	}
	if got.Items == nil {
		t.Fatalf("empty cart should decode with non-nil items")
	}
}

func TestUserAuthStateCache(t *testing.T) {
	useMiniredis(t)
	ctx := context.Background()
	invalidBefore := time.Unix(1_700_000_000, 0)
	user := &models.User{ID: 5, Role: "artisan", Status: "active", TokenVersion: 3, TokenInvalidBefore: &invalidBefore}

	if err := SetUserAuthState(ctx, AuthStateFromUser(user)); err != nil {
		t.Fatalf("set auth state failed: %v", err)
	}
	state, hit, err := GetUserAuthState(ctx, 5)
	if err != nil || !hit {
		t.Fatalf("auth state should hit, hit=%v err=%v", hit, err)
	}
	if state.TokenVersion != 3 || state.TokenInvalidBefore != invalidBefore.Unix() || state.Role != "artisan" {
		t.Fatalf("unexpected auth state: %+v", state)
	}

	if err := DelUserAuthState(ctx, 5); err != nil {
		t.Fatalf("del auth state failed: %v", err)
	}
	if _, hit, err = GetUserAuthState(ctx, 5); err != nil || hit {
		t.Fatalf("deleted auth state should miss, hit=%v err=%v", hit, err)
	}
}

func TestUserAuthStateAcceptsOnlyCurrentTokens(t *testing.T) {
	invalidBefore := time.Unix(1_700_000_000, 0)
	state := AuthStateFromUser(&models.User{ID: 9, Status: " Active ", TokenVersion: 2, TokenInvalidBefore: &invalidBefore})

	if !state.Active() {
		t.Fatalf("status should match case-insensitively")
	}
	if state.Role != "buyer" {
		t.Fatalf("empty role should default to buyer, got %q", state.Role)
	}
	cases := []struct {
		version  uint64
		issuedAt time.Time
		want     bool
	}{
		{2, invalidBefore, true},
		{2, invalidBefore.Add(time.Minute), true},
		{1, invalidBefore.Add(time.Minute), false},
		{2, invalidBefore.Add(-time.Second), false},
		{2, time.Time{}, false},
	}
	for _, tc := range cases {
		if got := state.Accepts(tc.version, tc.issuedAt); got != tc.want {
			t.Fatalf("Accepts(%d, %v) want %v got %v", tc.version, tc.issuedAt, tc.want, got)
		}
	}

	disabled := AuthStateFromUser(&models.User{ID: 9, Status: "disabled"})
	if disabled.Active() {
		t.Fatalf("disabled user should not be active")
	}
	if !disabled.Accepts(0, time.Time{}) {
		t.Fatalf("without invalid-before any issue time is accepted")
	}
}
