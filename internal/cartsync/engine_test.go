package cartsync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reelcraft/reelcraft/internal/cartapi"
	"github.com/reelcraft/reelcraft/internal/cartsync/localcache"
	"github.com/reelcraft/reelcraft/internal/cartsync/transport"
	"github.com/reelcraft/reelcraft/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mug  = cartapi.Product{ID: "p1", Title: "Hand-thrown mug", Price: cartapi.MustPrice("12.50"), Artisan: cartapi.Artisan{User: cartapi.ArtisanUser{Name: "Ines"}}}
	vase = cartapi.Product{ID: "p2", Title: "Ash glaze vase", Price: cartapi.MustPrice("40"), Artisan: cartapi.Artisan{User: cartapi.ArtisanUser{Name: "Kai"}}}
)

// fakeAPI 内存购物车服务，数量按增量处理
type fakeAPI struct {
	mu       sync.Mutex
	products map[string]cartapi.Product
	lines    []cartapi.CartItem
	nextID   int

	addCalls    []cartapi.AddItemRequest
	removeCalls []string
	getCalls    int

	addGate   chan struct{}
	addErr    error
	getErr    error
	removeErr error
}

func newFakeAPI(products ...cartapi.Product) *fakeAPI {
	f := &fakeAPI{products: make(map[string]cartapi.Product)}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeAPI) seed(productID string, quantity int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := strconv.Itoa(f.nextID)
	f.lines = append(f.lines, cartapi.CartItem{ID: id, Quantity: quantity, Product: f.products[productID]})
	return id
}

func (f *fakeAPI) GetCart(context.Context) (cartapi.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return cartapi.Cart{}, f.getErr
	}
	items := append([]cartapi.CartItem(nil), f.lines...)
	return cartapi.Cart{Items: items}, nil
}

func (f *fakeAPI) AddItem(_ context.Context, productID string, quantity int) (cartapi.CartItem, error) {
	f.mu.Lock()
	f.addCalls = append(f.addCalls, cartapi.AddItemRequest{ProductID: productID, Quantity: quantity})
	gate := f.addGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return cartapi.CartItem{}, f.addErr
	}
	product, ok := f.products[productID]
	if !ok {
		return cartapi.CartItem{}, &transport.StatusError{StatusCode: http.StatusBadRequest, Message: "product not found"}
	}
	for i := range f.lines {
		if f.lines[i].Product.ID != productID {
			continue
		}
		f.lines[i].Quantity += quantity
		item := f.lines[i]
		if item.Quantity <= 0 {
			f.lines = append(f.lines[:i], f.lines[i+1:]...)
			item.Quantity = 0
		}
		return item, nil
	}
	if quantity <= 0 {
		return cartapi.CartItem{Product: product}, nil
	}
	f.nextID++
	item := cartapi.CartItem{ID: strconv.Itoa(f.nextID), Quantity: quantity, Product: product}
	f.lines = append(f.lines, item)
	return item, nil
}

func (f *fakeAPI) RemoveItem(_ context.Context, lineID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls = append(f.removeCalls, lineID)
	if f.removeErr != nil {
		return false, f.removeErr
	}
	for i := range f.lines {
		if f.lines[i].ID == lineID {
			f.lines = append(f.lines[:i], f.lines[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAPI) adds() []cartapi.AddItemRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cartapi.AddItemRequest(nil), f.addCalls...)
}

func (f *fakeAPI) removes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removeCalls...)
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type notification struct {
	ok  bool
	msg string
	err error
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []notification
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, notification{ok: true, msg: msg})
}

func (n *recordingNotifier) Failure(msg string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, notification{msg: msg, err: err})
}

func (n *recordingNotifier) failures() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification
	for _, item := range n.items {
		if !item.ok {
			out = append(out, item)
		}
	}
	return out
}

type harness struct {
	engine  *Engine
	clock   *testutil.FakeClock
	storage *localcache.MemoryStorage
	notify  *recordingNotifier
	catalog *Catalog
	session *atomic.Bool
}

func newHarness(t *testing.T, api CartAPI) *harness {
	t.Helper()
	h := &harness{
		clock:   testutil.NewFakeClock(time.Unix(1760000000, 0)),
		storage: localcache.NewMemoryStorage(),
		notify:  &recordingNotifier{},
		catalog: NewCatalog(),
		session: &atomic.Bool{},
	}
	h.session.Store(true)
	h.catalog.Put(mug, vase)
	h.engine = h.newEngine(t, api)
	return h
}

func (h *harness) newEngine(t *testing.T, api CartAPI) *Engine {
	t.Helper()
	engine, err := New(Config{
		API:      api,
		Session:  SessionFunc(h.session.Load),
		Notifier: h.notify,
		Products: h.catalog,
		Cache:    h.cache(),
		Clock:    h.clock,
	})
	require.NoError(t, err)
	return engine
}

func (h *harness) cache() *localcache.Cache[cartapi.Cart] {
	return localcache.New[cartapi.Cart](h.storage, "cart", localcache.WithClock(h.clock))
}

func waitSettled(t *testing.T, m *Mutation) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("mutation %s (%s) did not settle", m.ID, m.Kind)
	}
}

func quantityOf(t *testing.T, state State, productID string) int {
	t.Helper()
	require.NotNil(t, state.Cart)
	line, ok := state.Cart.LineByProduct(productID)
	if !ok {
		return 0
	}
	return line.Quantity
}

func TestTotalIsDerivedFromLines(t *testing.T) {
	view := View{Lines: []Line{
		{Ref: Confirmed{ServerID: "1"}, Quantity: 3, Product: ProductFromAPI(mug)},
		{Ref: NewProvisional("p2"), Quantity: 1, Product: ProductFromAPI(vase)},
	}}
	assert.True(t, decimal.RequireFromString("77.50").Equal(view.Total()))

	view.Lines[0].Quantity = 1
	assert.True(t, decimal.RequireFromString("52.50").Equal(view.Total()))

	persisted := view.Persistable()
	require.Len(t, persisted.Items, 1, "provisional lines are never persisted")
	assert.Equal(t, "12.50", persisted.Total.StringFixed(2))
}

func TestAddToCartAppliesBeforeNetworkResolves(t *testing.T) {
	api := newFakeAPI(mug)
	api.addGate = make(chan struct{})
	h := newHarness(t, api)

	m, err := h.engine.AddToCart(context.Background(), "p1", 2)
	require.NoError(t, err)

	state := h.engine.State()
	assert.Equal(t, 2, quantityOf(t, state, "p1"))
	assert.True(t, state.IsAddingToCart)
	assert.Equal(t, 1, state.CartCount)
	line, _ := state.Cart.LineByProduct("p1")
	assert.True(t, line.IsProvisional())
	assert.True(t, IsProvisionalID(line.ID()))
	assert.Equal(t, StatePending, m.State())

	_, cached := h.cache().Read(context.Background())
	assert.False(t, cached, "a provisional line for a new product is not written to the cache")

	close(api.addGate)
	waitSettled(t, m)
	h.engine.Close()

	state = h.engine.State()
	assert.Equal(t, StateConfirmed, m.State())
	assert.False(t, state.IsAddingToCart)
	line, ok := state.Cart.LineByProduct("p1")
	require.True(t, ok)
	assert.Equal(t, Confirmed{ServerID: "1"}, line.Ref)
	assert.Equal(t, 2, line.Quantity)
}

func TestConcurrentAddsMergeIntoOneLine(t *testing.T) {
	api := newFakeAPI(mug)
	api.addGate = make(chan struct{})
	h := newHarness(t, api)
	ctx := context.Background()

	var muts []*Mutation
	for _, n := range []int{1, 2, 3} {
		m, err := h.engine.AddToCart(ctx, "p1", n)
		require.NoError(t, err)
		muts = append(muts, m)
	}

	state := h.engine.State()
	require.Len(t, state.Cart.Lines, 1)
	assert.Equal(t, 6, state.Cart.Lines[0].Quantity)
	assert.Equal(t, 1, state.CartCount)

	close(api.addGate)
	for _, m := range muts {
		waitSettled(t, m)
	}
	h.engine.Close()

	state = h.engine.State()
	require.Len(t, state.Cart.Lines, 1)
	assert.Equal(t, 6, state.Cart.Lines[0].Quantity)
	assert.Len(t, api.adds(), 3, "adds are never collapsed")
}

func TestAddToCartWithoutSessionRedirects(t *testing.T) {
	api := newFakeAPI(mug)
	h := newHarness(t, api)
	h.session.Store(false)

	var redirects atomic.Int32
	engine, err := New(Config{
		API:       api,
		Session:   SessionFunc(h.session.Load),
		Navigator: NavigatorFunc(func() { redirects.Add(1) }),
		Products:  h.catalog,
	})
	require.NoError(t, err)

	m, err := engine.AddToCart(context.Background(), "p1", 1)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.EqualValues(t, 1, redirects.Load())
	assert.Nil(t, engine.State().Cart)
	assert.Empty(t, api.adds())

	_, err = engine.UpdateQuantity(context.Background(), "p1", 1)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.EqualValues(t, 1, redirects.Load(), "quantity changes never redirect")
}

func TestAddToCartLookupMissStillSends(t *testing.T) {
	unknown := cartapi.Product{ID: "p9", Title: "Loom", Price: cartapi.MustPrice("5")}
	api := newFakeAPI(unknown)
	h := newHarness(t, api)

	m, err := h.engine.AddToCart(context.Background(), "p9", 0)
	require.NoError(t, err)

	state := h.engine.State()
	assert.Empty(t, state.Cart.Lines)
	assert.Equal(t, 1, state.CartCount)

	waitSettled(t, m)
	h.engine.Close()
	assert.Equal(t, []cartapi.AddItemRequest{{ProductID: "p9", Quantity: 1}}, api.adds())
	assert.Equal(t, 1, quantityOf(t, h.engine.State(), "p9"))
}

func TestAddToCartRejectedRollsBack(t *testing.T) {
	api := newFakeAPI(mug)
	api.addErr = &transport.StatusError{StatusCode: http.StatusConflict}
	h := newHarness(t, api)

	m, err := h.engine.AddToCart(context.Background(), "p1", 1)
	require.NoError(t, err)
	waitSettled(t, m)
	h.engine.Close()

	assert.Equal(t, StateRolledBack, m.State())
	assert.ErrorIs(t, m.Err(), transport.ErrRejected)
	state := h.engine.State()
	assert.Empty(t, state.Cart.Lines)
	assert.Equal(t, 0, state.CartCount)
	assert.ErrorIs(t, state.Err, transport.ErrRejected)

	failures := h.notify.failures()
	require.Len(t, failures, 1)
	assert.Equal(t, MsgAddFailed, failures[0].msg)
}

func TestAddToCartOfflineFailureRestoresCachedQuantity(t *testing.T) {
	api := newFakeAPI(mug)
	api.seed("p1", 1)
	h := newHarness(t, api)
	ctx := context.Background()
	require.NoError(t, h.engine.Refresh(ctx))

	offline := errors.New("network unreachable")
	api.set(func(f *fakeAPI) {
		f.addErr = offline
		f.getErr = offline
	})

	m, err := h.engine.AddToCart(ctx, "p1", 1)
	require.NoError(t, err)
	waitSettled(t, m)
	h.engine.Close()

	assert.Equal(t, StateRolledBack, m.State())
	assert.Equal(t, 1, quantityOf(t, h.engine.State(), "p1"))

	cached, hit := h.cache().Read(ctx)
	require.True(t, hit)
	require.Len(t, cached.Items, 1)
	assert.Equal(t, 1, cached.Items[0].Quantity, "the rolled back increment must not stay in the snapshot")

	reloaded := h.newEngine(t, api)
	assert.Equal(t, 1, quantityOf(t, reloaded.State(), "p1"))
	reloaded.Close()
}

func TestRefreshKeepsInFlightAddOnConfirmedLine(t *testing.T) {
	api := newFakeAPI(mug)
	api.seed("p1", 1)
	h := newHarness(t, api)
	ctx := context.Background()
	require.NoError(t, h.engine.Refresh(ctx))

	gate := make(chan struct{})
	api.set(func(f *fakeAPI) { f.addGate = gate })
	m, err := h.engine.AddToCart(ctx, "p1", 1)
	require.NoError(t, err)
	require.Equal(t, 2, quantityOf(t, h.engine.State(), "p1"))

	require.NoError(t, h.engine.Refresh(ctx))
	assert.Equal(t, 2, quantityOf(t, h.engine.State(), "p1"), "a refetch must not drop the pending add")

	close(gate)
	waitSettled(t, m)
	h.engine.Close()
	assert.Equal(t, StateConfirmed, m.State())
	assert.Equal(t, 2, quantityOf(t, h.engine.State(), "p1"))
}

func TestRefreshKeepsSentQuantityChange(t *testing.T) {
	api := newFakeAPI(mug)
	api.seed("p1", 1)
	h := newHarness(t, api)
	ctx := context.Background()
	require.NoError(t, h.engine.Refresh(ctx))

	gate := make(chan struct{})
	api.set(func(f *fakeAPI) { f.addGate = gate })
	m, err := h.engine.UpdateQuantity(ctx, "p1", 2)
	require.NoError(t, err)
	h.clock.Advance(500 * time.Millisecond)

	require.NoError(t, h.engine.Refresh(ctx))
	assert.Equal(t, 3, quantityOf(t, h.engine.State(), "p1"), "a sent but unanswered delta stays applied")

	close(gate)
	waitSettled(t, m)
	h.engine.Close()
	assert.Equal(t, []cartapi.AddItemRequest{{ProductID: "p1", Quantity: 2}}, api.adds())
	assert.Equal(t, 3, quantityOf(t, h.engine.State(), "p1"))
}

func TestUpdateQuantityToZeroRemovesLine(t *testing.T) {
	api := newFakeAPI(mug, vase)
	api.seed("p1", 2)
	api.seed("p2", 1)
	h := newHarness(t, api)
	require.NoError(t, h.engine.Refresh(context.Background()))
	require.Equal(t, 2, h.engine.CartCount())

	m, err := h.engine.UpdateQuantity(context.Background(), "p1", -2)
	require.NoError(t, err)

	state := h.engine.State()
	_, ok := state.Cart.LineByProduct("p1")
	assert.False(t, ok)
	assert.Equal(t, 1, state.CartCount)

	cached, hit := h.cache().Read(context.Background())
	require.True(t, hit)
	assert.Len(t, cached.Items, 1, "quantity changes write through to the cache")

	h.clock.Advance(500 * time.Millisecond)
	waitSettled(t, m)
	h.engine.Close()

	assert.Equal(t, []cartapi.AddItemRequest{{ProductID: "p1", Quantity: -2}}, api.adds())
	assert.Equal(t, 1, h.engine.CartCount())
}

func TestUpdateQuantityDebouncesToNetDelta(t *testing.T) {
	api := newFakeAPI(mug)
	api.seed("p1", 1)
	h := newHarness(t, api)
	ctx := context.Background()
	require.NoError(t, h.engine.Refresh(ctx))

	var muts []*Mutation
	for i := 1; i <= 5; i++ {
		m, err := h.engine.UpdateQuantity(ctx, "p1", 1)
		require.NoError(t, err)
		muts = append(muts, m)
		assert.Equal(t, 1+i, quantityOf(t, h.engine.State(), "p1"))
		h.clock.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, api.adds())

	h.clock.Advance(400 * time.Millisecond)
	for _, m := range muts {
		waitSettled(t, m)
		assert.Equal(t, StateConfirmed, m.State())
	}
	h.engine.Close()

	assert.Equal(t, []cartapi.AddItemRequest{{ProductID: "p1", Quantity: 5}}, api.adds())
	assert.Equal(t, 6, quantityOf(t, h.engine.State(), "p1"))
}

func TestUpdateQuantityNetZeroSkipsNetwork(t *testing.T) {
	api := newFakeAPI(mug)
	api.seed("p1", 3)
	h := newHarness(t, api)
	ctx := context.Background()
	require.NoError(t, h.engine.Refresh(ctx))

	up, err := h.engine.UpdateQuantity(ctx, "p1", 1)
	require.NoError(t, err)
	down, err := h.engine.UpdateQuantity(ctx, "p1", -1)
	require.NoError(t, err)

	h.clock.Advance(time.Second)
	waitSettled(t, up)
	waitSettled(t, down)
	h.engine.Close()

	assert.Empty(t, api.adds())
	assert.Equal(t, 3, quantityOf(t, h.engine.State(), "p1"))
}

func TestUpdateQuantityFailureRefetchesServerCart(t *testing.T) {
	api := newFakeAPI(mug)
	api.seed("p1", 2)
	h := newHarness(t, api)
	ctx := context.Background()
	require.NoError(t, h.engine.Refresh(ctx))
	api.set(func(f *fakeAPI) {
		f.addErr = &transport.StatusError{StatusCode: http.StatusServiceUnavailable}
	})

	first, err := h.engine.UpdateQuantity(ctx, "p1", 1)
	require.NoError(t, err)
	second, err := h.engine.UpdateQuantity(ctx, "p1", 1)
	require.NoError(t, err)
	require.Equal(t, 4, quantityOf(t, h.engine.State(), "p1"))

	h.clock.Advance(500 * time.Millisecond)
	waitSettled(t, first)
	waitSettled(t, second)
	h.engine.Close()

	assert.Equal(t, StateRolledBack, first.State())
	assert.Equal(t, StateRolledBack, second.State())
	assert.Equal(t, []cartapi.AddItemRequest{{ProductID: "p1", Quantity: 2}}, api.adds())
	assert.Equal(t, 2, quantityOf(t, h.engine.State(), "p1"))

	cached, hit := h.cache().Read(ctx)
	require.True(t, hit)
	require.Len(t, cached.Items, 1)
	assert.Equal(t, 2, cached.Items[0].Quantity)

	failures := h.notify.failures()
	require.Len(t, failures, 1, "coalesced changes report one failure")
	assert.Equal(t, MsgUpdateFailed, failures[0].msg)
	assert.Error(t, h.engine.State().Err)
}

func TestUpdateQuantityFailureOfflineFallsBackToCache(t *testing.T) {
	api := newFakeAPI(mug)
	api.seed("p1", 2)
	h := newHarness(t, api)
	ctx := context.Background()
	require.NoError(t, h.engine.Refresh(ctx))
	offline := errors.New("network unreachable")
	api.set(func(f *fakeAPI) {
		f.addErr = offline
		f.getErr = offline
	})

	first, err := h.engine.UpdateQuantity(ctx, "p1", 1)
	require.NoError(t, err)
	second, err := h.engine.UpdateQuantity(ctx, "p1", 1)
	require.NoError(t, err)

	h.clock.Advance(500 * time.Millisecond)
	waitSettled(t, first)
	waitSettled(t, second)
	h.engine.Close()

	cached, hit := h.cache().Read(ctx)
	require.True(t, hit)
	require.Len(t, cached.Items, 1)
	assert.Equal(t, cached.Items[0].Quantity, quantityOf(t, h.engine.State(), "p1"), "the view is the durable snapshot")
	assert.Equal(t, 4, cached.Items[0].Quantity)

	failures := h.notify.failures()
	require.Len(t, failures, 1)
	assert.Equal(t, MsgUpdateFailed, failures[0].msg)
	assert.ErrorIs(t, failures[0].err, offline)
}

func TestUpdateQuantityUnknownProduct(t *testing.T) {
	h := newHarness(t, newFakeAPI(mug))
	_, err := h.engine.UpdateQuantity(context.Background(), "p1", 1)
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestCloseFlushesPendingQuantityChange(t *testing.T) {
	api := newFakeAPI(mug)
	api.seed("p1", 1)
	h := newHarness(t, api)
	require.NoError(t, h.engine.Refresh(context.Background()))

	m, err := h.engine.UpdateQuantity(context.Background(), "p1", 2)
	require.NoError(t, err)
	h.engine.Close()

	assert.Equal(t, StateConfirmed, m.State())
	assert.Equal(t, []cartapi.AddItemRequest{{ProductID: "p1", Quantity: 2}}, api.adds())
	_, err = h.engine.AddToCart(context.Background(), "p1", 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRemoveItemRetriesThenRestoresSnapshot(t *testing.T) {
	var deletes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deletes.Add(1)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h := &harness{
		clock:   testutil.NewFakeClock(time.Unix(1760000000, 0)),
		storage: localcache.NewMemoryStorage(),
		notify:  &recordingNotifier{},
		catalog: NewCatalog(),
		session: &atomic.Bool{},
	}
	h.session.Store(true)
	h.cache().Write(context.Background(), cartapi.Cart{Items: []cartapi.CartItem{
		{ID: "11", Quantity: 2, Product: mug},
		{ID: "12", Quantity: 1, Product: vase},
	}})

	retry := transport.NewRetryClient(srv.Client(), transport.DefaultPolicy(), h.clock, nil)
	client, err := transport.NewCartClient(srv.URL, retry, transport.StaticToken("jwt"))
	require.NoError(t, err)
	h.engine = h.newEngine(t, client)
	before := h.engine.State().Cart
	require.NotNil(t, before)

	m, err := h.engine.RemoveItem(context.Background(), "11")
	require.NoError(t, err)
	assert.Equal(t, 1, h.engine.CartCount())
	_, ok := h.engine.State().Cart.LineByID("11")
	assert.False(t, ok)

	waitSettled(t, m)
	h.engine.Close()

	assert.EqualValues(t, 3, deletes.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.clock.Sleeps()[:2])
	assert.Equal(t, StateRolledBack, m.State())
	assert.ErrorIs(t, m.Err(), transport.ErrRetriesExhausted)

	state := h.engine.State()
	assert.Equal(t, before.Lines, state.Cart.Lines)
	assert.Equal(t, 2, state.CartCount)
	assert.Error(t, state.Err)

	cached, hit := h.cache().Read(context.Background())
	require.True(t, hit)
	assert.Len(t, cached.Items, 2, "restored snapshot is persisted again")

	failures := h.notify.failures()
	require.Len(t, failures, 1)
	assert.Equal(t, MsgRemoveFailed, failures[0].msg)
}

func TestRemoveProvisionalLineWaitsForAdd(t *testing.T) {
	api := newFakeAPI(mug)
	api.addGate = make(chan struct{})
	h := newHarness(t, api)
	ctx := context.Background()

	add, err := h.engine.AddToCart(ctx, "p1", 1)
	require.NoError(t, err)
	line, ok := h.engine.State().Cart.LineByProduct("p1")
	require.True(t, ok)

	remove, err := h.engine.RemoveItem(ctx, line.ID())
	require.NoError(t, err)
	assert.Equal(t, 0, h.engine.CartCount())
	assert.Empty(t, api.removes(), "provisional ids are never sent")

	close(api.addGate)
	waitSettled(t, add)
	waitSettled(t, remove)
	h.engine.Close()

	assert.Equal(t, []string{"1"}, api.removes())
	assert.Equal(t, StateConfirmed, remove.State())
	assert.Empty(t, h.engine.State().Cart.Lines)
}

func TestRemoveItemUnknownLine(t *testing.T) {
	h := newHarness(t, newFakeAPI(mug))
	_, err := h.engine.RemoveItem(context.Background(), "404")
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestRemoveItemCancelsPendingQuantityChange(t *testing.T) {
	api := newFakeAPI(mug)
	lineID := api.seed("p1", 2)
	h := newHarness(t, api)
	ctx := context.Background()
	require.NoError(t, h.engine.Refresh(ctx))

	update, err := h.engine.UpdateQuantity(ctx, "p1", 1)
	require.NoError(t, err)
	remove, err := h.engine.RemoveItem(ctx, lineID)
	require.NoError(t, err)

	h.clock.Advance(time.Second)
	waitSettled(t, update)
	waitSettled(t, remove)
	h.engine.Close()

	assert.Empty(t, api.adds())
	assert.Equal(t, []string{lineID}, api.removes())
	assert.Empty(t, h.engine.State().Cart.Lines)
}

func TestCacheSurvivesReload(t *testing.T) {
	api := newFakeAPI(mug, vase)
	api.seed("p1", 2)
	api.seed("p2", 1)
	h := newHarness(t, api)
	require.NoError(t, h.engine.Refresh(context.Background()))
	h.engine.Close()

	offline := newFakeAPI()
	offline.getErr = errors.New("network unreachable")
	reloaded := h.newEngine(t, offline)

	state := reloaded.State()
	require.NotNil(t, state.Cart, "cached view is available before any network call")
	assert.Len(t, state.Cart.Lines, 2)
	assert.Equal(t, 2, state.CartCount)
	assert.Equal(t, "65.00", state.Cart.Total().StringFixed(2))

	require.Error(t, reloaded.Refresh(context.Background()))
	assert.Len(t, reloaded.State().Cart.Lines, 2, "failed refresh falls back to the cache")
	reloaded.Close()

	h.clock.Advance(5 * time.Minute)
	expired := h.newEngine(t, offline)
	assert.Nil(t, expired.State().Cart)
	expired.Close()
}

func TestClearCartCacheForcesMiss(t *testing.T) {
	api := newFakeAPI(mug)
	api.seed("p1", 1)
	h := newHarness(t, api)
	ctx := context.Background()
	require.NoError(t, h.engine.Refresh(ctx))

	_, hit := h.cache().Read(ctx)
	require.True(t, hit)

	api.set(func(f *fakeAPI) { f.getErr = errors.New("checkout in progress") })
	h.engine.ClearCartCache(ctx)
	h.engine.Close()

	_, hit = h.cache().Read(ctx)
	assert.False(t, hit)
}

func TestClearCartCacheRefetchesEmptyCart(t *testing.T) {
	api := newFakeAPI(mug)
	api.seed("p1", 1)
	h := newHarness(t, api)
	ctx := context.Background()
	require.NoError(t, h.engine.Refresh(ctx))

	api.set(func(f *fakeAPI) { f.lines = nil })
	h.engine.ClearCartCache(ctx)
	h.engine.Close()

	state := h.engine.State()
	assert.Empty(t, state.Cart.Lines)
	assert.Equal(t, 0, state.CartCount)
}

func TestSubscribeReceivesStateChanges(t *testing.T) {
	api := newFakeAPI(mug)
	h := newHarness(t, api)

	var mu sync.Mutex
	var counts []int
	unsubscribe := h.engine.Subscribe(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		counts = append(counts, s.CartCount)
	})

	m, err := h.engine.AddToCart(context.Background(), "p1", 1)
	require.NoError(t, err)
	waitSettled(t, m)
	h.engine.Close()
	unsubscribe()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, counts)
	assert.Equal(t, 1, counts[0])
	assert.Equal(t, 1, counts[len(counts)-1])
}
