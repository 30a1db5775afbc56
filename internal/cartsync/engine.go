// Package cartsync 客户端购物车同步引擎：本地快照优先、乐观更新、失败重试与回滚。
package cartsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/reelcraft/reelcraft/internal/cartapi"
	"github.com/reelcraft/reelcraft/internal/cartsync/debounce"
	"github.com/reelcraft/reelcraft/internal/cartsync/localcache"
	"github.com/reelcraft/reelcraft/internal/clock"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// 用户提示文案
const (
	MsgAdded         = "Added to cart"
	MsgAddFailed     = "Failed to add item to cart"
	MsgUpdateFailed  = "Failed to update quantity"
	MsgRemoved       = "Removed from cart"
	MsgRemoveFailed  = "Failed to remove item from cart"
	refreshFlightKey = "cart"
)

// Config 引擎依赖，API 与 Session 必填
type Config struct {
	API           CartAPI
	Session       Session
	Navigator     Navigator
	Notifier      Notifier
	Products      ProductLookup
	Cache         *localcache.Cache[cartapi.Cart]
	Clock         clock.Clock
	Logger        *zap.SugaredLogger
	DebounceDelay time.Duration
}

// State 对外暴露的派生状态
type State struct {
	// Cart 尚未加载（无快照且未拉取成功）时为 nil
	Cart           *View
	CartCount      int
	IsLoading      bool
	IsAddingToCart bool
	Err            error
}

type productGate struct {
	pending int
	idle    chan struct{}
}

// unsentDelta 防抖窗口内累计的数量增量
type unsentDelta struct {
	delta     int
	mutations []*Mutation
}

// snapshot 待写入本地快照的内容，seq 保证写入顺序与视图变更顺序一致
type snapshot struct {
	seq  uint64
	cart cartapi.Cart
}

type listener struct {
	id int
	fn func(State)
}

// Engine 会话级购物车同步引擎
type Engine struct {
	api       CartAPI
	session   Session
	nav       Navigator
	notify    Notifier
	products  ProductLookup
	cache     *localcache.Cache[cartapi.Cart]
	log       *zap.SugaredLogger
	debouncer *debounce.Keyed[string, int]
	refreshes singleflight.Group
	wg        sync.WaitGroup

	mu            sync.Mutex
	view          View
	loaded        bool
	err           error
	loading       int
	addsInFlight  int
	pending       map[string]*Mutation
	countOverride int
	hasOverride   bool
	gates         map[string]*productGate
	removing      map[string]int
	unsent        map[string]*unsentDelta
	inflight      map[string]int
	fetchSeq      uint64
	appliedSeq    uint64
	persistSeq    uint64
	listeners     []listener
	nextListener  int
	closed        bool

	// 快照写入在引擎锁外进行
	persistMu    sync.Mutex
	persistedSeq uint64
}

// New 创建引擎，并用本地快照预填视图
func New(cfg Config) (*Engine, error) {
	if cfg.API == nil {
		return nil, errors.New("cart api is required")
	}
	if cfg.Session == nil {
		return nil, errors.New("session is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Navigator == nil {
		cfg.Navigator = noopNavigator{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{Log: cfg.Logger}
	}
	if cfg.Products == nil {
		cfg.Products = emptyLookup{}
	}

	e := &Engine{
		api:      cfg.API,
		session:  cfg.Session,
		nav:      cfg.Navigator,
		notify:   cfg.Notifier,
		products: cfg.Products,
		cache:    cfg.Cache,
		log:      cfg.Logger,
		pending:  make(map[string]*Mutation),
		gates:    make(map[string]*productGate),
		removing: make(map[string]int),
		unsent:   make(map[string]*unsentDelta),
		inflight: make(map[string]int),
	}
	e.debouncer = debounce.NewKeyed(cfg.DebounceDelay, e.flushDelta, debounce.WithClock(clock.OrReal(cfg.Clock)))

	if cached, ok := e.cache.Read(context.Background()); ok {
		e.view = ViewFromAPI(cached)
		e.loaded = true
		e.log.Debugw("cart_primed_from_cache", "lines", e.view.Len())
	}
	return e, nil
}

// State 当前状态快照
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// CartCount 角标数量：有未结算变更时为乐观值
func (e *Engine) CartCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cartCountLocked()
}

// Subscribe 订阅状态变化，返回取消函数
func (e *Engine) Subscribe(fn func(State)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextListener++
	id := e.nextListener
	e.listeners = append(e.listeners, listener{id: id, fn: fn})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// Refresh 拉取服务端购物车并整体替换视图；失败时回退到本地快照
func (e *Engine) Refresh(ctx context.Context) error {
	if !e.session.Active() {
		return ErrUnauthenticated
	}
	e.mu.Lock()
	e.loading++
	e.mu.Unlock()
	e.emit()

	_, err, shared := e.refreshes.Do(refreshFlightKey, func() (any, error) {
		return nil, e.fetchAndApply(ctx)
	})
	if err != nil {
		e.log.Warnw("cart_refresh_failed", "error", err, "shared", shared)
		e.fallbackToCache(ctx, err)
	}

	e.mu.Lock()
	e.loading--
	e.mu.Unlock()
	e.emit()
	return err
}

// ClearCartCache 删除本地快照（结账后调用），并在后台重新拉取
func (e *Engine) ClearCartCache(ctx context.Context) {
	e.mu.Lock()
	e.persistSeq++
	seq := e.persistSeq
	e.mu.Unlock()

	e.persistMu.Lock()
	e.persistedSeq = max(e.persistedSeq, seq)
	e.cache.Clear(ctx)
	e.persistMu.Unlock()
	e.log.Infow("cart_cache_cleared")

	e.mu.Lock()
	if e.closed || !e.session.Active() {
		e.mu.Unlock()
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		_ = e.Refresh(context.Background())
	}()
}

// Close 立即发送防抖中的变更并等待所有后台请求结算
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	if n := e.debouncer.FlushAll(); n > 0 {
		e.log.Debugw("cart_debounce_flushed", "count", n)
	}
	e.wg.Wait()
}

func (e *Engine) stateLocked() State {
	var cart *View
	if e.loaded {
		v := e.view.Clone()
		cart = &v
	}
	return State{
		Cart:           cart,
		CartCount:      e.cartCountLocked(),
		IsLoading:      e.loading > 0,
		IsAddingToCart: e.addsInFlight > 0,
		Err:            e.err,
	}
}

func (e *Engine) cartCountLocked() int {
	if e.hasOverride {
		return max(e.countOverride, 0)
	}
	return e.view.Len()
}

func (e *Engine) emit() {
	e.mu.Lock()
	state := e.stateLocked()
	fns := make([]func(State), 0, len(e.listeners))
	for _, l := range e.listeners {
		fns = append(fns, l.fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func (e *Engine) trackLocked(m *Mutation, count int) {
	e.pending[m.ID] = m
	e.countOverride = count
	e.hasOverride = true
	e.loaded = true
}

func (e *Engine) untrackLocked(m *Mutation) {
	delete(e.pending, m.ID)
	if len(e.pending) == 0 {
		e.hasOverride = false
	}
}

// snapshotLocked 取当前视图的可持久化部分，写入由 persist 在锁外完成
func (e *Engine) snapshotLocked() snapshot {
	return e.snapshotOfLocked(e.view)
}

func (e *Engine) snapshotOfLocked(v View) snapshot {
	e.persistSeq++
	return snapshot{seq: e.persistSeq, cart: v.Persistable()}
}

// persist 写入本地快照；比已写入版本旧的快照直接丢弃
func (e *Engine) persist(ctx context.Context, s snapshot) {
	if s.seq == 0 {
		return
	}
	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	if s.seq <= e.persistedSeq {
		return
	}
	e.persistedSeq = s.seq
	e.cache.Write(ctx, s.cart)
}

func (e *Engine) acquireGateLocked(productID string) {
	g := e.gates[productID]
	if g == nil {
		g = &productGate{idle: make(chan struct{})}
		e.gates[productID] = g
	}
	g.pending++
}

func (e *Engine) releaseGateLocked(productID string) {
	g := e.gates[productID]
	if g == nil {
		return
	}
	g.pending--
	if g.pending <= 0 {
		close(g.idle)
		delete(e.gates, productID)
	}
}

// waitGate 等待该商品所有进行中的加购完成
func (e *Engine) waitGate(ctx context.Context, productID string) error {
	e.mu.Lock()
	g := e.gates[productID]
	e.mu.Unlock()
	if g == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-g.idle:
		return nil
	}
}

// fetchAndApply 拉取并整体替换视图；只应用最新发出的请求结果
func (e *Engine) fetchAndApply(ctx context.Context) error {
	e.mu.Lock()
	e.fetchSeq++
	seq := e.fetchSeq
	e.mu.Unlock()

	cart, err := e.api.GetCart(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if applied := e.appliedSeq; seq <= applied {
		e.mu.Unlock()
		e.log.Debugw("cart_stale_fetch_dropped", "seq", seq, "applied_seq", applied)
		return nil
	}
	e.appliedSeq = seq
	server := ViewFromAPI(cart)
	e.view = e.overlayLocked(server)
	e.loaded = true
	e.err = nil
	snap := e.snapshotOfLocked(server)
	e.mu.Unlock()

	e.persist(ctx, snap)
	e.emit()
	return nil
}

// overlayLocked 在服务端视图上叠加尚未被服务端看到的本地变更
func (e *Engine) overlayLocked(server View) View {
	out := server.Clone()
	for productID := range e.removing {
		out.removeProduct(productID)
	}
	for i := len(out.Lines) - 1; i >= 0; i-- {
		adjust := e.localAdjustLocked(out.Lines[i].ProductID())
		if adjust == 0 {
			continue
		}
		if q := out.Lines[i].Quantity + adjust; q <= 0 {
			out.removeAt(i)
		} else {
			out.Lines[i].Quantity = q
		}
	}
	for _, line := range e.view.Lines {
		ref, ok := line.Ref.(Provisional)
		if !ok || e.gates[ref.ProductID] == nil || e.removing[ref.ProductID] > 0 {
			continue
		}
		if out.indexOfProduct(ref.ProductID) >= 0 {
			continue
		}
		out.Lines = append(out.Lines, line)
	}
	return out
}

// localAdjustLocked 服务端尚未体现的数量变化：在途加购、已发出和窗口内的增量
func (e *Engine) localAdjustLocked(productID string) int {
	adjust := e.inflight[productID]
	if acc := e.unsent[productID]; acc != nil {
		adjust += acc.delta
	}
	for _, m := range e.pending {
		if m.Kind == KindAdd && m.ProductID == productID {
			adjust += m.Quantity
		}
	}
	return adjust
}

func (e *Engine) fallbackToCache(ctx context.Context, cause error) {
	cached, ok := e.cache.Read(ctx)
	e.mu.Lock()
	e.err = cause
	if ok {
		e.view = e.overlayLocked(ViewFromAPI(cached))
		e.loaded = true
	}
	e.mu.Unlock()
}

func (e *Engine) setErr(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}
