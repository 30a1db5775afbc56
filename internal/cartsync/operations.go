package cartsync

import (
	"context"
	"fmt"

	"github.com/reelcraft/reelcraft/internal/cartapi"
)

// AddToCart 加购。quantity ≤ 0 时按 1 处理；未登录时跳转登录且不做任何变更。
func (e *Engine) AddToCart(ctx context.Context, productID string, quantity int) (*Mutation, error) {
	if quantity <= 0 {
		quantity = 1
	}
	if !e.session.Active() {
		e.nav.RedirectToSignIn()
		return nil, ErrUnauthenticated
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	m := newMutation(KindAdd, productID, quantity)
	m.before = e.view.Clone()
	count := e.cartCountLocked()
	persist := false
	if i := e.view.indexOfProduct(productID); i >= 0 {
		e.view.Lines[i].Quantity += quantity
		m.LineID = e.view.Lines[i].ID()
		persist = !e.view.Lines[i].IsProvisional()
	} else {
		count++
		if product, ok := e.products.Lookup(productID); ok {
			if product.ID == "" {
				product.ID = productID
			}
			ref := NewProvisional(productID)
			e.view.Lines = append(e.view.Lines, Line{Ref: ref, Quantity: quantity, Product: product})
			m.LineID = ref.LocalID
		} else {
			e.log.Debugw("cart_add_product_lookup_miss", "product_id", productID)
		}
	}
	e.trackLocked(m, count)
	e.addsInFlight++
	e.acquireGateLocked(productID)
	var snap snapshot
	if persist {
		snap = e.snapshotLocked()
	}
	e.wg.Add(1)
	e.mu.Unlock()

	e.persist(ctx, snap)
	e.notify.Success(MsgAdded)
	e.emit()
	go e.runAdd(m)
	return m, nil
}

func (e *Engine) runAdd(m *Mutation) {
	defer e.wg.Done()
	ctx := context.Background()

	item, err := e.api.AddItem(ctx, m.ProductID, m.Quantity)

	e.mu.Lock()
	e.addsInFlight--
	e.untrackLocked(m)
	var snap snapshot
	if err == nil {
		snap = e.applyAddResultLocked(m, item)
	}
	e.releaseGateLocked(m.ProductID)
	e.mu.Unlock()
	e.persist(ctx, snap)
	e.emit()

	if err == nil {
		if rerr := e.fetchAndApply(ctx); rerr != nil {
			e.log.Warnw("cart_reconcile_failed", "mutation_id", m.ID, "error", rerr)
		}
		e.confirm(m)
		return
	}

	if rerr := e.fetchAndApply(ctx); rerr != nil {
		e.restoreBefore(ctx, m)
	}
	e.rollBack(m, err, MsgAddFailed)
}

// applyAddResultLocked 用服务端返回的行替换本地行，叠加服务端尚未体现的本地变更
func (e *Engine) applyAddResultLocked(m *Mutation, item cartapi.CartItem) snapshot {
	// 结果之前发出的拉取请求已过时
	e.appliedSeq = e.fetchSeq
	if e.removing[m.ProductID] > 0 || item.ID == "" {
		return snapshot{}
	}
	quantity := item.Quantity + e.localAdjustLocked(m.ProductID)

	i := e.view.indexOfProduct(m.ProductID)
	if quantity <= 0 {
		if i >= 0 {
			e.view.removeAt(i)
		}
		return e.snapshotLocked()
	}
	line := Line{Ref: Confirmed{ServerID: item.ID}, Quantity: quantity, Product: ProductFromAPI(item.Product)}
	if line.Product.ID == "" && i >= 0 {
		line.Product = e.view.Lines[i].Product
	}
	if i >= 0 {
		e.view.Lines[i] = line
	} else {
		e.view.Lines = append(e.view.Lines, line)
	}
	return e.snapshotLocked()
}

// restoreBefore 服务端不可达时回到变更前的视图，并覆盖已写入的乐观快照
func (e *Engine) restoreBefore(ctx context.Context, m *Mutation) {
	e.mu.Lock()
	e.view = m.before.Clone()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.persist(ctx, snap)
}

// UpdateQuantity 调整数量；结果 ≤ 0 时删除该行。远程调用按商品防抖，发送窗口内的净增量。
func (e *Engine) UpdateQuantity(ctx context.Context, productID string, delta int) (*Mutation, error) {
	if !e.session.Active() {
		return nil, ErrUnauthenticated
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	i := e.view.indexOfProduct(productID)
	if i < 0 {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: product %s", ErrLineNotFound, productID)
	}
	m := newMutation(KindUpdate, productID, delta)
	m.before = e.view.Clone()
	m.LineID = e.view.Lines[i].ID()
	if delta == 0 {
		e.mu.Unlock()
		m.settle(StateConfirmed, nil)
		return m, nil
	}

	count := e.cartCountLocked()
	if q := e.view.Lines[i].Quantity + delta; q <= 0 {
		e.view.removeAt(i)
		count--
	} else {
		e.view.Lines[i].Quantity = q
	}
	e.trackLocked(m, count)
	acc := e.unsent[productID]
	if acc == nil {
		acc = &unsentDelta{}
		e.unsent[productID] = acc
		e.wg.Add(1)
	}
	acc.delta += delta
	acc.mutations = append(acc.mutations, m)
	net := acc.delta
	snap := e.snapshotLocked()
	e.mu.Unlock()

	e.persist(ctx, snap)
	e.emit()
	e.debouncer.Call(productID, net)
	return m, nil
}

// flushDelta 防抖窗口结束，取走累计增量后台发送
func (e *Engine) flushDelta(productID string, _ int) {
	e.mu.Lock()
	acc := e.unsent[productID]
	delete(e.unsent, productID)
	if acc != nil {
		e.inflight[productID] += acc.delta
	}
	e.mu.Unlock()
	if acc == nil {
		return
	}
	go e.sendDelta(productID, acc)
}

func (e *Engine) sendDelta(productID string, acc *unsentDelta) {
	defer e.wg.Done()
	ctx := context.Background()

	var err error
	if acc.delta != 0 {
		// 先等同商品的加购落库，避免负增量先于加购到达
		if err = e.waitGate(ctx, productID); err == nil {
			_, err = e.api.AddItem(ctx, productID, acc.delta)
		}
	}

	e.mu.Lock()
	if e.inflight[productID] -= acc.delta; e.inflight[productID] == 0 {
		delete(e.inflight, productID)
	}
	for _, m := range acc.mutations {
		e.untrackLocked(m)
	}
	e.mu.Unlock()

	if acc.delta == 0 {
		for _, m := range acc.mutations {
			e.confirm(m)
		}
		return
	}
	if err == nil {
		if rerr := e.fetchAndApply(ctx); rerr != nil {
			e.log.Warnw("cart_reconcile_failed", "product_id", productID, "error", rerr)
		}
		for _, m := range acc.mutations {
			e.confirm(m)
		}
		return
	}

	if rerr := e.fetchAndApply(ctx); rerr != nil {
		if cached, ok := e.cache.Read(ctx); ok {
			e.mu.Lock()
			e.view = e.overlayLocked(ViewFromAPI(cached))
			e.mu.Unlock()
		}
	}
	for i, m := range acc.mutations {
		msg := ""
		if i == len(acc.mutations)-1 {
			msg = MsgUpdateFailed
		}
		e.rollBack(m, err, msg)
	}
}

// RemoveItem 删除行；lineID 可以是临时 ID，此时等加购完成后按商品定位服务端行
func (e *Engine) RemoveItem(ctx context.Context, lineID string) (*Mutation, error) {
	if !e.session.Active() {
		return nil, ErrUnauthenticated
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	i := e.view.indexOfID(lineID)
	if i < 0 {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: line %s", ErrLineNotFound, lineID)
	}
	line := e.view.Lines[i]
	m := newMutation(KindRemove, line.ProductID(), line.Quantity)
	m.LineID = lineID
	m.before = e.view.Clone()

	e.view.removeAt(i)
	e.trackLocked(m, e.cartCountLocked()-1)
	e.removing[m.ProductID]++
	e.dropUnsentLocked(m.ProductID)
	snap := e.snapshotLocked()
	e.wg.Add(1)
	e.mu.Unlock()

	e.persist(ctx, snap)
	e.notify.Success(MsgRemoved)
	e.emit()
	go e.runRemove(m, line.Ref)
	return m, nil
}

// dropUnsentLocked 行被删除后，窗口内未发送的增量不再发送
func (e *Engine) dropUnsentLocked(productID string) {
	acc := e.unsent[productID]
	if acc == nil {
		return
	}
	delete(e.unsent, productID)
	e.debouncer.Cancel(productID)
	for _, m := range acc.mutations {
		e.untrackLocked(m)
		m.settle(StateConfirmed, nil)
	}
	e.wg.Done()
}

func (e *Engine) runRemove(m *Mutation, ref LineRef) {
	defer e.wg.Done()
	ctx := context.Background()

	err := e.deleteRemote(ctx, ref)

	e.mu.Lock()
	e.untrackLocked(m)
	if e.removing[m.ProductID]--; e.removing[m.ProductID] <= 0 {
		delete(e.removing, m.ProductID)
	}
	e.mu.Unlock()

	if err == nil {
		if rerr := e.fetchAndApply(ctx); rerr != nil {
			e.log.Warnw("cart_reconcile_failed", "mutation_id", m.ID, "error", rerr)
		}
		e.confirm(m)
		return
	}

	if rerr := e.fetchAndApply(ctx); rerr != nil {
		e.restoreBefore(ctx, m)
	}
	e.rollBack(m, err, MsgRemoveFailed)
}

func (e *Engine) deleteRemote(ctx context.Context, ref LineRef) error {
	switch r := ref.(type) {
	case Confirmed:
		_, err := e.api.RemoveItem(ctx, r.ServerID)
		return err
	case Provisional:
		if err := e.waitGate(ctx, r.ProductID); err != nil {
			return err
		}
		cart, err := e.api.GetCart(ctx)
		if err != nil {
			return err
		}
		for _, item := range cart.Items {
			if item.Product.ID == r.ProductID {
				_, err := e.api.RemoveItem(ctx, item.ID)
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported line ref %T", ref)
	}
}

func (e *Engine) confirm(m *Mutation) {
	if m.settle(StateConfirmed, nil) {
		e.log.Debugw("cart_mutation_confirmed",
			"mutation_id", m.ID,
			"kind", m.Kind.String(),
			"product_id", m.ProductID,
		)
	}
	e.emit()
}

// rollBack 记录错误并结算为回滚；msg 为空时不提示
func (e *Engine) rollBack(m *Mutation, cause error, msg string) {
	e.setErr(cause)
	if m.settle(StateRolledBack, cause) {
		e.log.Warnw("cart_mutation_rolled_back",
			"mutation_id", m.ID,
			"kind", m.Kind.String(),
			"product_id", m.ProductID,
			"error", cause,
		)
	}
	if msg != "" {
		e.notify.Failure(msg, cause)
	}
	e.emit()
}
