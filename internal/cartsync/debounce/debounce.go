// Package debounce 合并短时间内的连续调用，只投递静默窗口结束前的最后一个参数。
package debounce

import (
	"sync"
	"time"

	"github.com/reelcraft/reelcraft/internal/clock"
)

// DefaultDelay 默认静默窗口
const DefaultDelay = 500 * time.Millisecond

// Option 防抖选项
type Option func(*config)

type config struct {
	clock clock.Clock
}

// WithClock 设置定时器来源
func WithClock(c clock.Clock) Option {
	return func(cfg *config) {
		cfg.clock = c
	}
}

// Debouncer 单路防抖
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(T)
	clock   clock.Clock
	timer   clock.Timer
	pending bool
	arg     T
	gen     uint64
}

// New 创建防抖器，fn 在定时器 goroutine 上执行
func New[T any](delay time.Duration, fn func(T), opts ...Option) *Debouncer[T] {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{delay: delay, fn: fn, clock: clock.OrReal(cfg.clock)}
}

// Call 取消上一次未触发的调用并重新计时
func (d *Debouncer[T]) Call(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.arg = arg
	d.pending = true
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Pending 是否有尚未触发的调用
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush 立即触发未完成的调用，返回是否触发
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	arg, ok := d.takeLocked()
	d.mu.Unlock()
	if ok {
		d.fn(arg)
	}
	return ok
}

// Cancel 丢弃未完成的调用，返回是否存在
func (d *Debouncer[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.takeLocked()
	return ok
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	arg, ok := d.takeLocked()
	d.mu.Unlock()
	if ok {
		d.fn(arg)
	}
}

func (d *Debouncer[T]) takeLocked() (T, bool) {
	var zero T
	if !d.pending {
		return zero, false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	arg := d.arg
	d.arg = zero
	d.pending = false
	d.gen++
	return arg, true
}

// Keyed 按 key 维护独立的防抖器
type Keyed[K comparable, T any] struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func(K, T)
	opts  []Option
	items map[K]*Debouncer[T]
}

// NewKeyed 创建分 key 防抖器
func NewKeyed[K comparable, T any](delay time.Duration, fn func(K, T), opts ...Option) *Keyed[K, T] {
	return &Keyed[K, T]{delay: delay, fn: fn, opts: opts, items: make(map[K]*Debouncer[T])}
}

// Call 针对 key 调用
func (k *Keyed[K, T]) Call(key K, arg T) {
	k.get(key).Call(arg)
}

// Pending 指定 key 是否有未触发调用
func (k *Keyed[K, T]) Pending(key K) bool {
	k.mu.Lock()
	d, ok := k.items[key]
	k.mu.Unlock()
	return ok && d.Pending()
}

// Cancel 丢弃指定 key 的未触发调用
func (k *Keyed[K, T]) Cancel(key K) bool {
	k.mu.Lock()
	d, ok := k.items[key]
	k.mu.Unlock()
	return ok && d.Cancel()
}

// FlushAll 立即触发所有未完成的调用，返回触发数量
func (k *Keyed[K, T]) FlushAll() int {
	k.mu.Lock()
	all := make([]*Debouncer[T], 0, len(k.items))
	for _, d := range k.items {
		all = append(all, d)
	}
	k.mu.Unlock()

	fired := 0
	for _, d := range all {
		if d.Flush() {
			fired++
		}
	}
	return fired
}

func (k *Keyed[K, T]) get(key K) *Debouncer[T] {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, ok := k.items[key]
	if !ok {
		d = New(k.delay, func(arg T) { k.fn(key, arg) }, k.opts...)
		k.items[key] = d
	}
	return d
}
