package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/reelcraft/reelcraft/internal/clock"
)

// FakeClock 测试用手动时钟，定时器只在 Advance 中按到期顺序触发，Sleep 只记录时长不阻塞
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int64
	timers []*fakeTimer
	sleeps []time.Duration
}

type fakeTimer struct {
	clock   *FakeClock
	seq     int64
	when    time.Time
	fn      func()
	stopped bool
	fired   bool
}

var _ clock.Clock = (*FakeClock)(nil)

// NewFakeClock 以 start 为起点创建时钟
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now 当前时间
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc 推进超过 d 后执行 fn
func (c *FakeClock) AfterFunc(d time.Duration, fn func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{clock: c, seq: c.seq, when: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Sleep 记录等待时长，ctx 已结束时返回其错误
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return nil
}

// Sleeps 已记录的等待时长
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// PendingTimers 未触发且未停止的定时器数量
func (c *FakeClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance 推进 d 并在调用方 goroutine 上触发到期定时器
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		due := c.nextDueLocked(target)
		if due == nil {
			c.now = target
			c.compactLocked()
			c.mu.Unlock()
			return
		}
		c.now = due.when
		due.fired = true
		fn := due.fn
		c.mu.Unlock()

		fn()
	}
}

func (c *FakeClock) nextDueLocked(target time.Time) *fakeTimer {
	var candidates []*fakeTimer
	for _, t := range c.timers {
		if t.stopped || t.fired || t.when.After(target) {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].when.Equal(candidates[j].when) {
			return candidates[i].seq < candidates[j].seq
		}
		return candidates[i].when.Before(candidates[j].when)
	})
	return candidates[0]
}

func (c *FakeClock) compactLocked() {
	kept := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			kept = append(kept, t)
		}
	}
	c.timers = kept
}

// Stop 取消定时器，返回取消前是否仍在等待
func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
