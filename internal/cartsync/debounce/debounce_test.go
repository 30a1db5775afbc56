package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/reelcraft/reelcraft/internal/testutil"

	"github.com/stretchr/testify/assert"
)

type recorder[T any] struct {
	mu    sync.Mutex
	calls []T
}

func (r *recorder[T]) record(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, v)
}

func (r *recorder[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.calls...)
}

func newClock() *testutil.FakeClock {
	return testutil.NewFakeClock(time.Unix(1760000000, 0))
}

func TestDebouncerDeliversLastArgumentAfterQuietWindow(t *testing.T) {
	clk := newClock()
	rec := &recorder[int]{}
	d := New(500*time.Millisecond, rec.record, WithClock(clk))

	for i := 1; i <= 5; i++ {
		d.Call(i)
		clk.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, rec.snapshot(), "window restarts on every call")

	clk.Advance(399 * time.Millisecond)
	assert.Empty(t, rec.snapshot())

	clk.Advance(time.Millisecond)
	assert.Equal(t, []int{5}, rec.snapshot())
	assert.False(t, d.Pending())
	assert.Equal(t, 0, clk.PendingTimers())
}

func TestDebouncerSeparateWindowsFireSeparately(t *testing.T) {
	clk := newClock()
	rec := &recorder[string]{}
	d := New(0, rec.record, WithClock(clk))

	d.Call("a")
	clk.Advance(DefaultDelay)
	d.Call("b")
	clk.Advance(DefaultDelay)

	assert.Equal(t, []string{"a", "b"}, rec.snapshot())
}

func TestDebouncerFlushAndCancel(t *testing.T) {
	clk := newClock()
	rec := &recorder[int]{}
	d := New(time.Second, rec.record, WithClock(clk))

	d.Call(7)
	assert.True(t, d.Flush())
	assert.Equal(t, []int{7}, rec.snapshot())

	clk.Advance(time.Second)
	assert.Equal(t, []int{7}, rec.snapshot(), "flushed call must not fire again")
	assert.False(t, d.Flush())

	d.Call(8)
	assert.True(t, d.Cancel())
	clk.Advance(time.Second)
	assert.Equal(t, []int{7}, rec.snapshot())
	assert.False(t, d.Cancel())
}

func TestKeyedDebouncesPerKey(t *testing.T) {
	type call struct {
		key   string
		delta int
	}
	clk := newClock()
	rec := &recorder[call]{}
	k := NewKeyed(500*time.Millisecond, func(key string, delta int) {
		rec.record(call{key, delta})
	}, WithClock(clk))

	k.Call("mug", 1)
	k.Call("vase", 2)
	clk.Advance(300 * time.Millisecond)
	k.Call("mug", 3)
	assert.True(t, k.Pending("mug"))

	clk.Advance(200 * time.Millisecond)
	assert.Equal(t, []call{{"vase", 2}}, rec.snapshot())

	clk.Advance(300 * time.Millisecond)
	assert.Equal(t, []call{{"vase", 2}, {"mug", 3}}, rec.snapshot())
	assert.False(t, k.Pending("mug"))
	assert.False(t, k.Pending("unknown"))
}

func TestKeyedFlushAll(t *testing.T) {
	clk := newClock()
	rec := &recorder[string]{}
	k := NewKeyed(time.Second, func(key string, _ struct{}) { rec.record(key) }, WithClock(clk))

	k.Call("a", struct{}{})
	k.Call("b", struct{}{})
	assert.True(t, k.Cancel("b"))

	assert.Equal(t, 1, k.FlushAll())
	assert.Equal(t, []string{"a"}, rec.snapshot())
	assert.Equal(t, 0, k.FlushAll())
}
