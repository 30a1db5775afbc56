// Package localcache 提供带 TTL 的本地持久化快照（刷新/重启后可立即读取）。
package localcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/reelcraft/reelcraft/internal/clock"

	"go.uber.org/zap"
)

// DefaultTTL 默认快照有效期
const DefaultTTL = 5 * time.Minute

// ErrNotFound 存储中不存在该 key
var ErrNotFound = errors.New("local cache entry not found")

// Storage 快照存储介质
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
}

// envelope 存储格式：数据 + 过期时间（Unix 毫秒）
type envelope[T any] struct {
	ExpiresAt int64 `json:"expires_at"`
	Data      T     `json:"data"`
}

// Cache 单 key 快照缓存
type Cache[T any] struct {
	storage Storage
	key     string
	ttl     time.Duration
	clock   clock.Clock
	log     *zap.SugaredLogger
}

// Option 缓存选项
type Option func(*options)

type options struct {
	ttl   time.Duration
	clock clock.Clock
	log   *zap.SugaredLogger
}

// WithTTL 设置有效期
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock 设置时间来源
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger 设置日志
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// New 创建快照缓存
func New[T any](storage Storage, key string, opts ...Option) *Cache[T] {
	o := options{ttl: DefaultTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop().Sugar()
	}
	return &Cache[T]{
		storage: storage,
		key:     key,
		ttl:     o.ttl,
		clock:   clock.OrReal(o.clock),
		log:     o.log,
	}
}

// TTL 返回有效期
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

// Read 读取未过期的快照；缺失、过期或损坏都视为未命中
func (c *Cache[T]) Read(ctx context.Context) (T, bool) {
	var zero T
	if c == nil || c.storage == nil {
		return zero, false
	}
	raw, err := c.storage.Get(ctx, c.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.log.Warnw("local_cache_read_failed", "key", c.key, "error", err)
		}
		return zero, false
	}

	var entry envelope[T]
	if err := json.Unmarshal(raw, &entry); err != nil || entry.ExpiresAt <= 0 {
		c.log.Warnw("local_cache_corrupted_discarded", "key", c.key, "error", err)
		c.remove(ctx)
		return zero, false
	}
	if c.clock.Now().UnixMilli() >= entry.ExpiresAt {
		c.log.Debugw("local_cache_expired", "key", c.key, "expires_at", entry.ExpiresAt)
		c.remove(ctx)
		return zero, false
	}
	return entry.Data, true
}

// Write 写入快照，有效期从写入时刻起算
func (c *Cache[T]) Write(ctx context.Context, value T) {
	if c == nil || c.storage == nil {
		return
	}
	entry := envelope[T]{
		ExpiresAt: c.clock.Now().Add(c.ttl).UnixMilli(),
		Data:      value,
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		c.log.Warnw("local_cache_marshal_failed", "key", c.key, "error", err)
		return
	}
	if err := c.storage.Set(ctx, c.key, payload, c.ttl); err != nil {
		c.log.Warnw("local_cache_write_failed", "key", c.key, "error", err)
	}
}

// Clear 立即删除快照
func (c *Cache[T]) Clear(ctx context.Context) {
	if c == nil || c.storage == nil {
		return
	}
	c.remove(ctx)
}

func (c *Cache[T]) remove(ctx context.Context) {
	if err := c.storage.Remove(ctx, c.key); err != nil && !errors.Is(err, ErrNotFound) {
		c.log.Warnw("local_cache_remove_failed", "key", c.key, "error", err)
	}
}
