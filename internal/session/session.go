// Package session 客户端登录态：保存服务端签发的 Token，按 exp 判断是否仍然有效。
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/reelcraft/reelcraft/internal/cartsync/localcache"
	"github.com/reelcraft/reelcraft/internal/cartsync/transport"
	"github.com/reelcraft/reelcraft/internal/clock"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const storageKey = "session"

// ErrMalformedToken Token 无法解析
var ErrMalformedToken = errors.New("malformed session token")

// Credentials 持久化的登录凭证
type Credentials struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// tokenClaims 只读取需要的字段，签名由服务端校验
type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Store 登录态存储，同时实现 cartsync.Session 与 transport.TokenSource
type Store struct {
	storage localcache.Storage
	clock   clock.Clock
	log     *zap.SugaredLogger

	mu      sync.Mutex
	loaded  bool
	current *Credentials
}

// Option 存储选项
type Option func(*Store)

// WithClock 注入时间来源
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = clock.OrReal(c) }
}

// WithLogger 注入日志
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// NewStore 创建登录态存储
func NewStore(storage localcache.Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		clock:   clock.Real(),
		log:     zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromToken 从 Token 解析凭证（不校验签名）
func FromToken(token string) (Credentials, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Credentials{}, transport.ErrNoToken
	}
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	cred := Credentials{Token: token, UserID: claims.Subject, Email: claims.Email}
	if claims.ExpiresAt != nil {
		cred.ExpiresAt = claims.ExpiresAt.Time
	}
	return cred, nil
}

// Save 保存凭证；ExpiresAt 为空时取 Token 的 exp
func (s *Store) Save(ctx context.Context, token string) (Credentials, error) {
	cred, err := FromToken(token)
	if err != nil {
		return Credentials{}, err
	}
	raw, err := json.Marshal(cred)
	if err != nil {
		return Credentials{}, err
	}
	var ttl time.Duration
	if !cred.ExpiresAt.IsZero() {
		ttl = cred.ExpiresAt.Sub(s.clock.Now())
	}
	if err := s.storage.Set(ctx, storageKey, raw, ttl); err != nil {
		return Credentials{}, fmt.Errorf("save session failed: %w", err)
	}

	s.mu.Lock()
	s.current = &cred
	s.loaded = true
	s.mu.Unlock()
	s.log.Debugw("session_saved", "user_id", cred.UserID, "expires_at", cred.ExpiresAt)
	return cred, nil
}

// Clear 删除本地凭证
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.loaded = true
	s.mu.Unlock()
	if err := s.storage.Remove(ctx, storageKey); err != nil {
		return fmt.Errorf("clear session failed: %w", err)
	}
	return nil
}

// Current 返回仍然有效的凭证
func (s *Store) Current(ctx context.Context) (Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.current = s.readLocked(ctx)
		s.loaded = true
	}
	if s.current == nil || s.expired(*s.current) {
		return Credentials{}, false
	}
	return *s.current, true
}

// Active 是否处于登录态
func (s *Store) Active() bool {
	_, ok := s.Current(context.Background())
	return ok
}

// Token 返回 Bearer token
func (s *Store) Token(ctx context.Context) (string, error) {
	cred, ok := s.Current(ctx)
	if !ok {
		return "", transport.ErrNoToken
	}
	return cred.Token, nil
}

func (s *Store) readLocked(ctx context.Context) *Credentials {
	raw, err := s.storage.Get(ctx, storageKey)
	if err != nil {
		if !errors.Is(err, localcache.ErrNotFound) {
			s.log.Warnw("session_read_failed", "error", err)
		}
		return nil
	}
	var cred Credentials
	if err := json.Unmarshal(raw, &cred); err != nil || cred.Token == "" {
		s.log.Warnw("session_corrupted", "error", err)
		_ = s.storage.Remove(ctx, storageKey)
		return nil
	}
	return &cred
}

func (s *Store) expired(cred Credentials) bool {
	if cred.ExpiresAt.IsZero() {
		return false
	}
	return !s.clock.Now().Before(cred.ExpiresAt)
}
