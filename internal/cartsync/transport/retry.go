// Package transport 购物车远程调用：指数退避重试 + 购物车接口客户端。
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/reelcraft/reelcraft/internal/clock"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	// DefaultAttempts 默认总尝试次数
	DefaultAttempts = 3
	// DefaultInitialDelay 默认首次重试等待
	DefaultInitialDelay = time.Second
)

var (
	// ErrRetriesExhausted 重试次数耗尽
	ErrRetriesExhausted = errors.New("cart request retries exhausted")
	// ErrRejected 服务端明确拒绝（4xx），不重试
	ErrRejected = errors.New("cart request rejected")
)

// StatusError 非 2xx 响应
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cart request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("cart request failed with status %d: %s", e.StatusCode, e.Message)
}

// Is 4xx 视为 ErrRejected
func (e *StatusError) Is(target error) bool {
	return target == ErrRejected && IsClientError(e.StatusCode)
}

// IsClientError 判断 4xx
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}

// IsSuccess 判断 2xx
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

// Doer 执行 HTTP 请求
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc 函数适配 Doer
type DoerFunc func(req *http.Request) (*http.Response, error)

// Do 调用自身
func (f DoerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Policy 重试策略
type Policy struct {
	Attempts     int
	InitialDelay time.Duration
}

// DefaultPolicy 默认策略：3 次，1s 起步翻倍
func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, InitialDelay: DefaultInitialDelay}
}

func (p Policy) normalized() Policy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultAttempts
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	return p
}

// Delay 第 attempt 次失败后的等待时长（attempt 从 1 开始）
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.InitialDelay << (attempt - 1)
}

// RetryClient 对 5xx 与网络错误做指数退避重试
type RetryClient struct {
	doer   Doer
	policy Policy
	clock  clock.Clock
	log    *zap.SugaredLogger
}

// NewRetryClient 创建重试客户端
func NewRetryClient(doer Doer, policy Policy, clk clock.Clock, log *zap.SugaredLogger) *RetryClient {
	if doer == nil {
		doer = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RetryClient{
		doer:   doer,
		policy: policy.normalized(),
		clock:  clock.OrReal(clk),
		log:    log,
	}
}

// Policy 返回当前策略
func (c *RetryClient) Policy() Policy {
	return c.policy
}

// Do 发送请求。2xx/4xx 直接返回响应；其余情况按策略重试，耗尽后返回最后一次错误。
func (c *RetryClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var (
		resp    *http.Response
		attempt int
		stopped bool
	)
	operation := func() error {
		attempt++
		attemptReq, err := rewind(req, attempt)
		if err != nil {
			stopped = true
			return backoff.Permanent(err)
		}
		r, err := c.doer.Do(attemptReq)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				stopped = true
				return backoff.Permanent(ctxErr)
			}
			return err
		}
		if IsSuccess(r.StatusCode) || IsClientError(r.StatusCode) {
			resp = r
			return nil
		}
		return &StatusError{StatusCode: r.StatusCode, Message: readMessage(r)}
	}
	notify := func(err error, delay time.Duration) {
		c.log.Debugw("cart_request_retry",
			"method", req.Method,
			"url", req.URL.String(),
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)
	}

	timer := &sleepTimer{ctx: ctx, clock: c.clock}
	err := backoff.RetryNotifyWithTimer(operation, c.policy.backOff(ctx, c.clock), notify, timer)
	if err == nil {
		return resp, nil
	}
	if stopped || ctx.Err() != nil {
		return nil, err
	}
	c.log.Warnw("cart_request_retries_exhausted",
		"method", req.Method,
		"url", req.URL.String(),
		"attempts", attempt,
		"error", err,
	)
	return nil, fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
}

// backOff 无抖动的翻倍退避，最多重试 Attempts-1 次
func (p Policy) backOff(ctx context.Context, clk clock.Clock) backoff.BackOff {
	exp := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         p.Delay(p.Attempts),
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               clk,
	}
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.Attempts-1)), ctx)
}

// sleepTimer 用 clock.Sleep 实现 backoff.Timer；Start 阻塞到等待结束，ctx 取消时不触发
type sleepTimer struct {
	ctx   context.Context
	clock clock.Clock
	ch    chan time.Time
}

func (t *sleepTimer) Start(d time.Duration) {
	t.ch = make(chan time.Time, 1)
	if err := t.clock.Sleep(t.ctx, d); err == nil {
		t.ch <- t.clock.Now()
	}
}

func (t *sleepTimer) Stop() {}

func (t *sleepTimer) C() <-chan time.Time {
	return t.ch
}

// rewind 为每次尝试准备可重读的请求体
func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("cart request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replay cart request body failed: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

// readMessage 读取并关闭响应体，用于错误信息
func readMessage(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return string(data)
}

// MaxWait 所有重试等待时长之和
func (p Policy) MaxWait() time.Duration {
	p = p.normalized()
	var total time.Duration
	for attempt := 1; attempt < p.Attempts; attempt++ {
		total += p.Delay(attempt)
	}
	return total
}

var (
	_ Doer          = (*RetryClient)(nil)
	_ backoff.Timer = (*sleepTimer)(nil)
)
