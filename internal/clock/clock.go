package clock

import (
	"context"
	"time"
)

// Timer 可取消的定时任务
type Timer interface {
	Stop() bool
}

// Clock 时间来源（重试等待与防抖定时器共用）
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
	// Sleep 等待 d，ctx 取消时提前返回 ctx.Err()
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// Real 返回基于系统时间的 Clock
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// OrReal 为 nil 时回退到系统时间
func OrReal(c Clock) Clock {
	if c == nil {
		return Real()
	}
	return c
}
