package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jpillora/backoff"
)

// ErrPermanent 包装后的错误不会重试
var ErrPermanent = errors.New("permanent error")

// Permanent 标记一个不可重试的错误
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	return e.err.Error()
}

func (e *permanentError) Unwrap() []error {
	return []error{ErrPermanent, e.err}
}

// Policy 有界指数退避, 第 n 次失败后等待 BaseDelay * 2^n
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// MaxDelay 为 0 时不限制单次等待
	MaxDelay time.Duration
	// IsRetryable 为空时除 ErrPermanent 外都重试
	IsRetryable func(err error) bool
	Label       string
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
	}
}

func (p Policy) retryable(err error) bool {
	if errors.Is(err, ErrPermanent) || errors.Is(err, context.Canceled) {
		return false
	}
	if p.IsRetryable == nil {
		return true
	}
	return p.IsRetryable(err)
}

// Delay 第 attempt 次(从 0 开始)失败后的等待时间
func (p Policy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Duration(1<<62 - 1)
	}
	b := &backoff.Backoff{
		Min:    p.BaseDelay,
		Max:    maxDelay,
		Factor: 2,
	}
	return b.ForAttempt(float64(attempt))
}

// Do 执行 fn, 用尽次数后返回最后一次的错误
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts-1 || !p.retryable(err) {
			break
		}

		delay := p.Delay(attempt)
		slog.Warn("retrying after failure", "label", p.Label, "attempt", attempt+1, "delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
	return err
}
