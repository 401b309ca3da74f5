package model

import (
	"context"
	"fmt"
	"time"

	"github.com/xh-polaris/chatstream-core-api/biz/infra/metrics"
	"github.com/xh-polaris/chatstream-core-api/pkg/errorx"
	"github.com/xh-polaris/chatstream-core-api/pkg/logs"
)

// 模型调用的操作名, 用于日志与指标
const (
	OpStream = "stream"
	OpFile   = "file"
)

// Retrier 模型调用的统一重试策略
// 第n次失败后等待 n*BaseDelay 再重试, 线性退避, 最多MaxAttempts次
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

func NewRetrier(maxAttempts int, baseDelay time.Duration) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Retrier{MaxAttempts: maxAttempts, BaseDelay: baseDelay, Sleep: sleep}
}

// ProviderError 重试耗尽后的模型调用错误, Err为最后一次失败的原始错误
type ProviderError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed after %d attempt(s): %s", e.Op, e.Attempts, errorx.ErrorWithoutStack(e.Err))
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Do 执行fn直到成功或次数耗尽, ctx取消后不再重试
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	attempt := 0
	for attempt < r.MaxAttempts {
		attempt++
		if err = fn(ctx); err == nil {
			metrics.ProviderAttempts.WithLabelValues(op, "success").Inc()
			return nil
		}
		metrics.ProviderAttempts.WithLabelValues(op, "failure").Inc()
		logs.CtxWarnf(ctx, "[provider] [%s] attempt %d/%d failed: %s", op, attempt, r.MaxAttempts, errorx.ErrorWithoutStack(err))
		if ctx.Err() != nil || attempt == r.MaxAttempts {
			break
		}
		if serr := r.Sleep(ctx, time.Duration(attempt)*r.BaseDelay); serr != nil {
			break
		}
	}
	return &ProviderError{Op: op, Attempts: attempt, Err: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
