package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/wolfitem/news-agent/internal/infrastructure/logger"
)

// RetryPolicy 是统一的重试策略对象：有界尝试次数+指数退避。
// 各调用点（拉取订阅、抓取正文、调用摘要API）用不同参数实例化，
// 超时/重试行为因此可以统一测试
type RetryPolicy struct {
	Name            string        // 调用点名称，用于日志
	MaxAttempts     int           // 总尝试次数（含首次）
	InitialInterval time.Duration // 首次退避时长
	MaxInterval     time.Duration // 单次退避上限
}

// FeedFetchPolicy 返回订阅拉取的默认重试策略
func FeedFetchPolicy() RetryPolicy {
	return RetryPolicy{Name: "feed_fetch", MaxAttempts: 3, InitialInterval: time.Second, MaxInterval: 8 * time.Second}
}

// ExtractPolicy 返回正文抓取的默认重试策略：瞬时网络失败只重试一次
func ExtractPolicy() RetryPolicy {
	return RetryPolicy{Name: "extract", MaxAttempts: 2, InitialInterval: time.Second, MaxInterval: 4 * time.Second}
}

// SummarizePolicy 返回摘要API调用的默认重试策略
func SummarizePolicy() RetryPolicy {
	return RetryPolicy{Name: "summarize", MaxAttempts: 3, InitialInterval: time.Second, MaxInterval: 10 * time.Second}
}

// Do 按策略执行操作。不可重试的错误用Permanent包装后立即返回；
// 上下文取消时停止等待并返回上下文错误
func (p RetryPolicy) Do(ctx context.Context, operation func() error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = time.Second
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	if p.MaxInterval > 0 {
		bo.MaxInterval = p.MaxInterval
	}

	attempt := 0
	wrapped := func() error {
		attempt++
		err := operation()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		logger.Warn("操作失败，准备重试",
			"policy", p.Name, "attempt", attempt, "max_attempts", p.MaxAttempts, "error", err)
		return err
	}

	limited := backoff.WithMaxRetries(backoff.WithContext(bo, ctx), uint64(p.MaxAttempts-1))
	return backoff.Retry(wrapped, limited)
}

// IsRetryable 判断错误是否值得重试。
// 网络瞬时失败和5xx/429可重试，其余4xx不重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, keyword := range []string{
		"timeout", "deadline", "connection", "reset", "unreachable", "temporary",
		"503", "502", "504", "429",
	} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	if strings.Contains(errStr, "状态码: 4") || strings.Contains(errStr, "status 4") {
		return false
	}
	// 无法识别的错误按可重试处理
	return true
}
