package middleware

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"
)

// HostLimiter 对同一主机的出站请求施加最小间隔，尊重各站点的抓取频率。
// 不同主机互不影响；多协程可安全共享同一实例
type HostLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastRequest map[string]time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewHostLimiter 创建按主机限流器。minInterval为0或负数时不限流
func NewHostLimiter(minInterval time.Duration) *HostLimiter {
	return &HostLimiter{
		minInterval: minInterval,
		lastRequest: make(map[string]time.Time),
		sleep:       sleepContext,
	}
}

// Wait 阻塞到对该主机的下一次请求允许发出为止。
// 上下文取消时立即返回上下文错误
func (l *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if l.minInterval <= 0 {
		return ctx.Err()
	}

	host := HostOf(rawURL)

	l.mu.Lock()
	now := time.Now()
	next := now
	if last, ok := l.lastRequest[host]; ok {
		if earliest := last.Add(l.minInterval); earliest.After(now) {
			next = earliest
		}
	}
	// 先登记预约时刻再等待，保证并发请求依次排队
	l.lastRequest[host] = next
	wait := next.Sub(now)
	l.mu.Unlock()

	if wait <= 0 {
		return ctx.Err()
	}
	return l.sleep(ctx, wait)
}

// HostOf 提取URL的主机名，解析失败时退回原始字符串
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Hostname())
}

// sleepContext 可被上下文打断的睡眠
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
