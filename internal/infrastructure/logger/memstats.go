package logger

import (
	"runtime"
	"time"
)

// MemStatsMonitor 周期性记录代理进程的内存占用，
// 用于观察长时间聚合运行中抽取与摘要阶段的内存走势
type MemStatsMonitor struct {
	interval time.Duration // 采样间隔
	stopped  chan struct{} // 停止信号
}

// NewMemStatsMonitor 创建一个新的内存监控器
func NewMemStatsMonitor(interval time.Duration) *MemStatsMonitor {
	return &MemStatsMonitor{
		interval: interval,
		stopped:  make(chan struct{}),
	}
}

// Start 在后台开始周期采样
func (m *MemStatsMonitor) Start() {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.LogMemStats()
			case <-m.stopped:
				return
			}
		}
	}()
}

// Stop 停止监控
func (m *MemStatsMonitor) Stop() {
	close(m.stopped)
}

// LogMemStats 记录一次采样
func (m *MemStatsMonitor) LogMemStats() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	Info("代理运行内存采样",
		"alloc_mb", stats.Alloc/1024/1024,
		"sys_mb", stats.Sys/1024/1024,
		"heap_alloc_mb", stats.HeapAlloc/1024/1024,
		"heap_sys_mb", stats.HeapSys/1024/1024,
		"num_gc", stats.NumGC)
}

// LogMemStatsOnce 记录一次内存快照，引擎在运行起点调用作为基线
func LogMemStatsOnce() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	Info("运行起点内存快照",
		"alloc_mb", stats.Alloc/1024/1024,
		"sys_mb", stats.Sys/1024/1024,
		"heap_alloc_mb", stats.HeapAlloc/1024/1024,
		"heap_sys_mb", stats.HeapSys/1024/1024,
		"num_gc", stats.NumGC)
}
