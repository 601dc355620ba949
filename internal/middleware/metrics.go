package middleware

import (
	"sync"
	"time"

	"github.com/wolfitem/news-agent/internal/domain/model"
	"github.com/wolfitem/news-agent/internal/infrastructure/logger"
)

// RunMetrics 收集一次运行的各阶段计数与耗时。
// 阶段内部的并发工作协程可安全共享同一实例
type RunMetrics struct {
	mu sync.Mutex

	startTime time.Time

	stageTimings map[model.Stage]time.Duration

	sourcesAttempted  int
	sourcesSucceeded  int
	entriesFetched    int
	articlesExtracted int
	articlesRanked    int

	// 摘要API调用统计
	apiCalls    int
	apiFailures int
}

// NewRunMetrics 创建新的运行指标收集器
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{
		startTime:    time.Now(),
		stageTimings: make(map[model.Stage]time.Duration),
	}
}

// StageTimer 返回记录阶段耗时的收尾函数，用法同logger.TimeTrack：
// defer m.StageTimer(stage)()
func (m *RunMetrics) StageTimer(stage model.Stage) func() {
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		m.mu.Lock()
		m.stageTimings[stage] += elapsed
		m.mu.Unlock()
		logger.Info("阶段执行完成", "stage", stage, "duration", elapsed)
	}
}

// RecordFetch 记录fetch阶段的源与条目计数
func (m *RunMetrics) RecordFetch(attempted, succeeded, entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sourcesAttempted = attempted
	m.sourcesSucceeded = succeeded
	m.entriesFetched = entries
}

// RecordExtracted 记录正文抽取成功的文章数
func (m *RunMetrics) RecordExtracted(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.articlesExtracted = count
}

// RecordRanked 记录进入最终排序的文章数
func (m *RunMetrics) RecordRanked(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.articlesRanked = count
}

// RecordAPICall 记录一次摘要API调用
func (m *RunMetrics) RecordAPICall(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.apiCalls++
	if !success {
		m.apiFailures++
	}
}

// Snapshot 导出当前统计的只读快照
func (m *RunMetrics) Snapshot() model.RunStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	timings := make(map[model.Stage]time.Duration, len(m.stageTimings))
	for stage, d := range m.stageTimings {
		timings[stage] = d
	}

	return model.RunStats{
		SourcesAttempted:  m.sourcesAttempted,
		SourcesSucceeded:  m.sourcesSucceeded,
		EntriesFetched:    m.entriesFetched,
		ArticlesExtracted: m.articlesExtracted,
		ArticlesRanked:    m.articlesRanked,
		StageTimings:      timings,
	}
}

// LogSummary 把本次运行的指标汇总输出到日志
func (m *RunMetrics) LogSummary() {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger.Info("运行指标汇总",
		"uptime", time.Since(m.startTime),
		"sources_attempted", m.sourcesAttempted,
		"sources_succeeded", m.sourcesSucceeded,
		"entries_fetched", m.entriesFetched,
		"articles_extracted", m.articlesExtracted,
		"articles_ranked", m.articlesRanked,
		"api_calls", m.apiCalls,
		"api_failures", m.apiFailures,
	)
}
