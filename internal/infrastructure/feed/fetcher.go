package feed

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/wolfitem/news-agent/internal/domain/model"
	"github.com/wolfitem/news-agent/internal/domain/service"
	"github.com/wolfitem/news-agent/internal/infrastructure/logger"
	"github.com/wolfitem/news-agent/internal/middleware"
)

// Fetcher 基于gofeed实现service.FeedFetcher接口
type Fetcher struct {
	retry     middleware.RetryPolicy
	userAgent string
}

// NewFetcher 创建订阅拉取器
func NewFetcher() service.FeedFetcher {
	return &Fetcher{
		retry:     middleware.FeedFetchPolicy(),
		userAgent: "news-agent/1.0",
	}
}

// sourceResult 单个源的拉取结果，按源注册顺序占位以保证合并顺序确定
type sourceResult struct {
	entries []model.RawEntry
	err     error
}

// Fetch 并行拉取各源的条目。单源失败只记录警告，不中断其他源
func (f *Fetcher) Fetch(ctx context.Context, sources []model.FeedSource, topicFilter []string, opts model.RunOptions) service.FetchResult {
	opts = opts.WithDefaults()
	logger.Info("开始拉取订阅源", "sources_count", len(sources), "topic_filter", topicFilter)
	defer logger.TimeTrack("Fetch")()

	result := service.FetchResult{SourcesAttempted: len(sources)}
	if len(sources) == 0 {
		return result
	}

	limiter := middleware.NewHostLimiter(time.Duration(opts.MinHostIntervalMs) * time.Millisecond)
	perSourceTimeout := time.Duration(opts.PerSourceTimeoutMs) * time.Millisecond

	// 每个源独立一个工作单元，信号量限制并发
	results := make([]sourceResult, len(sources))
	semaphore := make(chan struct{}, opts.FetchConcurrency)
	var wg sync.WaitGroup

	for i, source := range sources {
		wg.Add(1)
		go func(idx int, src model.FeedSource) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[idx] = f.fetchOne(ctx, src, limiter, perSourceTimeout, opts)
		}(i, source)
	}
	wg.Wait()

	// 按源注册顺序确定性合并
	var entries []model.RawEntry
	for i, src := range sources {
		if results[i].err != nil {
			logger.Error("处理订阅源失败", "source", src.Name, "url", src.URL, "error", results[i].err)
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%v: %s: %v", model.ErrSourceUnavailable, src.Name, results[i].err))
			continue
		}
		result.SourcesSucceeded++
		entries = append(entries, results[i].entries...)
	}

	// 主题过滤在截断前进行，避免过滤后白白浪费配额
	if len(topicFilter) > 0 {
		entries = filterByTopic(entries, topicFilter)
	}

	// 条目总数上限，约束下游开销
	if len(entries) > opts.MaxTotalArticles {
		entries = entries[:opts.MaxTotalArticles]
	}

	for i := range entries {
		entries[i].FetchOrder = i
	}
	result.Entries = entries

	logger.Info("订阅源拉取完成",
		"sources_attempted", result.SourcesAttempted,
		"sources_succeeded", result.SourcesSucceeded,
		"entries", len(result.Entries),
		"warnings", len(result.Warnings))
	return result
}

// fetchOne 拉取单个源：限流等待、有界超时、按策略重试
func (f *Fetcher) fetchOne(ctx context.Context, src model.FeedSource, limiter *middleware.HostLimiter, timeout time.Duration, opts model.RunOptions) sourceResult {
	logger.Info("开始拉取订阅源", "source", src.Name, "url", src.URL)

	if err := limiter.Wait(ctx, src.URL); err != nil {
		return sourceResult{err: fmt.Errorf("等待限流被取消: %w", err)}
	}

	srcCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.UserAgent = f.userAgent
	parser.Client = &http.Client{Timeout: timeout}

	var parsed *gofeed.Feed
	err := f.retry.Do(srcCtx, func() error {
		feed, parseErr := parser.ParseURLWithContext(src.URL, srcCtx)
		if parseErr != nil {
			return parseErr
		}
		parsed = feed
		return nil
	})
	if err != nil {
		return sourceResult{err: err}
	}

	if parsed == nil || len(parsed.Items) == 0 {
		logger.Warn("订阅源没有条目", "source", src.Name, "url", src.URL)
		return sourceResult{}
	}

	var entries []model.RawEntry
	for _, item := range parsed.Items {
		// 没有发布日期时退回更新日期，再退回当前时间
		published := time.Now()
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}

		entries = append(entries, model.RawEntry{
			Title:        item.Title,
			Link:         item.Link,
			Published:    published,
			Source:       src.Name,
			SourceWeight: src.Weight,
			Description:  stripHTMLTags(item.Description),
		})
	}

	// 源内按发布时间降序，只保留最近的前N条
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Published.After(entries[j].Published)
	})
	if len(entries) > opts.MaxArticlesPerSource {
		entries = entries[:opts.MaxArticlesPerSource]
	}

	logger.Info("订阅源拉取成功", "source", src.Name, "entries", len(entries))
	return sourceResult{entries: entries}
}

// filterByTopic 只保留标题或简述命中任一主题关键词的条目
func filterByTopic(entries []model.RawEntry, topicFilter []string) []model.RawEntry {
	var filtered []model.RawEntry
	for _, entry := range entries {
		text := strings.ToLower(entry.Title + " " + entry.Description)
		for _, kw := range topicFilter {
			if strings.Contains(text, strings.ToLower(kw)) {
				filtered = append(filtered, entry)
				break
			}
		}
	}
	logger.Debug("主题过滤完成", "before", len(entries), "after", len(filtered))
	return filtered
}

// stripHTMLTags 去除HTML标签，只保留纯文本
func stripHTMLTags(html string) string {
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Warn("解析HTML失败，返回原始内容", "error", err)
		return html
	}

	// 将连续的空白字符替换为单个空格
	return strings.Join(strings.Fields(doc.Text()), " ")
}
