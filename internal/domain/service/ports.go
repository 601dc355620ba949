package service

import (
	"context"

	"github.com/wolfitem/news-agent/internal/domain/model"
)

// FetchResult 表示fetch阶段的产出
type FetchResult struct {
	Entries          []model.RawEntry // 按源注册顺序、源内按发布时间排列的条目
	SourcesAttempted int              // 尝试的源数量
	SourcesSucceeded int              // 成功的源数量
	Warnings         []string         // 失败源的警告
}

// FeedFetcher 定义内容拉取接口
type FeedFetcher interface {
	// Fetch 从各配置源拉取条目。单个源失败只记录警告不中断整体；
	// 只有所有源都失败时Entries为空，由引擎判定NoContent。
	// topicFilter非空时只保留命中主题关键词的条目
	Fetch(ctx context.Context, sources []model.FeedSource, topicFilter []string, opts model.RunOptions) FetchResult
}

// ContentExtractor 定义正文抽取接口
type ContentExtractor interface {
	// Extract 抓取条目链接的页面并抽取正文纯文本。
	// 永不越过此边界报错：任何失败都将Extracted置为false，
	// 正文回退为订阅简述（或空串），每个条目恰好产出一篇文章
	Extract(ctx context.Context, entry model.RawEntry) model.Article
}

// AIClient 定义外部摘要能力接口，视为(text, maxLength) -> text的不透明函数
type AIClient interface {
	// Summarize 生成不超过maxLength字符的生成式摘要，带硬超时。
	// 出错或超时由调用方回退为抽取式摘要
	Summarize(ctx context.Context, content string, maxLength int) (string, error)
}
