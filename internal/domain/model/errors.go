package model

import "errors"

// 错误分类。除ErrInvalidConfig外，所有错误都在引擎边界内
// 被恢复并记录为警告，不会向调用方抛出
var (
	// ErrSourceUnavailable 表示单个源拉取失败，运行继续
	ErrSourceUnavailable = errors.New("内容源不可用")

	// ErrExtractionFailed 表示单篇文章正文抽取失败，文章以回退文本保留
	ErrExtractionFailed = errors.New("正文抽取失败")

	// ErrSummarizationUnavailable 表示外部摘要能力超时或出错，回退为抽取式摘要
	ErrSummarizationUnavailable = errors.New("摘要能力不可用")

	// ErrNoContent 表示所有源均失败或没有条目，作为运行状态而非崩溃上报
	ErrNoContent = errors.New("没有可处理的内容")

	// ErrRunTimeout 表示整次运行超出时间预算，返回部分结果
	ErrRunTimeout = errors.New("运行超时")

	// ErrInvalidConfig 表示配置错误，唯一向调用方抛出的致命错误
	ErrInvalidConfig = errors.New("配置无效")
)
