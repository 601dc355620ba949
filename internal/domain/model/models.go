package model

import "time"

// Stage 表示流水线中的一个阶段标识
type Stage string

// 流水线阶段的封闭枚举，Plan中只允许出现这六个阶段
const (
	StageFetch     Stage = "fetch"     // 拉取各RSS源的条目
	StageExtract   Stage = "extract"   // 抽取文章正文
	StageAnalyze   Stage = "analyze"   // 分析内容质量
	StageSummarize Stage = "summarize" // 生成文章摘要
	StageRank      Stage = "rank"      // 按相关性排序
	StageReport    Stage = "report"    // 汇总生成报告
)

// CanonicalStageOrder 是阶段的规范顺序，Plan中的阶段始终按此顺序排列
var CanonicalStageOrder = []Stage{
	StageFetch, StageExtract, StageAnalyze, StageSummarize, StageRank, StageReport,
}

// RunStatus 表示一次运行的最终状态
type RunStatus string

const (
	StatusOK        RunStatus = "ok"         // 正常完成
	StatusNoContent RunStatus = "no_content" // 所有源均失败或没有条目
	StatusPartial   RunStatus = "partial"    // 运行超时，返回部分结果
)

// Query 表示一次运行的查询输入，创建后只读
type Query struct {
	Raw      string   // 原始查询文本
	Keywords []string // 小写、去停用词后的关键词集合
}

// Plan 表示规划器产出的执行计划，构建后不再修改
type Plan struct {
	Stages []Stage // 按规范顺序排列的阶段序列，始终以report结尾
	// TopicFilter 是可选的主题过滤关键词，由fetch阶段消费；
	// 它不是一个独立阶段，阶段集合固定为六个
	TopicFilter []string
}

// FeedSource 表示一个内容源，进程启动时加载，运行期间只读
type FeedSource struct {
	Name   string  // 源名称
	URL    string  // 订阅地址
	Weight float64 // 信任/优先级权重，用于排序的平局裁决
}

// RawEntry 表示一条未经抽取的订阅条目
type RawEntry struct {
	Title        string    // 条目标题
	Link         string    // 原文链接
	Published    time.Time // 发布时间
	Source       string    // 来源名称
	SourceWeight float64   // 来源权重
	Description  string    // 订阅内置的简述（已去除HTML标签）
	FetchOrder   int       // 进入工作集的原始顺序，用于最终平局裁决
}

// Article 表示逐阶段富化的文章。各阶段只追加字段，
// 后续阶段失败不得抹掉已有结果
type Article struct {
	RawEntry

	Body      string // 抽取出的正文纯文本
	Extracted bool   // 正文抽取是否成功

	QualityScore   float64 // analyze阶段追加
	Summary        string  // summarize阶段追加
	RelevanceScore float64 // rank阶段追加
}

// RunStats 记录一次运行的各阶段计数与耗时
type RunStats struct {
	SourcesAttempted  int                     // 尝试的源数量
	SourcesSucceeded  int                     // 成功的源数量
	EntriesFetched    int                     // 拉取到的条目总数
	ArticlesExtracted int                     // 正文抽取成功的文章数
	ArticlesRanked    int                     // 进入最终排序的文章数
	StageTimings      map[Stage]time.Duration // 各阶段耗时
}

// RunResult 表示一次运行的完整产出，返回后归调用方所有，不再修改
type RunResult struct {
	Query     string        // 原始查询
	Plan      Plan          // 执行计划
	Status    RunStatus     // 运行状态
	Articles  []Article     // 排序后的文章列表
	Stats     RunStats      // 各阶段统计
	Warnings  []string      // 阶段级警告
	Report    string        // Markdown格式的汇总报告
	StartedAt time.Time     // 开始时间
	Duration  time.Duration // 总耗时
}

// RankingWeights 表示排序各信号的权重配置
type RankingWeights struct {
	Keyword float64 `mapstructure:"keyword"` // 关键词重合度权重
	Quality float64 `mapstructure:"quality"` // 质量分权重
	Recency float64 `mapstructure:"recency"` // 时效分权重
}

// AnalyzerWeights 表示质量分析各信号的权重配置
type AnalyzerWeights struct {
	Readability float64 `mapstructure:"readability"` // 可读性权重
	Length      float64 `mapstructure:"length"`      // 篇幅权重
	Structure   float64 `mapstructure:"structure"`   // 结构权重
}

// DeepseekConfig 包含摘要能力（Deepseek API）的配置信息
type DeepseekConfig struct {
	APIKey     string // API密钥
	Model      string // 模型名称
	MaxTokens  int    // 最大令牌数
	MaxCalls   int    // 单次运行最大调用次数
	APIUrl     string // API接口地址
	TimeoutSec int    // 单次调用硬超时（秒）
}

// RunOptions 是调用方可选配置，零值字段使用默认值
type RunOptions struct {
	MaxArticlesPerSource int             // 每个源最多保留的条目数
	MaxTotalArticles     int             // 条目总数上限
	SummaryMaxLength     int             // 摘要最大长度（字符）
	SummarySentences     int             // 抽取式摘要句子数
	RankingWeights       RankingWeights  // 排序权重
	AnalyzerWeights      AnalyzerWeights // 质量分析权重
	RecencyWindowHours   int             // 时效回看窗口（小时）
	PerSourceTimeoutMs   int             // 单个源的拉取超时
	ExtractTimeoutMs     int             // 单篇正文抽取超时
	RunTimeoutMs         int             // 整次运行的时间预算
	FetchConcurrency     int             // fetch阶段并发度
	WorkerConcurrency    int             // extract/summarize阶段并发度
	MinHostIntervalMs    int             // 同一主机两次请求的最小间隔
	Deepseek             DeepseekConfig  // 摘要能力配置
}

// 各配置项的默认值
const (
	DefaultMaxArticlesPerSource = 5
	DefaultMaxTotalArticles     = 20
	DefaultSummaryMaxLength     = 200
	DefaultSummarySentences     = 3
	DefaultRecencyWindowHours   = 72
	DefaultPerSourceTimeoutMs   = 15000
	DefaultExtractTimeoutMs     = 10000
	DefaultRunTimeoutMs         = 120000
	DefaultFetchConcurrency     = 4
	DefaultWorkerConcurrency    = 5
	DefaultMinHostIntervalMs    = 500
)

// DefaultRankingWeights 返回排序权重的文档化默认值。
// 相对权重属于配置而非定数，测试应参数化覆盖
func DefaultRankingWeights() RankingWeights {
	return RankingWeights{Keyword: 0.5, Quality: 0.3, Recency: 0.2}
}

// DefaultAnalyzerWeights 返回质量分析权重的默认值
func DefaultAnalyzerWeights() AnalyzerWeights {
	return AnalyzerWeights{Readability: 0.4, Length: 0.4, Structure: 0.2}
}

// WithDefaults 返回填充了默认值的副本，不修改原值
func (o RunOptions) WithDefaults() RunOptions {
	if o.MaxArticlesPerSource <= 0 {
		o.MaxArticlesPerSource = DefaultMaxArticlesPerSource
	}
	if o.MaxTotalArticles <= 0 {
		o.MaxTotalArticles = DefaultMaxTotalArticles
	}
	if o.SummaryMaxLength <= 0 {
		o.SummaryMaxLength = DefaultSummaryMaxLength
	}
	if o.SummarySentences <= 0 {
		o.SummarySentences = DefaultSummarySentences
	}
	if o.RankingWeights == (RankingWeights{}) {
		o.RankingWeights = DefaultRankingWeights()
	}
	if o.AnalyzerWeights == (AnalyzerWeights{}) {
		o.AnalyzerWeights = DefaultAnalyzerWeights()
	}
	if o.RecencyWindowHours <= 0 {
		o.RecencyWindowHours = DefaultRecencyWindowHours
	}
	if o.PerSourceTimeoutMs <= 0 {
		o.PerSourceTimeoutMs = DefaultPerSourceTimeoutMs
	}
	if o.ExtractTimeoutMs <= 0 {
		o.ExtractTimeoutMs = DefaultExtractTimeoutMs
	}
	if o.RunTimeoutMs <= 0 {
		o.RunTimeoutMs = DefaultRunTimeoutMs
	}
	if o.FetchConcurrency <= 0 {
		o.FetchConcurrency = DefaultFetchConcurrency
	}
	if o.WorkerConcurrency <= 0 {
		o.WorkerConcurrency = DefaultWorkerConcurrency
	}
	if o.MinHostIntervalMs <= 0 {
		o.MinHostIntervalMs = DefaultMinHostIntervalMs
	}
	return o
}
