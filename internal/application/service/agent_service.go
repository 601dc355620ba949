package service

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfitem/news-agent/internal/domain/model"
	domain "github.com/wolfitem/news-agent/internal/domain/service"
	"github.com/wolfitem/news-agent/internal/infrastructure/logger"
	"github.com/wolfitem/news-agent/internal/middleware"
)

// AgentService 定义内容聚合代理的应用服务接口
type AgentService interface {
	// Run 执行一次完整运行：规划、逐阶段执行、汇总报告。
	// 除配置错误外永不返回error：一切阶段级失败都被
	// 引擎边界吸收为RunResult中的警告
	Run(ctx context.Context, query string, opts model.RunOptions) (model.RunResult, error)
}

// Deps 注入执行引擎依赖的各能力
type Deps struct {
	Planner   domain.TaskPlanner      // 可为空，默认使用内置规则表
	Registry  domain.SourceRegistry   // 内容源注册表，必填
	Fetcher   domain.FeedFetcher      // 订阅拉取能力，必填
	Extractor domain.ContentExtractor // 正文抽取能力，必填
	AI        domain.AIClient         // 外部摘要能力，必填
}

// agentService 实现AgentService接口
type agentService struct {
	planner   domain.TaskPlanner
	registry  domain.SourceRegistry
	fetcher   domain.FeedFetcher
	extractor domain.ContentExtractor
	ai        domain.AIClient
	validator *domain.Validator
}

// NewAgentService 创建新的代理服务实例
func NewAgentService(deps Deps) (AgentService, error) {
	if deps.Registry == nil || deps.Fetcher == nil || deps.Extractor == nil || deps.AI == nil {
		return nil, fmt.Errorf("%w: 缺少必要依赖", model.ErrInvalidConfig)
	}
	planner := deps.Planner
	if planner == nil {
		planner = domain.NewTaskPlanner()
	}
	return &agentService{
		planner:   planner,
		registry:  deps.Registry,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		ai:        deps.AI,
		validator: domain.NewValidator(),
	}, nil
}

// runState 是贯穿各阶段的工作集。阶段处理函数接收当前状态、
// 返回新状态，只追加不回退，部分失败时的快照因此直截了当
type runState struct {
	entries  []model.RawEntry // fetch阶段产出
	articles []model.Article  // extract起逐阶段富化，与entries等长
	ranked   []model.Article  // rank阶段产出的最终顺序
	rankRan  bool             // rank阶段是否实际执行
	warnings []string
	status   model.RunStatus
	report   string
}

// run 承载一次运行的上下文与按配置构造的纯域服务
type run struct {
	svc      *agentService
	query    model.Query
	plan     model.Plan
	opts     model.RunOptions
	metrics  *middleware.RunMetrics
	analyzer domain.QualityAnalyzer
	ranker   domain.RelevanceRanker
}

// stageFunc 阶段处理函数签名
type stageFunc func(r *run, ctx context.Context, st runState) (runState, error)

// stageTable 封闭阶段枚举到处理函数的查找表，启动时构建，不用反射
var stageTable = map[model.Stage]stageFunc{
	model.StageFetch:     (*run).stageFetch,
	model.StageExtract:   (*run).stageExtract,
	model.StageAnalyze:   (*run).stageAnalyze,
	model.StageSummarize: (*run).stageSummarize,
	model.StageRank:      (*run).stageRank,
	model.StageReport:    (*run).stageReport,
}

// Run 执行一次完整运行
func (s *agentService) Run(ctx context.Context, rawQuery string, opts model.RunOptions) (model.RunResult, error) {
	opts = opts.WithDefaults()
	// 配置错误是唯一的致命错误，显式暴露给调用方
	if err := s.validator.ValidateRunOptions(opts); err != nil {
		return model.RunResult{}, err
	}

	startedAt := time.Now()
	query := domain.NewQuery(rawQuery)
	plan := s.planner.Plan(query)

	logger.Info("代理开始运行", "query", rawQuery, "stages", plan.Stages)
	defer logger.TimeTrack("AgentService.Run")()
	logger.LogMemStatsOnce()

	r := &run{
		svc:      s,
		query:    query,
		plan:     plan,
		opts:     opts,
		metrics:  middleware.NewRunMetrics(),
		analyzer: domain.NewQualityAnalyzer(opts.AnalyzerWeights),
		ranker: domain.NewRelevanceRanker(opts.RankingWeights,
			time.Duration(opts.RecencyWindowHours)*time.Hour),
	}

	// 运行级时间预算：超时中止在途子操作并立即转入report，
	// 已完成的工作不丢弃
	runCtx, cancel := context.WithTimeout(ctx, time.Duration(opts.RunTimeoutMs)*time.Millisecond)
	defer cancel()

	st := runState{status: model.StatusOK}
	for _, stage := range plan.Stages {
		if stage == model.StageReport {
			break // report在循环外执行，保证任何路径都能到达终态
		}
		if runCtx.Err() != nil {
			st.warnings = append(st.warnings, fmt.Sprintf("%v: 剩余阶段被跳过", model.ErrRunTimeout))
			st.status = model.StatusPartial
			break
		}

		st = r.runStage(runCtx, stage, st)

		// fetch是唯一的特例：没有条目时直接短路到report，无物可处理
		if stage == model.StageFetch && len(st.entries) == 0 {
			logger.Warn("没有拉取到任何条目，短路到report阶段")
			st.status = model.StatusNoContent
			break
		}
	}
	if runCtx.Err() != nil && st.status == model.StatusOK {
		st.warnings = append(st.warnings, fmt.Sprintf("%v: 返回部分结果", model.ErrRunTimeout))
		st.status = model.StatusPartial
	}

	// 终态：report阶段不受运行级超时约束，始终执行
	st = r.runStage(context.Background(), model.StageReport, st)

	r.metrics.LogSummary()

	result := model.RunResult{
		Query:     rawQuery,
		Plan:      plan,
		Status:    st.status,
		Articles:  r.finalArticles(st),
		Stats:     r.metrics.Snapshot(),
		Warnings:  st.warnings,
		Report:    st.report,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}
	logger.Info("代理运行结束",
		"status", result.Status,
		"articles", len(result.Articles),
		"warnings", len(result.Warnings),
		"duration", result.Duration)
	return result, nil
}

// runStage 在引擎边界执行单个阶段：计时、捕获错误与panic。
// 阶段失败降级为警告并原样传递工作集，绝不中止运行
func (r *run) runStage(ctx context.Context, stage model.Stage, st runState) runState {
	handler, ok := stageTable[stage]
	if !ok {
		st.warnings = append(st.warnings, fmt.Sprintf("未知阶段: %s", stage))
		return st
	}

	defer r.metrics.StageTimer(stage)()
	slog := logger.WithStage(string(stage))
	slog.Info("开始执行阶段")

	next, err := func() (next runState, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("阶段内部panic: %v", p)
			}
		}()
		return handler(r, ctx, st)
	}()
	if err != nil {
		slog.Error("阶段执行失败，按空操作跳过", "error", err)
		st.warnings = append(st.warnings, fmt.Sprintf("阶段%s失败: %v", stage, err))
		return st
	}
	return next
}

// stageFetch 拉取各源条目
func (r *run) stageFetch(ctx context.Context, st runState) (runState, error) {
	res := r.svc.fetcher.Fetch(ctx, r.svc.registry.Sources(), r.plan.TopicFilter, r.opts)
	r.metrics.RecordFetch(res.SourcesAttempted, res.SourcesSucceeded, len(res.Entries))

	st.entries = res.Entries
	st.warnings = append(st.warnings, res.Warnings...)
	return st, nil
}

// stageExtract 并行抽取正文，基数保持：N个条目恰好产出N篇文章
func (r *run) stageExtract(ctx context.Context, st runState) (runState, error) {
	entries := st.entries
	articles := make([]model.Article, len(entries))
	extractTimeout := time.Duration(r.opts.ExtractTimeoutMs) * time.Millisecond

	semaphore := make(chan struct{}, r.opts.WorkerConcurrency)
	done := make(chan int, len(entries))
	for i := range entries {
		go func(idx int) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			defer func() { done <- idx }()
			// 工作协程的panic到不了引擎边界的recover，就地吸收为抽取失败
			defer func() {
				if p := recover(); p != nil {
					logger.Error("抽取工作协程panic", "title", entries[idx].Title, "panic", p)
					articles[idx] = model.Article{RawEntry: entries[idx]}
				}
			}()

			articleCtx, cancel := context.WithTimeout(ctx, extractTimeout)
			defer cancel()
			articles[idx] = r.svc.extractor.Extract(articleCtx, entries[idx])
		}(i)
	}
	for range entries {
		<-done
	}

	extracted := 0
	for _, article := range articles {
		if article.Extracted {
			extracted++
		} else {
			st.warnings = append(st.warnings,
				fmt.Sprintf("%v: %s", model.ErrExtractionFailed, article.Title))
		}
	}
	r.metrics.RecordExtracted(extracted)

	st.articles = articles
	return st, nil
}

// stageAnalyze 计算每篇文章的质量分，空正文得0
func (r *run) stageAnalyze(ctx context.Context, st runState) (runState, error) {
	articles := append([]model.Article(nil), st.articles...)
	for i := range articles {
		articles[i].QualityScore = r.analyzer.Analyze(articles[i])
	}
	st.articles = articles
	return st, nil
}

// stageSummarize 并行生成摘要。外部能力失败回退为抽取式摘要，
// 抽取失败的文章跳过以免摘要占位文本
func (r *run) stageSummarize(ctx context.Context, st runState) (runState, error) {
	articles := append([]model.Article(nil), st.articles...)
	failed := make([]bool, len(articles))

	semaphore := make(chan struct{}, r.opts.WorkerConcurrency)
	done := make(chan int, len(articles))
	for i := range articles {
		go func(idx int) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			defer func() { done <- idx }()
			// 工作协程的panic就地吸收，该文章保持无摘要
			defer func() {
				if p := recover(); p != nil {
					logger.Error("摘要工作协程panic", "title", articles[idx].Title, "panic", p)
				}
			}()

			if !articles[idx].Extracted || articles[idx].Body == "" {
				return
			}

			summary, err := r.svc.ai.Summarize(ctx, articles[idx].Body, r.opts.SummaryMaxLength)
			r.metrics.RecordAPICall(err == nil)
			if err != nil {
				logger.Warn("生成式摘要失败，回退为抽取式摘要",
					"title", articles[idx].Title, "error", err)
				failed[idx] = true
				summary = extractiveSummary(articles[idx].Body,
					r.opts.SummarySentences, r.opts.SummaryMaxLength)
			}
			articles[idx].Summary = summary
		}(i)
	}
	for range articles {
		<-done
	}

	// 工作协程汇合后统一收集警告，与抽取阶段同样的口径
	for i := range articles {
		if failed[i] {
			st.warnings = append(st.warnings,
				fmt.Sprintf("%v: %s", model.ErrSummarizationUnavailable, articles[i].Title))
		}
	}

	st.articles = articles
	return st, nil
}

// stageRank 按综合相关性排序，抽取失败的文章被排除
func (r *run) stageRank(ctx context.Context, st runState) (runState, error) {
	st.ranked = r.ranker.Rank(st.articles, r.query)
	st.rankRan = true
	r.metrics.RecordRanked(len(st.ranked))
	return st, nil
}

// stageReport 汇总生成Markdown报告，是任何计划的终态
func (r *run) stageReport(ctx context.Context, st runState) (runState, error) {
	st.report = r.buildReport(st)
	return st, nil
}

// finalArticles 对外输出的文章列表：rank执行过用其结果，
// 否则退回抽取成功的文章（保持拉取顺序）
func (r *run) finalArticles(st runState) []model.Article {
	if st.rankRan {
		return st.ranked
	}
	var articles []model.Article
	for _, article := range st.articles {
		if article.Extracted {
			articles = append(articles, article)
		}
	}
	return articles
}
