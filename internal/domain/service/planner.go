package service

import (
	"github.com/wolfitem/news-agent/internal/domain/model"
	"github.com/wolfitem/news-agent/internal/infrastructure/logger"
)

// TaskPlanner 定义任务规划器接口，将自然语言查询映射为执行计划
type TaskPlanner interface {
	// Plan 根据查询生成执行计划。纯函数，只依赖查询的关键词集合，永不失败；
	// 未匹配或空查询回退为默认完整计划
	Plan(query model.Query) model.Plan
}

// IntentRule 表示一条意图规则：查询命中任一关键词时，计划包含对应阶段
type IntentRule struct {
	Keywords []string      `mapstructure:"keywords"`
	Stages   []model.Stage `mapstructure:"stages"`
}

// TopicRule 表示一条主题规则：查询命中任一关键词时，
// 为fetch阶段附加主题过滤关键词（不是独立阶段）
type TopicRule struct {
	Keywords []string `mapstructure:"keywords"`
	Filter   []string `mapstructure:"filter"`
}

// taskPlanner 实现TaskPlanner接口，基于固定规则表的分类器，不是学习模型
type taskPlanner struct {
	intentRules []IntentRule
	topicRules  []TopicRule
}

// NewTaskPlanner 创建使用默认规则表的任务规划器
func NewTaskPlanner() TaskPlanner {
	return NewTaskPlannerWithRules(DefaultIntentRules(), DefaultTopicRules())
}

// NewTaskPlannerWithRules 创建使用指定规则表的任务规划器，规则可来自配置
func NewTaskPlannerWithRules(intents []IntentRule, topics []TopicRule) TaskPlanner {
	return &taskPlanner{intentRules: intents, topicRules: topics}
}

// DefaultIntentRules 返回默认的意图规则表
func DefaultIntentRules() []IntentRule {
	return []IntentRule{
		{
			Keywords: []string{"news", "articles", "headlines", "stories"},
			Stages:   model.CanonicalStageOrder,
		},
		{
			Keywords: []string{"summarize", "summary", "digest"},
			Stages: []model.Stage{
				model.StageFetch, model.StageExtract,
				model.StageSummarize, model.StageReport,
			},
		},
	}
}

// DefaultTopicRules 返回默认的主题规则表
func DefaultTopicRules() []TopicRule {
	return []TopicRule{
		{
			Keywords: []string{"tech", "technology", "ai"},
			Filter: []string{
				"ai", "artificial", "intelligence", "technology",
				"software", "computer", "digital", "tech", "innovation", "startup",
			},
		},
	}
}

// Plan 根据查询生成执行计划
func (p *taskPlanner) Plan(query model.Query) model.Plan {
	keywordSet := make(map[string]struct{}, len(query.Keywords))
	for _, kw := range query.Keywords {
		keywordSet[kw] = struct{}{}
	}

	// 收集所有命中规则的阶段
	stageSet := make(map[model.Stage]struct{})
	matched := false
	for _, rule := range p.intentRules {
		if !anyKeywordHit(keywordSet, rule.Keywords) {
			continue
		}
		matched = true
		for _, stage := range rule.Stages {
			stageSet[stage] = struct{}{}
		}
	}

	// 未命中任何意图时回退为默认完整计划
	if !matched {
		for _, stage := range model.CanonicalStageOrder {
			stageSet[stage] = struct{}{}
		}
	}

	// fetch和report是任何计划的下界：没有fetch无事可做，没有report无物可还
	stageSet[model.StageFetch] = struct{}{}
	stageSet[model.StageReport] = struct{}{}

	// 无论哪些规则命中，阶段一律按规范顺序排列
	plan := model.Plan{}
	for _, stage := range model.CanonicalStageOrder {
		if _, ok := stageSet[stage]; ok {
			plan.Stages = append(plan.Stages, stage)
		}
	}

	// 主题规则附加过滤关键词
	for _, rule := range p.topicRules {
		if anyKeywordHit(keywordSet, rule.Keywords) {
			plan.TopicFilter = append(plan.TopicFilter, rule.Filter...)
		}
	}

	logger.Info("生成执行计划", "query", query.Raw, "stages", plan.Stages, "topic_filter", plan.TopicFilter)
	return plan
}

// anyKeywordHit 判断查询关键词集合是否命中规则关键词之一
func anyKeywordHit(keywordSet map[string]struct{}, ruleKeywords []string) bool {
	for _, kw := range ruleKeywords {
		if _, ok := keywordSet[kw]; ok {
			return true
		}
	}
	return false
}
