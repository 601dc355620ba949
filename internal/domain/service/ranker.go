package service

import (
	"sort"
	"strings"
	"time"

	"github.com/wolfitem/news-agent/internal/domain/model"
)

// RelevanceRanker 定义相关性排序接口
type RelevanceRanker interface {
	// Rank 计算每篇文章对查询的综合相关性分并降序排列。
	// 抽取失败的文章不进入排序结果。
	// 排序是确定的全序：综合分相同先比发布时间（新在前），
	// 再比来源权重（高在前），最后比原始拉取顺序
	Rank(articles []model.Article, query model.Query) []model.Article
}

// relevanceRanker 实现RelevanceRanker接口
type relevanceRanker struct {
	weights model.RankingWeights
	window  time.Duration // 时效回看窗口，超窗文章时效分为0但不被剔除
	now     func() time.Time
}

// NewRelevanceRanker 创建相关性排序器，权重与回看窗口来自配置
func NewRelevanceRanker(weights model.RankingWeights, recencyWindow time.Duration) RelevanceRanker {
	if weights == (model.RankingWeights{}) {
		weights = model.DefaultRankingWeights()
	}
	if recencyWindow <= 0 {
		recencyWindow = model.DefaultRecencyWindowHours * time.Hour
	}
	return &relevanceRanker{weights: weights, window: recencyWindow, now: time.Now}
}

// Rank 计算综合分并排序
func (r *relevanceRanker) Rank(articles []model.Article, query model.Query) []model.Article {
	now := r.now()

	var ranked []model.Article
	for _, article := range articles {
		if !article.Extracted {
			continue
		}
		article.RelevanceScore = r.score(article, query, now)
		ranked = append(ranked, article)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if !a.Published.Equal(b.Published) {
			return a.Published.After(b.Published)
		}
		if a.SourceWeight != b.SourceWeight {
			return a.SourceWeight > b.SourceWeight
		}
		return a.FetchOrder < b.FetchOrder
	})

	return ranked
}

// score 计算单篇文章的综合相关性分
func (r *relevanceRanker) score(article model.Article, query model.Query, now time.Time) float64 {
	keyword := keywordOverlapScore(article, query)
	recency := r.recencyScore(article.Published, now)

	total := r.weights.Keyword + r.weights.Quality + r.weights.Recency
	if total <= 0 {
		return 0
	}

	return (r.weights.Keyword*keyword +
		r.weights.Quality*article.QualityScore +
		r.weights.Recency*recency) / total
}

// keywordOverlapScore 计算查询关键词在标题+正文中出现的比例，不区分大小写
func keywordOverlapScore(article model.Article, query model.Query) float64 {
	if len(query.Keywords) == 0 {
		return 0
	}

	haystack := strings.ToLower(article.Title + " " + article.Body)
	hits := 0
	for _, kw := range query.Keywords {
		if strings.Contains(haystack, kw) {
			hits++
		}
	}
	return float64(hits) / float64(len(query.Keywords))
}

// recencyScore 计算时效分：随文章年龄单调递减，超出回看窗口为0
func (r *relevanceRanker) recencyScore(published time.Time, now time.Time) float64 {
	if published.IsZero() {
		return 0
	}
	age := now.Sub(published)
	if age < 0 {
		age = 0
	}
	if age >= r.window {
		return 0
	}
	return 1 - float64(age)/float64(r.window)
}
