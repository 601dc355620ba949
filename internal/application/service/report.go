package service

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/wolfitem/news-agent/internal/domain/model"
)

// buildReport 汇总本次运行为Markdown报告。报告是运行的终态产物，
// 即使上游阶段全部失败也要产出可读的空报告
func (r *run) buildReport(st runState) string {
	var sb strings.Builder

	sb.WriteString("# 内容聚合报告\n\n")
	sb.WriteString(fmt.Sprintf("- **查询**: %s\n", r.query.Raw))
	sb.WriteString(fmt.Sprintf("- **状态**: %s\n", st.status))
	sb.WriteString(fmt.Sprintf("- **执行阶段**: %s\n\n", joinStages(r.plan.Stages)))

	stats := r.metrics.Snapshot()
	sb.WriteString("## 运行统计\n\n")
	sb.WriteString("| 指标 | 数值 |\n")
	sb.WriteString("| ---- | ---- |\n")
	sb.WriteString(fmt.Sprintf("| 尝试的源 | %d |\n", stats.SourcesAttempted))
	sb.WriteString(fmt.Sprintf("| 成功的源 | %d |\n", stats.SourcesSucceeded))
	sb.WriteString(fmt.Sprintf("| 拉取条目 | %d |\n", stats.EntriesFetched))
	sb.WriteString(fmt.Sprintf("| 抽取成功 | %d |\n", stats.ArticlesExtracted))
	sb.WriteString(fmt.Sprintf("| 进入排序 | %d |\n\n", stats.ArticlesRanked))

	articles := r.finalArticles(st)
	if len(articles) == 0 {
		sb.WriteString("## 结果\n\n")
		sb.WriteString("本次运行没有产出可用文章。\n")
		appendWarnings(&sb, st.warnings)
		return sb.String()
	}

	// 概览洞察：平均相关性、高频主题、整体质量档位
	sb.WriteString("## 概览\n\n")
	sb.WriteString(fmt.Sprintf("- **平均相关性**: %.2f\n", averageScore(articles, relevanceOf)))
	if topics := commonTopics(articles, 5); len(topics) > 0 {
		sb.WriteString(fmt.Sprintf("- **高频主题**: %s\n", strings.Join(topics, "、")))
	}
	sb.WriteString(fmt.Sprintf("- **整体质量**: %s\n\n", qualityLabel(averageScore(articles, qualityOf))))

	sb.WriteString("## 文章列表\n\n")
	for i, article := range articles {
		sb.WriteString(fmt.Sprintf("### %d. %s\n\n", i+1, article.Title))
		sb.WriteString(fmt.Sprintf("- **来源**: %s\n", article.Source))
		if !article.Published.IsZero() {
			sb.WriteString(fmt.Sprintf("- **发布时间**: %s\n", article.Published.Format("2006-01-02 15:04")))
		}
		sb.WriteString(fmt.Sprintf("- **链接**: %s\n", article.Link))
		sb.WriteString(fmt.Sprintf("- **相关性**: %.2f | **质量分**: %.2f\n\n", article.RelevanceScore, article.QualityScore))

		summary := article.Summary
		if summary == "" {
			summary = extractiveSummary(article.Body, r.opts.SummarySentences, r.opts.SummaryMaxLength)
		}
		if summary != "" {
			sb.WriteString(summary)
			sb.WriteString("\n\n")
		}
	}

	appendWarnings(&sb, st.warnings)
	return sb.String()
}

// appendWarnings 附加警告清单章节，无警告时省略
func appendWarnings(sb *strings.Builder, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	sb.WriteString("## 警告\n\n")
	for _, w := range warnings {
		sb.WriteString(fmt.Sprintf("- %s\n", w))
	}
}

// joinStages 输出计划的阶段序列
func joinStages(stages []model.Stage) string {
	names := make([]string, len(stages))
	for i, stage := range stages {
		names[i] = string(stage)
	}
	return strings.Join(names, " -> ")
}

func relevanceOf(a model.Article) float64 { return a.RelevanceScore }
func qualityOf(a model.Article) float64   { return a.QualityScore }

// averageScore 文章某项分值的算术平均
func averageScore(articles []model.Article, score func(model.Article) float64) float64 {
	if len(articles) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range articles {
		sum += score(a)
	}
	return sum / float64(len(articles))
}

// qualityLabel 把平均质量分映射为报告中的档位描述
func qualityLabel(avg float64) string {
	switch {
	case avg >= 0.7:
		return "高"
	case avg >= 0.4:
		return "中"
	default:
		return "基础"
	}
}

// commonTopics 从标题词频中取出现两次以上的前N个高频词，
// 短词（4字符及以下）噪声太大，直接跳过
func commonTopics(articles []model.Article, limit int) []string {
	counts := make(map[string]int)
	for _, article := range articles {
		seen := make(map[string]bool)
		words := strings.FieldsFunc(strings.ToLower(article.Title), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, word := range words {
			if len(word) <= 4 || seen[word] {
				continue
			}
			seen[word] = true
			counts[word]++
		}
	}

	var topics []string
	for word, n := range counts {
		if n >= 2 {
			topics = append(topics, word)
		}
	}
	sort.Slice(topics, func(i, j int) bool {
		if counts[topics[i]] != counts[topics[j]] {
			return counts[topics[i]] > counts[topics[j]]
		}
		return topics[i] < topics[j]
	})
	if len(topics) > limit {
		topics = topics[:limit]
	}
	return topics
}

// extractiveSummary 抽取式摘要回退：取正文前N个句子并按长度截断。
// 生成式摘要不可用时保证每篇文章仍有摘要
func extractiveSummary(text string, sentences, maxLen int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var (
		parts []string
		start int
	)
	runes := []rune(text)
	for i, r := range runes {
		if isSentenceEnd(r) {
			if part := strings.TrimSpace(string(runes[start : i+1])); part != "" {
				parts = append(parts, part)
			}
			start = i + 1
			if len(parts) >= sentences {
				break
			}
		}
	}
	if len(parts) < sentences && start < len(runes) {
		if part := strings.TrimSpace(string(runes[start:])); part != "" {
			parts = append(parts, part)
		}
	}

	summary := strings.Join(parts, " ")
	if maxLen > 0 {
		// 按rune截断，避免把多字节字符劈成半个
		if sr := []rune(summary); len(sr) > maxLen {
			summary = string(sr[:maxLen])
		}
	}
	return summary
}

// isSentenceEnd 判断句子结束符，兼顾中英文标点
func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}
