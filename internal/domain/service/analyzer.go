package service

import (
	"strings"
	"unicode"

	"github.com/wolfitem/news-agent/internal/domain/model"
)

// QualityAnalyzer 定义内容质量分析接口
type QualityAnalyzer interface {
	// Analyze 计算文章的质量分，范围[0,1]。
	// 纯函数：同一正文永远得到同一分数；空正文得0，永不失败
	Analyze(article model.Article) float64
}

// 篇幅评分的目标区间（词数），过短和过长都会被扣分
const (
	lengthTargetMin = 150
	lengthTargetMax = 1200
)

// qualityAnalyzer 实现QualityAnalyzer接口
type qualityAnalyzer struct {
	weights model.AnalyzerWeights
}

// NewQualityAnalyzer 创建质量分析器，权重来自配置而非调用点硬编码
func NewQualityAnalyzer(weights model.AnalyzerWeights) QualityAnalyzer {
	if weights == (model.AnalyzerWeights{}) {
		weights = model.DefaultAnalyzerWeights()
	}
	return &qualityAnalyzer{weights: weights}
}

// Analyze 计算文章的质量分
func (a *qualityAnalyzer) Analyze(article model.Article) float64 {
	text := strings.TrimSpace(article.Body)
	if text == "" {
		return 0
	}

	readability := readabilityScore(text)
	length := lengthScore(text)
	structure := structureScore(text)

	total := a.weights.Readability + a.weights.Length + a.weights.Structure
	if total <= 0 {
		return 0
	}

	score := (a.weights.Readability*readability +
		a.weights.Length*length +
		a.weights.Structure*structure) / total
	return clamp01(score)
}

// readabilityScore 计算Flesch易读度并归一化到[0,1]
func readabilityScore(text string) float64 {
	words := strings.Fields(text)
	sentences := countSentences(text)
	if len(words) == 0 || sentences == 0 {
		return 0
	}

	syllables := 0
	for _, word := range words {
		syllables += countSyllables(word)
	}

	// Flesch Reading Ease: 206.835 - 1.015*(词/句) - 84.6*(音节/词)
	flesch := 206.835 -
		1.015*float64(len(words))/float64(sentences) -
		84.6*float64(syllables)/float64(len(words))
	return clamp01(flesch / 100)
}

// lengthScore 计算篇幅分：目标区间内得满分，过短线性扣分，过长渐进扣分
func lengthScore(text string) float64 {
	words := len(strings.Fields(text))
	switch {
	case words == 0:
		return 0
	case words < lengthTargetMin:
		return float64(words) / float64(lengthTargetMin)
	case words <= lengthTargetMax:
		return 1
	default:
		return clamp01(float64(lengthTargetMax) / float64(words))
	}
}

// structureScore 基于句子数量和平均句长的结构启发式评分
func structureScore(text string) float64 {
	sentences := countSentences(text)
	words := len(strings.Fields(text))
	if sentences == 0 || words == 0 {
		return 0
	}

	// 句子数量分：5句及以上视为结构完整
	countPart := clamp01(float64(sentences) / 5)

	// 平均句长分：8~30词为合理区间
	avg := float64(words) / float64(sentences)
	var avgPart float64
	switch {
	case avg >= 8 && avg <= 30:
		avgPart = 1
	case avg < 8:
		avgPart = avg / 8
	default:
		avgPart = clamp01(30 / avg)
	}

	return 0.5*countPart + 0.5*avgPart
}

// countSentences 统计句子数量，按句末标点切分
func countSentences(text string) int {
	count := 0
	inSentence := false
	for _, r := range text {
		switch r {
		case '.', '!', '?', '。', '！', '？':
			if inSentence {
				count++
				inSentence = false
			}
		default:
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				inSentence = true
			}
		}
	}
	if inSentence {
		count++
	}
	return count
}

// countSyllables 用元音组近似统计单词的音节数，至少为1
func countSyllables(word string) int {
	word = strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r)
	}))
	if word == "" {
		return 1
	}

	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}

	// 词尾不发音的e不计入音节
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

// clamp01 将数值裁剪到[0,1]区间
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
