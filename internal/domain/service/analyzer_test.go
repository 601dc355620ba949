package service

import (
	"strings"
	"testing"

	"github.com/wolfitem/news-agent/internal/domain/model"
)

func sampleBody(sentences int) string {
	var sb strings.Builder
	for i := 0; i < sentences; i++ {
		sb.WriteString("The quick brown fox jumps over the lazy dog near the river bank today. ")
	}
	return sb.String()
}

func TestAnalyzeEmptyBodyScoresZero(t *testing.T) {
	analyzer := NewQualityAnalyzer(model.DefaultAnalyzerWeights())

	if score := analyzer.Analyze(model.Article{}); score != 0 {
		t.Fatalf("empty body must score 0, got %f", score)
	}
	if score := analyzer.Analyze(model.Article{Body: "   \n\t "}); score != 0 {
		t.Fatalf("whitespace body must score 0, got %f", score)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	analyzer := NewQualityAnalyzer(model.DefaultAnalyzerWeights())
	article := model.Article{Body: sampleBody(20)}

	first := analyzer.Analyze(article)
	for i := 0; i < 5; i++ {
		if got := analyzer.Analyze(article); got != first {
			t.Fatalf("analyze not deterministic: %f vs %f", got, first)
		}
	}
}

func TestAnalyzeStaysInUnitRange(t *testing.T) {
	analyzer := NewQualityAnalyzer(model.DefaultAnalyzerWeights())

	for _, body := range []string{
		sampleBody(1),
		sampleBody(30),
		sampleBody(500),
		"word",
		strings.Repeat("incomprehensibility ", 300),
	} {
		score := analyzer.Analyze(model.Article{Body: body})
		if score < 0 || score > 1 {
			t.Fatalf("score out of range for body %q...: %f", body[:10], score)
		}
	}
}

func TestAnalyzeFavorsWellFormedText(t *testing.T) {
	analyzer := NewQualityAnalyzer(model.DefaultAnalyzerWeights())

	good := analyzer.Analyze(model.Article{Body: sampleBody(20)})
	// 没有任何句子结构的词浆
	poor := analyzer.Analyze(model.Article{Body: strings.Repeat("blob ", 40)})
	if good <= poor {
		t.Fatalf("well formed text should outscore a word soup: %f <= %f", good, poor)
	}
}

func TestAnalyzeZeroWeightFallsBackToDefaults(t *testing.T) {
	analyzer := NewQualityAnalyzer(model.AnalyzerWeights{})

	if score := analyzer.Analyze(model.Article{Body: sampleBody(20)}); score <= 0 {
		t.Fatalf("zero weights must fall back to defaults, got %f", score)
	}
}

func TestLengthScoreBands(t *testing.T) {
	short := lengthScore(strings.Repeat("word ", 30))
	target := lengthScore(strings.Repeat("word ", 400))
	long := lengthScore(strings.Repeat("word ", 5000))

	if target != 1 {
		t.Fatalf("target range must score 1, got %f", target)
	}
	if short >= target || long >= target {
		t.Fatalf("too short (%f) and too long (%f) must be penalized", short, long)
	}
}

func TestCountSyllables(t *testing.T) {
	cases := map[string]int{
		"cat":      1,
		"table":    2,
		"syllable": 3,
		"idea":     2,
		"the":      1,
	}
	for word, want := range cases {
		if got := countSyllables(word); got != want {
			t.Fatalf("countSyllables(%q) = %d, want %d", word, got, want)
		}
	}
}

func TestCountSentencesHandlesCJKPunctuation(t *testing.T) {
	if got := countSentences("今天天气不错。明天可能下雨！后天呢？"); got != 3 {
		t.Fatalf("expected 3 sentences, got %d", got)
	}
	if got := countSentences("no terminal punctuation"); got != 1 {
		t.Fatalf("expected 1 trailing sentence, got %d", got)
	}
}
