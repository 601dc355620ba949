package service

import (
	"strings"
	"testing"

	"github.com/wolfitem/news-agent/internal/domain/model"
)

func TestExtractiveSummaryTakesLeadingSentences(t *testing.T) {
	text := "First sentence here. Second one follows! Third asks a question? Fourth is never used."

	summary := extractiveSummary(text, 3, 500)
	if strings.Contains(summary, "Fourth") {
		t.Fatalf("summary must stop after 3 sentences: %q", summary)
	}
	for _, want := range []string{"First", "Second", "Third"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q: %q", want, summary)
		}
	}
}

func TestExtractiveSummaryRespectsMaxLength(t *testing.T) {
	text := strings.Repeat("A fairly long sentence keeps marching on without any end in sight. ", 20)

	summary := extractiveSummary(text, 5, 80)
	if len([]rune(summary)) > 80 {
		t.Fatalf("summary too long: %d runes", len([]rune(summary)))
	}
}

func TestExtractiveSummaryHandlesUnpunctuatedText(t *testing.T) {
	summary := extractiveSummary("no punctuation at all just words", 2, 100)
	if summary == "" {
		t.Fatalf("unpunctuated text must still produce a summary")
	}

	if got := extractiveSummary("   ", 2, 100); got != "" {
		t.Fatalf("blank text must produce empty summary, got %q", got)
	}
}

func TestExtractiveSummaryHandlesCJKPunctuation(t *testing.T) {
	summary := extractiveSummary("第一句话。第二句话。第三句话。", 2, 100)
	if !strings.Contains(summary, "第一句话") || !strings.Contains(summary, "第二句话") {
		t.Fatalf("unexpected summary: %q", summary)
	}
	if strings.Contains(summary, "第三句话") {
		t.Fatalf("summary must stop after 2 sentences: %q", summary)
	}
}

func TestCommonTopics(t *testing.T) {
	articles := []model.Article{
		{RawEntry: model.RawEntry{Title: "Quantum computing hits milestone"}},
		{RawEntry: model.RawEntry{Title: "Quantum networks expand in europe"}},
		{RawEntry: model.RawEntry{Title: "Football season opens"}},
	}

	topics := commonTopics(articles, 5)
	if len(topics) != 1 || topics[0] != "quantum" {
		t.Fatalf("expected [quantum], got %#v", topics)
	}
}

func TestCommonTopicsIgnoresShortWords(t *testing.T) {
	articles := []model.Article{
		{RawEntry: model.RawEntry{Title: "news from the wire"}},
		{RawEntry: model.RawEntry{Title: "news keeps coming"}},
	}

	// "news"只有4个字符，属于被过滤的短词
	if topics := commonTopics(articles, 5); len(topics) != 0 {
		t.Fatalf("short words must be ignored, got %#v", topics)
	}
}

func TestQualityLabel(t *testing.T) {
	cases := map[float64]string{
		0.9:  "高",
		0.5:  "中",
		0.1:  "基础",
		0.7:  "高",
		0.39: "基础",
	}
	for avg, want := range cases {
		if got := qualityLabel(avg); got != want {
			t.Fatalf("qualityLabel(%f) = %q, want %q", avg, got, want)
		}
	}
}
