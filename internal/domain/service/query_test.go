package service

import (
	"reflect"
	"testing"
)

func TestNewQueryTokenizes(t *testing.T) {
	q := NewQuery("Show me the latest AI news!")

	if q.Raw != "Show me the latest AI news!" {
		t.Fatalf("raw query changed: %q", q.Raw)
	}
	want := []string{"ai", "news"}
	if !reflect.DeepEqual(q.Keywords, want) {
		t.Fatalf("unexpected keywords: %#v, want %#v", q.Keywords, want)
	}
}

func TestTokenizeDedupesAndKeepsOrder(t *testing.T) {
	got := Tokenize("tech news about tech startups, news")

	want := []string{"tech", "news", "about", "startups"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tokens: %#v, want %#v", got, want)
	}
}

func TestTokenizeDropsShortAndStopWords(t *testing.T) {
	got := Tokenize("a I of to x")
	if len(got) != 0 {
		t.Fatalf("expected no tokens, got %#v", got)
	}

	if got := Tokenize(""); len(got) != 0 {
		t.Fatalf("expected no tokens for empty input, got %#v", got)
	}
}
