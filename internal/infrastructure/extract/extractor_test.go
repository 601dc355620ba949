package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/wolfitem/news-agent/internal/domain/model"
	"github.com/wolfitem/news-agent/internal/middleware"
)

func articleHTML(paragraphs int) string {
	var sb strings.Builder
	sb.WriteString(`<html><head><title>test page</title></head><body>`)
	sb.WriteString(`<nav>home about contact</nav><article>`)
	for i := 0; i < paragraphs; i++ {
		sb.WriteString(fmt.Sprintf(
			"<p>Paragraph %d carries enough running text to make the extraction heuristics comfortable with its length and structure.</p>", i))
	}
	sb.WriteString(`</article><footer>copyright</footer></body></html>`)
	return sb.String()
}

func testExtractor() *Extractor {
	return &Extractor{
		client:    &http.Client{},
		retry:     middleware.RetryPolicy{Name: "test", MaxAttempts: 1, InitialInterval: time.Millisecond},
		userAgent: "news-agent-test/1.0",
	}
}

func TestExtractSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML(8))
	}))
	t.Cleanup(srv.Close)

	entry := model.RawEntry{Title: "test", Link: srv.URL, Description: "fallback"}
	article := testExtractor().Extract(context.Background(), entry)

	if !article.Extracted {
		t.Fatalf("expected successful extraction")
	}
	if len(article.Body) < minBodyChars {
		t.Fatalf("body too short: %d chars", len(article.Body))
	}
	if strings.Contains(article.Body, "home about contact") {
		t.Fatalf("navigation boilerplate leaked into body")
	}
	if article.Title != "test" {
		t.Fatalf("entry metadata lost: %#v", article.RawEntry)
	}
}

func TestExtractHTTPErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	entry := model.RawEntry{Title: "test", Link: srv.URL, Description: "  feed summary  "}
	article := testExtractor().Extract(context.Background(), entry)

	if article.Extracted {
		t.Fatalf("expected failed extraction")
	}
	if article.Body != "feed summary" {
		t.Fatalf("expected trimmed description fallback, got %q", article.Body)
	}
}

func TestExtractMissingLink(t *testing.T) {
	article := testExtractor().Extract(context.Background(), model.RawEntry{Title: "no link"})
	if article.Extracted {
		t.Fatalf("expected failure without a link")
	}
}

func TestExtractTooShortBodyFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><article><p>tiny</p></article></body></html>`)
	}))
	t.Cleanup(srv.Close)

	entry := model.RawEntry{Link: srv.URL, Description: "desc"}
	article := testExtractor().Extract(context.Background(), entry)
	if article.Extracted {
		t.Fatalf("short page must count as failed extraction")
	}
}

func TestExtractHonorsContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		fmt.Fprint(w, articleHTML(8))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	article := testExtractor().Extract(ctx, model.RawEntry{Link: srv.URL, Description: "desc"})
	if article.Extracted {
		t.Fatalf("expected timeout to fail the extraction")
	}
	if article.Body != "desc" {
		t.Fatalf("expected description fallback, got %q", article.Body)
	}
}

func TestExtractTruncatesOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML(600))
	}))
	t.Cleanup(srv.Close)

	article := testExtractor().Extract(context.Background(), model.RawEntry{Link: srv.URL})
	if !article.Extracted {
		t.Fatalf("expected successful extraction")
	}
	if len(article.Body) > maxBodyChars {
		t.Fatalf("body exceeds cap: %d chars", len(article.Body))
	}
}

func TestTruncateCutsAtRuneBoundary(t *testing.T) {
	if got := truncate("short", 100); got != "short" {
		t.Fatalf("short input must pass through, got %q", got)
	}

	// 中文字符占3字节，8字节的切点落在字符中间，必须回退到边界
	s := strings.Repeat("抽取", 10)
	got := truncate(s, 8)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid utf-8: %q", got)
	}
	if len(got) > 8 {
		t.Fatalf("byte cap exceeded: %d bytes", len(got))
	}
	if got != "抽取" {
		t.Fatalf("expected cut at the last full rune, got %q", got)
	}
}

func TestLargestTextBlockFallsBackToParagraphs(t *testing.T) {
	html := `<html><body><div><p>first paragraph of plain markup without semantic containers</p>
<p>second paragraph keeps the fallback path honest</p></div></body></html>`

	body, err := largestTextBlock(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "first paragraph") || !strings.Contains(body, "second paragraph") {
		t.Fatalf("fallback paragraphs missing: %q", body)
	}
}
