package ai

import (
	"context"
	"encoding/json"
	"errors"
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

func chatResponse(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":%q}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`, content)
}

func testClient(endpoint string, maxCalls int) *DeepseekClient {
	return &DeepseekClient{
		config: model.DeepseekConfig{
			APIKey:   "test-key",
			Model:    "deepseek-chat",
			MaxCalls: maxCalls,
			APIUrl:   endpoint,
		},
		client: &http.Client{Timeout: 5 * time.Second},
		retry:  middleware.RetryPolicy{Name: "test", MaxAttempts: 1, InitialInterval: time.Millisecond},
	}
}

func TestSummarizeSuccess(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req["model"] != "deepseek-chat" {
			t.Errorf("unexpected model: %v", req["model"])
		}
		fmt.Fprint(w, chatResponse("  a concise summary  "))
	}))
	t.Cleanup(srv.Close)

	summary, err := testClient(srv.URL, 0).Summarize(context.Background(), "long article body", 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "a concise summary" {
		t.Fatalf("unexpected summary: %q", summary)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("missing auth header: %q", gotAuth)
	}
}

func TestSummarizeTruncatesOverlongAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatResponse(strings.Repeat("x", 500)))
	}))
	t.Cleanup(srv.Close)

	summary, err := testClient(srv.URL, 0).Summarize(context.Background(), "body", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summary) != 100 {
		t.Fatalf("expected hard truncation to 100 chars, got %d", len(summary))
	}
}

func TestSummarizeTruncationKeepsRunesIntact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatResponse(strings.Repeat("摘要内容", 100)))
	}))
	t.Cleanup(srv.Close)

	summary, err := testClient(srv.URL, 0).Summarize(context.Background(), "body", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !utf8.ValidString(summary) {
		t.Fatalf("truncation produced invalid utf-8: %q", summary)
	}
	if got := len([]rune(summary)); got != 10 {
		t.Fatalf("expected 10 runes, got %d", got)
	}
}

func TestSummarizeWithoutKey(t *testing.T) {
	client := testClient("http://unused", 0)
	client.config.APIKey = ""

	_, err := client.Summarize(context.Background(), "body", 100)
	if !errors.Is(err, model.ErrSummarizationUnavailable) {
		t.Fatalf("expected ErrSummarizationUnavailable, got %v", err)
	}
}

func TestSummarizeEnforcesCallBudget(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, chatResponse("summary"))
	}))
	t.Cleanup(srv.Close)

	client := testClient(srv.URL, 2)
	for i := 0; i < 2; i++ {
		if _, err := client.Summarize(context.Background(), "body", 100); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}

	_, err := client.Summarize(context.Background(), "body", 100)
	if !errors.Is(err, model.ErrSummarizationUnavailable) {
		t.Fatalf("expected budget error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("budget must stop requests at the client, got %d calls", calls)
	}
}

func TestSummarizeAPIErrorWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	_, err := testClient(srv.URL, 0).Summarize(context.Background(), "body", 100)
	if !errors.Is(err, model.ErrSummarizationUnavailable) {
		t.Fatalf("expected ErrSummarizationUnavailable, got %v", err)
	}
}

func TestSummarizeEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	t.Cleanup(srv.Close)

	_, err := testClient(srv.URL, 0).Summarize(context.Background(), "body", 100)
	if err == nil {
		t.Fatalf("expected error for empty choices")
	}
}
