package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		Name:            "test",
		MaxAttempts:     maxAttempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryRecoversFromTransientError(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func() error {
		calls++
		return errors.New("timeout waiting for response")
	})
	if err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryPermanentErrorNotRetried(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("API返回错误(状态码: 404): not found")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("non-retryable error must not be retried, got %d calls", calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	policy := RetryPolicy{Name: "test", MaxAttempts: 10, InitialInterval: time.Hour}
	err := policy.Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("connection refused")
	})
	if err == nil {
		t.Fatalf("expected error after cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation took effect, got %d", calls)
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []error{
		errors.New("i/o timeout"),
		errors.New("connection refused"),
		errors.New("server returned 503"),
		errors.New("429 too many requests"),
		errors.New("something unknown happened"),
	}
	for _, err := range retryable {
		if !IsRetryable(err) {
			t.Fatalf("expected retryable: %v", err)
		}
	}

	notRetryable := []error{
		nil,
		errors.New("页面返回错误(状态码: 404)"),
		errors.New("request failed with status 401"),
	}
	for _, err := range notRetryable {
		if IsRetryable(err) {
			t.Fatalf("expected not retryable: %v", err)
		}
	}
}
