package pagetl

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  5 * time.Millisecond,
		MaxDelay:   20 * time.Millisecond,
	}
}

func TestWithRetry_Success(t *testing.T) {
	calls := 0
	result, err := WithRetry(context.Background(), fastRetry(3), func() (string, error) {
		calls++
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result != "ok" {
		t.Errorf("Expected 'ok', got %q", result)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestWithRetry_RetryableError(t *testing.T) {
	calls := 0
	result, err := WithRetry(context.Background(), fastRetry(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", &ProviderError{Message: "rate limited", Retryable: true}
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("Expected no error after retries, got: %v", err)
	}
	if result != "ok" {
		t.Errorf("Expected 'ok', got %q", result)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestWithRetry_NonRetryableError(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), fastRetry(3), func() (string, error) {
		calls++
		return "", &ProviderError{Message: "invalid API key"}
	})

	if err == nil {
		t.Fatal("Expected error for non-retryable error")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call for non-retryable error, got %d", calls)
	}
}

func TestWithRetry_MaxRetriesExceeded(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), fastRetry(2), func() (string, error) {
		calls++
		return "", &ProviderError{Message: "overloaded", Retryable: true}
	})

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("Expected last ProviderError, got: %v", err)
	}
	// Initial attempt + 2 retries
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestWithRetry_ContextCanceled(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := WithRetry(ctx, cfg, func() (string, error) {
		return "", &ProviderError{Message: "overloaded", Retryable: true}
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}

func TestWithRetry_StopsBeforeDeadline(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	_, err := WithRetry(ctx, cfg, func() (string, error) {
		calls++
		return "", &ProviderError{Message: "overloaded", Retryable: true}
	})

	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Errorf("Expected the provider error, got: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("Expected an immediate return, took %v", time.Since(start))
	}
}

func TestRetryConfig_Backoff(t *testing.T) {
	cfg := RetryConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for attempt, expected := range want {
		if got := cfg.Backoff(attempt); got != expected {
			t.Errorf("Backoff(%d) = %v, want %v", attempt, got, expected)
		}
	}

	if got := cfg.Backoff(100); got != 5*time.Second {
		t.Errorf("Backoff(100) = %v, want cap", got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"retryable provider error", &ProviderError{Retryable: true}, true},
		{"non-retryable provider error", &ProviderError{Retryable: false}, false},
		{"wrapped retryable", &DispatchError{Cause: &ProviderError{Retryable: true}}, true},
		{"generic error", errors.New("some error"), false},
		{"context canceled", context.Canceled, false},
		{"context deadline", context.DeadlineExceeded, false},
		{"provider error over deadline", &ProviderError{Retryable: true, Cause: context.DeadlineExceeded}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsRetryable(tt.err)
			if result != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	if cfg.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries 3, got %d", cfg.MaxRetries)
	}
	if cfg.BaseDelay != time.Second {
		t.Errorf("Expected BaseDelay 1s, got %v", cfg.BaseDelay)
	}
	if cfg.MaxDelay != 10*time.Second {
		t.Errorf("Expected MaxDelay 10s, got %v", cfg.MaxDelay)
	}
}

type failingProvider struct {
	failCount int
	callCount int
}

func (p *failingProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	p.callCount++
	if p.callCount <= p.failCount {
		return "", &ProviderError{Message: "temporary failure", Retryable: true}
	}
	return "id,text\nP_0_0,\"hola\"\n", nil
}

func TestRetryableProvider(t *testing.T) {
	inner := &failingProvider{failCount: 2}
	provider := NewRetryableProvider(inner, fastRetry(3))

	result, err := provider.Translate(context.Background(), TranslateRequest{
		Batch:      EncodeBatch([]Fragment{{ID: "P_0_0", Text: "hello"}}),
		TargetLang: "es_ES",
	})
	if err != nil {
		t.Fatalf("Expected success after retries, got: %v", err)
	}

	decoded := DecodeBatch(result)
	if len(decoded) != 1 || decoded[0].Text != "hola" {
		t.Errorf("Unexpected result: %q", result)
	}
	if inner.callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", inner.callCount)
	}
}
