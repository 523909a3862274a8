package pagetl

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryConfig holds configuration for retry behavior.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts
	BaseDelay  time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Maximum delay between retries
}

// DefaultRetryConfig returns the default retry behavior: three retries
// starting at one second and capped at ten.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
	}
}

// Backoff returns the delay before retry number attempt (zero based).
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	delay := c.BaseDelay * time.Duration(1<<attempt)
	if c.MaxDelay > 0 && (delay > c.MaxDelay || delay <= 0) {
		delay = c.MaxDelay
	}
	return delay
}

// WithRetry calls fn until it succeeds, fails with an error that is not
// retryable, or the retries are used up. It gives up early, returning the
// last error, when the next delay would run past the context deadline.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !IsRetryable(err) || attempt >= cfg.MaxRetries {
			return zero, err
		}

		delay := cfg.Backoff(attempt)
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
			return zero, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// IsRetryable reports whether err is a ProviderError marked retryable.
// Context errors never are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}

	return false
}

// RetryableProvider wraps an AIProvider with retry logic. Retries happen
// inside one dispatch, so they share its timeout.
type RetryableProvider struct {
	provider AIProvider
	config   RetryConfig
	log      *slog.Logger
}

// NewRetryableProvider creates a new provider with retry logic.
func NewRetryableProvider(provider AIProvider, cfg RetryConfig) *RetryableProvider {
	return &RetryableProvider{
		provider: provider,
		config:   cfg,
		log:      slog.Default(),
	}
}

// WithLogger sets the logger that reports retried attempts.
func (p *RetryableProvider) WithLogger(log *slog.Logger) *RetryableProvider {
	if log != nil {
		p.log = log
	}
	return p
}

// Translate implements AIProvider with retry logic.
func (p *RetryableProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	attempt := 0
	return WithRetry(ctx, p.config, func() (string, error) {
		attempt++
		text, err := p.provider.Translate(ctx, req)
		if err != nil && IsRetryable(err) && attempt <= p.config.MaxRetries {
			p.log.Debug("Retrying translation call", "attempt", attempt, "err", err)
		}
		return text, err
	})
}
