package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// embedWithRetry runs call up to maxAttempts times, sleeping delay between
// attempts that failed with a rate-limit error. Any other error aborts
// immediately. When the attempt budget is spent on rate limits, the result
// is ErrEmbeddingUnavailable rather than the raw API error: callers treat
// it as a skip-this-item signal, not a crash.
func embedWithRetry(ctx context.Context, maxAttempts int, delay time.Duration, logger *slog.Logger, call func(context.Context) ([]float32, error)) ([]float32, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		vec, err := call(ctx)
		if err == nil {
			return vec, nil
		}
		if !isRateLimited(err) {
			return nil, fmt.Errorf("embedding request: %w", err)
		}

		if attempt < maxAttempts {
			logger.Warn("embedding rate limited, retrying",
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"delay", delay)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	logger.Error("embedding failed after retries", "attempts", maxAttempts)
	return nil, ErrEmbeddingUnavailable
}
