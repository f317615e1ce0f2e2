package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/robobook/chatbot-backend/internal/log"
)

func rateLimitErr() error {
	return genai.APIError{Code: http.StatusTooManyRequests, Message: "quota exceeded"}
}

func TestEmbedWithRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	vec, err := embedWithRetry(context.Background(), 5, 0, log.NewNop(),
		func(context.Context) ([]float32, error) {
			calls++
			return []float32{1, 2, 3}, nil
		})

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)
	assert.Equal(t, 1, calls)
}

func TestEmbedWithRetryRecoversFromRateLimit(t *testing.T) {
	calls := 0
	vec, err := embedWithRetry(context.Background(), 5, 0, log.NewNop(),
		func(context.Context) ([]float32, error) {
			calls++
			if calls < 3 {
				return nil, rateLimitErr()
			}
			return []float32{1}, nil
		})

	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
	assert.Equal(t, 3, calls)
}

func TestEmbedWithRetryExhaustsBudget(t *testing.T) {
	calls := 0
	vec, err := embedWithRetry(context.Background(), 5, 0, log.NewNop(),
		func(context.Context) ([]float32, error) {
			calls++
			return nil, rateLimitErr()
		})

	assert.Nil(t, vec)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.Equal(t, 5, calls, "each attempt up to the budget makes exactly one call")
}

func TestEmbedWithRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("invalid argument")
	calls := 0
	_, err := embedWithRetry(context.Background(), 5, 0, log.NewNop(),
		func(context.Context) ([]float32, error) {
			calls++
			return nil, permanent
		})

	assert.ErrorIs(t, err, permanent)
	assert.NotErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.Equal(t, 1, calls)
}

func TestEmbedWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := embedWithRetry(ctx, 5, DefaultRetryDelay, log.NewNop(),
		func(context.Context) ([]float32, error) {
			calls++
			cancel()
			return nil, rateLimitErr()
		})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation must interrupt the retry delay")
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, isRateLimited(rateLimitErr()))
	assert.True(t, isRateLimited(errors.Join(errors.New("wrapped"), rateLimitErr())))
	assert.False(t, isRateLimited(genai.APIError{Code: http.StatusBadRequest}))
	assert.False(t, isRateLimited(errors.New("plain error")))
	assert.False(t, isRateLimited(nil))
}
