// Package gemini wraps the Gemini API for embedding and text generation.
//
// Embedding requests carry a task-type hint: RETRIEVAL_DOCUMENT while
// indexing, RETRIEVAL_QUERY while answering. Rate-limited embedding calls
// are retried a bounded number of times with a fixed delay; after the
// retry budget is spent the caller receives ErrEmbeddingUnavailable and
// decides whether the item is skippable (ingestion) or fatal (answering).
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// Embedding task types passed to the API.
const (
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// Per-call timeouts. A hung upstream call must not hold a request open
// indefinitely.
const (
	EmbedTimeout    = 30 * time.Second
	GenerateTimeout = 2 * time.Minute
)

// Retry policy defaults for rate-limited embedding calls.
const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 5 * time.Second
)

// ErrEmbeddingUnavailable is returned after the embedding retry budget is
// exhausted. It is the "no embedding produced" signal: ingestion skips the
// chunk, answering fails the request.
var ErrEmbeddingUnavailable = errors.New("no embedding produced after retries")

// Config holds the settings for a Client.
type Config struct {
	APIKey          string
	EmbeddingModel  string
	GenerationModel string

	// VectorDim is requested via OutputDimensionality so embeddings always
	// match the collection schema.
	VectorDim int32

	// MaxAttempts and RetryDelay override the retry policy. Zero values use
	// the defaults.
	MaxAttempts int
	RetryDelay  time.Duration
}

// Client is a thin wrapper over *genai.Client. It is safe for concurrent
// use; construct once at startup and share.
type Client struct {
	api             *genai.Client
	embeddingModel  string
	generationModel string
	dim             int32
	maxAttempts     int
	retryDelay      time.Duration
	logger          *slog.Logger
}

// NewClient creates a Gemini client. logger may be nil.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.EmbeddingModel == "" || cfg.GenerationModel == "" {
		return nil, errors.New("gemini: embedding and generation models are required")
	}
	if cfg.VectorDim <= 0 {
		return nil, fmt.Errorf("gemini: vector dimensionality must be positive, got %d", cfg.VectorDim)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	api, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Client{
		api:             api,
		embeddingModel:  cfg.EmbeddingModel,
		generationModel: cfg.GenerationModel,
		dim:             cfg.VectorDim,
		maxAttempts:     cfg.MaxAttempts,
		retryDelay:      cfg.RetryDelay,
		logger:          logger,
	}, nil
}

// EmbedDocument embeds text for indexing.
func (c *Client) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text, taskRetrievalDocument)
}

// EmbedQuery embeds a user question for retrieval.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text, taskRetrievalQuery)
}

func (c *Client) embed(ctx context.Context, text, taskType string) ([]float32, error) {
	embedCfg := &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &c.dim,
	}

	return embedWithRetry(ctx, c.maxAttempts, c.retryDelay, c.logger,
		func(ctx context.Context) ([]float32, error) {
			callCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
			defer cancel()

			resp, err := c.api.Models.EmbedContent(callCtx, c.embeddingModel, genai.Text(text), embedCfg)
			if err != nil {
				return nil, err
			}
			if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
				return nil, errors.New("empty embedding response")
			}
			return resp.Embeddings[0].Values, nil
		})
}

// Generate produces the model's answer for the assembled prompt.
// The returned text is passed to the caller verbatim.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, GenerateTimeout)
	defer cancel()

	resp, err := c.api.Models.GenerateContent(callCtx, c.generationModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("model returned no text")
	}
	return text, nil
}

// isRateLimited reports whether err is the API's resource-exhausted
// (HTTP 429) response, the only error class worth retrying.
func isRateLimited(err error) bool {
	var apiErr genai.APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests
}
