// Package rag implements the retrieval-augmented answering pipeline:
// embed the question, search the vector collection, assemble a
// context-constrained prompt, call the model.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robobook/chatbot-backend/internal/index"
)

// ErrNotReady indicates the answering backends were not initialized.
// The API layer maps it to 503 before any network call is attempted.
var ErrNotReady = errors.New("answering backends not initialized")

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

// QueryEmbedder embeds a question with the retrieval-query task type.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher finds the nearest stored chunks for a query vector.
type Searcher interface {
	Search(ctx context.Context, vector []float32, topK int) ([]index.Result, error)
}

// Generator produces the model's answer for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Answerer runs the answering pipeline. Safe for concurrent use.
type Answerer struct {
	embedder  QueryEmbedder
	searcher  Searcher
	generator Generator
	topK      int
	logger    *slog.Logger
}

// NewAnswerer wires the pipeline. topK <= 0 selects DefaultTopK;
// logger may be nil.
func NewAnswerer(embedder QueryEmbedder, searcher Searcher, generator Generator, topK int, logger *slog.Logger) *Answerer {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{
		embedder:  embedder,
		searcher:  searcher,
		generator: generator,
		topK:      topK,
		logger:    logger,
	}
}

// Answer returns the model's answer to question, conditioned on the
// retrieved chunks and, when non-empty, the caller-selected text.
// Any backend failure is fatal to the request; retries already happened
// inside the embedder.
func (a *Answerer) Answer(ctx context.Context, question, selectedText string) (string, error) {
	if a == nil || a.embedder == nil || a.searcher == nil || a.generator == nil {
		return "", ErrNotReady
	}

	vector, err := a.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return "", fmt.Errorf("generating query embedding: %w", err)
	}

	results, err := a.searcher.Search(ctx, vector, a.topK)
	if err != nil {
		return "", fmt.Errorf("vector search failed: %w", err)
	}

	chunks := make([]string, 0, len(results))
	for _, r := range results {
		if r.Payload.Text != "" {
			chunks = append(chunks, r.Payload.Text)
		}
	}
	a.logger.Debug("retrieved context", "chunks", len(chunks), "top_k", a.topK)

	answer, err := a.generator.Generate(ctx, buildPrompt(question, selectedText, chunks))
	if err != nil {
		return "", fmt.Errorf("LLM generation failed: %w", err)
	}
	return answer, nil
}
