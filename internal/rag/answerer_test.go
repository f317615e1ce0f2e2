package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robobook/chatbot-backend/internal/index"
	"github.com/robobook/chatbot-backend/internal/log"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

type fakeSearcher struct {
	results []index.Result
	err     error
	gotTopK int
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, topK int) ([]index.Result, error) {
	f.gotTopK = topK
	return f.results, f.err
}

type fakeGenerator struct {
	answer    string
	err       error
	gotPrompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.gotPrompt = prompt
	return f.answer, f.err
}

func results(texts ...string) []index.Result {
	out := make([]index.Result, len(texts))
	for i, txt := range texts {
		out[i] = index.Result{Payload: index.Payload{Text: txt, ChunkIndex: i}}
	}
	return out
}

func TestAnswerHappyPath(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1}}
	searcher := &fakeSearcher{results: results("A", "B")}
	generator := &fakeGenerator{answer: "the answer"}

	a := NewAnswerer(embedder, searcher, generator, 0, log.NewNop())
	answer, err := a.Answer(context.Background(), "what is it?", "")

	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)
	assert.Equal(t, DefaultTopK, searcher.gotTopK)
	assert.Contains(t, generator.gotPrompt, "what is it?")
	assert.Contains(t, generator.gotPrompt, "A")
	assert.Contains(t, generator.gotPrompt, "B")
}

func TestAnswerNotReady(t *testing.T) {
	var a *Answerer
	_, err := a.Answer(context.Background(), "q", "")
	assert.ErrorIs(t, err, ErrNotReady)

	a = NewAnswerer(nil, nil, nil, 5, log.NewNop())
	_, err = a.Answer(context.Background(), "q", "")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestAnswerEmbeddingFailureIsFatal(t *testing.T) {
	embedErr := errors.New("embedding unavailable")
	a := NewAnswerer(&fakeEmbedder{err: embedErr}, &fakeSearcher{}, &fakeGenerator{}, 5, log.NewNop())

	_, err := a.Answer(context.Background(), "q", "")
	assert.ErrorIs(t, err, embedErr)
}

func TestAnswerSearchFailureIsFatal(t *testing.T) {
	searchErr := errors.New("search down")
	a := NewAnswerer(&fakeEmbedder{vector: []float32{1}}, &fakeSearcher{err: searchErr}, &fakeGenerator{}, 5, log.NewNop())

	_, err := a.Answer(context.Background(), "q", "")
	assert.ErrorIs(t, err, searchErr)
}

func TestAnswerGenerationFailureCarriesDetail(t *testing.T) {
	genErr := errors.New("model exploded")
	a := NewAnswerer(&fakeEmbedder{vector: []float32{1}}, &fakeSearcher{results: results("A")}, &fakeGenerator{err: genErr}, 5, log.NewNop())

	_, err := a.Answer(context.Background(), "q", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, genErr)
	assert.Contains(t, err.Error(), "LLM generation failed")
}

func TestBuildPromptOrdering(t *testing.T) {
	prompt := buildPrompt("the question", "chunk-X", []string{"chunk-A", "chunk-B"})

	posSelected := strings.Index(prompt, "chunk-X")
	posA := strings.Index(prompt, "chunk-A")
	posB := strings.Index(prompt, "chunk-B")
	require.GreaterOrEqual(t, posSelected, 0)
	require.GreaterOrEqual(t, posA, 0)
	require.GreaterOrEqual(t, posB, 0)

	// Selected text comes before every retrieved chunk.
	assert.Less(t, posSelected, posA)
	assert.Less(t, posA, posB)

	assert.Contains(t, prompt, "User selected text for context:")
	assert.Contains(t, prompt, "chunk-A"+chunkSeparator+"chunk-B")
	assert.Contains(t, prompt, "Question: the question")
}

func TestBuildPromptWithoutSelectedText(t *testing.T) {
	prompt := buildPrompt("q", "", []string{"chunk-A", "chunk-B"})

	assert.NotContains(t, prompt, "User selected text")
	assert.Contains(t, prompt, "Relevant document chunks:\nchunk-A"+chunkSeparator+"chunk-B")
}
