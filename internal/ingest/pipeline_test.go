package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robobook/chatbot-backend/internal/gemini"
	"github.com/robobook/chatbot-backend/internal/index"
	"github.com/robobook/chatbot-backend/internal/log"
)

// fakeEmbedder embeds every chunk as a constant vector, optionally failing
// for chunks containing a marker string.
type fakeEmbedder struct {
	calls    int
	failWhen func(text string) error
}

func (f *fakeEmbedder) EmbedDocument(_ context.Context, text string) ([]float32, error) {
	f.calls++
	if f.failWhen != nil {
		if err := f.failWhen(text); err != nil {
			return nil, err
		}
	}
	return []float32{1, 0, 0}, nil
}

// fakeStore records Recreate/Upsert calls.
type fakeStore struct {
	recreated int
	upserts   [][]index.Point
}

func (f *fakeStore) Recreate(context.Context) error { return nil }

func (f *fakeStore) Upsert(_ context.Context, points []index.Point) error {
	f.upserts = append(f.upserts, points)
	return nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newPipeline(t *testing.T, embedder DocumentEmbedder, store CollectionStore, docsPath string) *Pipeline {
	t.Helper()
	p, err := New(embedder, store, Config{DocsPath: docsPath, ChunkSize: 10, ChunkOverlap: 3}, log.NewNop())
	require.NoError(t, err)
	return p
}

func TestNewRejectsBadChunking(t *testing.T) {
	_, err := New(&fakeEmbedder{}, &fakeStore{}, Config{DocsPath: "x", ChunkSize: 5, ChunkOverlap: 5}, log.NewNop())
	assert.Error(t, err)
}

func TestRunIndexesMarkdownTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "aaaaaaaaaaaaaaa")        // 15 bytes -> 2 chunks
	writeFile(t, dir, "sub/b.mdx", "bbbbb")             // 1 chunk
	writeFile(t, dir, "ignored.txt", "not a docs file") // wrong extension

	store := &fakeStore{}
	p := newPipeline(t, &fakeEmbedder{}, store, dir)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.FilesProcessed)
	assert.Equal(t, 0, report.FilesFailed)
	assert.Equal(t, 3, report.ChunksEmbedded)
	assert.Empty(t, report.Skipped)

	require.Len(t, store.upserts, 1, "all points go up in one batch")
	points := store.upserts[0]
	require.Len(t, points, 3)

	// Ids are a single incrementing counter across the run, starting at 0.
	for i, p := range points {
		assert.Equal(t, int64(i), p.ID)
	}
	assert.Equal(t, "a.md", points[0].Payload.SourcePath)
	assert.Equal(t, 0, points[0].Payload.ChunkIndex)
	assert.Equal(t, 1, points[1].Payload.ChunkIndex)
	assert.Equal(t, filepath.Join("sub", "b.mdx"), points[2].Payload.SourcePath)
}

func TestRunWhitespaceOnlyCorpusSkipsUpsert(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "blank.md", "   \n\t\n   ")

	store := &fakeStore{}
	embedder := &fakeEmbedder{}
	p := newPipeline(t, embedder, store, dir)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.FilesProcessed)
	assert.Zero(t, report.ChunksEmbedded)
	assert.Zero(t, embedder.calls, "blank chunks are skipped before embedding")
	assert.Empty(t, store.upserts, "no upsert call for an empty corpus")
}

func TestRunContinuesPastUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.md", "readable contents here")
	// A dangling symlink fails on read regardless of the test user's
	// privileges.
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "bad.md")))

	store := &fakeStore{}
	p := newPipeline(t, &fakeEmbedder{}, store, dir)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.FilesProcessed)
	assert.Equal(t, 1, report.FilesFailed)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "bad.md", report.Skipped[0].SourcePath)
	assert.Equal(t, -1, report.Skipped[0].ChunkIndex)

	require.Len(t, store.upserts, 1, "readable files are still indexed")
}

func TestRunSkipsChunksWithoutEmbedding(t *testing.T) {
	dir := t.TempDir()
	// Chunk size 10, overlap 3: "POISONxxxx..." puts the marker in the
	// first chunk only.
	writeFile(t, dir, "doc.md", "POISONxxxxyyyyyyyyyy")

	embedder := &fakeEmbedder{failWhen: func(text string) error {
		if len(text) > 0 && text[0] == 'P' {
			return fmt.Errorf("chunk rejected: %w", gemini.ErrEmbeddingUnavailable)
		}
		return nil
	}}
	store := &fakeStore{}
	p := newPipeline(t, embedder, store, dir)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.ChunksSkipped)
	require.NotEmpty(t, report.Skipped)
	assert.Equal(t, "doc.md", report.Skipped[0].SourcePath)
	assert.Equal(t, 0, report.Skipped[0].ChunkIndex)

	require.Len(t, store.upserts, 1)
	points := store.upserts[0]
	require.NotEmpty(t, points)
	// The failed chunk never consumed an id.
	assert.Equal(t, int64(0), points[0].ID)
	assert.Equal(t, 1, points[0].Payload.ChunkIndex)
}

func TestRunAbortsOnCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.md", "contents")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPipeline(t, &fakeEmbedder{}, &fakeStore{}, dir)
	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
