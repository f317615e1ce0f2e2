// Package ingest walks a documentation tree and loads it into the vector
// collection: enumerate files, chunk, embed, accumulate, one batched upsert.
//
// The pipeline is partial-failure tolerant. An unreadable file or a chunk
// whose embedding cannot be produced is logged, recorded in the Report,
// and skipped; the run continues. Only backend failures (recreate, upsert)
// or context cancellation abort the run.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robobook/chatbot-backend/internal/chunk"
	"github.com/robobook/chatbot-backend/internal/index"
)

// DocumentEmbedder produces document embeddings.
type DocumentEmbedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// CollectionStore is the slice of the index store the pipeline needs.
type CollectionStore interface {
	Recreate(ctx context.Context) error
	Upsert(ctx context.Context, points []index.Point) error
}

// supportedExtensions are the documentation file types we ingest.
var supportedExtensions = map[string]bool{
	".md":  true,
	".mdx": true,
}

// Config holds pipeline settings.
type Config struct {
	DocsPath     string
	ChunkSize    int
	ChunkOverlap int
}

// Skip records one item the pipeline left out and why.
// ChunkIndex is -1 when the whole file was skipped.
type Skip struct {
	SourcePath string
	ChunkIndex int
	Reason     string
}

// Report summarizes one ingestion run.
type Report struct {
	FilesProcessed int
	FilesFailed    int
	ChunksEmbedded int
	ChunksSkipped  int
	Skipped        []Skip
	Duration       time.Duration
}

// Pipeline ingests a documentation tree into a collection.
type Pipeline struct {
	embedder DocumentEmbedder
	store    CollectionStore
	cfg      Config
	logger   *slog.Logger
}

// New creates a Pipeline. The chunking configuration is validated here so a
// non-terminating size/overlap pair fails before any network call.
func New(embedder DocumentEmbedder, store CollectionStore, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if embedder == nil || store == nil {
		return nil, fmt.Errorf("ingest: embedder and store are required")
	}
	if cfg.DocsPath == "" {
		return nil, fmt.Errorf("ingest: docs path is required")
	}
	if _, err := chunk.Split("x", cfg.ChunkSize, cfg.ChunkOverlap); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{embedder: embedder, store: store, cfg: cfg, logger: logger}, nil
}

// Run recreates the collection and ingests the docs tree. Point ids are a
// simple incrementing counter across the whole run, starting at zero;
// chunks that fail to embed never consume an id.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	if err := p.store.Recreate(ctx); err != nil {
		return nil, fmt.Errorf("recreating collection: %w", err)
	}

	report := &Report{}
	var points []index.Point
	var nextID int64

	walkErr := filepath.WalkDir(p.cfg.DocsPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			p.logger.Warn("skipping unreadable path", "path", path, "error", err)
			report.FilesFailed++
			report.Skipped = append(report.Skipped, Skip{SourcePath: path, ChunkIndex: -1, Reason: err.Error()})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, relErr := filepath.Rel(p.cfg.DocsPath, path)
		if relErr != nil {
			rel = path
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			p.logger.Warn("skipping unreadable file", "file", rel, "error", readErr)
			report.FilesFailed++
			report.Skipped = append(report.Skipped, Skip{SourcePath: rel, ChunkIndex: -1, Reason: readErr.Error()})
			return nil
		}

		p.logger.Info("processing file", "file", rel, "size", len(content))
		added, err := p.ingestFile(ctx, rel, string(content), &points, &nextID, report)
		if err != nil {
			return err
		}
		report.FilesProcessed++
		report.ChunksEmbedded += added
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking docs tree: %w", walkErr)
	}

	if len(points) == 0 {
		p.logger.Info("no content chunks produced, skipping upsert")
		report.Duration = time.Since(start)
		return report, nil
	}

	p.logger.Info("uploading points", "count", len(points))
	if err := p.store.Upsert(ctx, points); err != nil {
		return nil, fmt.Errorf("upserting points: %w", err)
	}

	report.Duration = time.Since(start)
	return report, nil
}

// ingestFile chunks and embeds one file, appending points for every chunk
// that produced an embedding. Returns the number of points added.
func (p *Pipeline) ingestFile(ctx context.Context, rel, content string, points *[]index.Point, nextID *int64, report *Report) (int, error) {
	chunks, err := chunk.Split(content, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if err != nil {
		// Unreachable after New's validation, but never worth panicking over.
		return 0, fmt.Errorf("chunking %s: %w", rel, err)
	}

	added := 0
	for i, text := range chunks {
		if chunk.IsBlank(text) {
			continue
		}

		vec, embErr := p.embedder.EmbedDocument(ctx, text)
		if embErr != nil {
			if ctx.Err() != nil {
				return added, ctx.Err()
			}
			p.logger.Warn("skipping chunk, embedding failed", "file", rel, "chunk", i, "error", embErr)
			report.ChunksSkipped++
			report.Skipped = append(report.Skipped, Skip{SourcePath: rel, ChunkIndex: i, Reason: embErr.Error()})
			continue
		}

		*points = append(*points, index.Point{
			ID:     *nextID,
			Vector: vec,
			Payload: index.Payload{
				SourcePath: rel,
				ChunkIndex: i,
				Text:       text,
			},
		})
		*nextID++
		added++
	}
	return added, nil
}
