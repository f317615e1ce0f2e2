// Package index manages the vector collection backed by PostgreSQL + pgvector.
//
// A collection is a table of points: a monotonically assigned id, the
// embedding vector, and the payload (source path, chunk index, chunk text).
// The chunk text is stored alongside the vector so retrieval never has to
// re-read the source files.
//
// The collection is created idempotently at service startup and recreated
// destructively by ingestion, both from the same configured dimensionality.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// SearchTimeout bounds vector search queries so a slow scan cannot hold a
// chat request open.
const SearchTimeout = 10 * time.Second

// Payload is the metadata stored with each indexed point and returned on
// retrieval.
type Payload struct {
	SourcePath string `json:"source_path"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

// Point is one indexed chunk: id, embedding, payload.
type Point struct {
	ID      int64
	Vector  []float32
	Payload Payload
}

// Result is a search hit with its cosine similarity to the query vector.
type Result struct {
	Payload    Payload
	Similarity float64
}

// collection names become SQL identifiers, so they are restricted to a safe
// subset up front.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Store provides access to one named collection. Safe for concurrent use;
// the pool is shared process-wide.
type Store struct {
	pool   *pgxpool.Pool
	table  string
	dim    int32
	logger *slog.Logger
}

// New creates a Store for the named collection. The collection is not
// touched until Ensure or Recreate is called.
func New(pool *pgxpool.Pool, collection string, dim int32, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, errors.New("index: pool is required")
	}
	if !identPattern.MatchString(collection) {
		return nil, fmt.Errorf("index: invalid collection name %q", collection)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("index: vector dimensionality must be positive, got %d", dim)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, table: collection, dim: dim, logger: logger}, nil
}

// Ensure creates the collection table and its cosine index if they do not
// exist. Idempotent; used at service startup.
func (s *Store) Ensure(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id bigint PRIMARY KEY,
		embedding vector(%d) NOT NULL,
		source_path text NOT NULL,
		chunk_index integer NOT NULL,
		content text NOT NULL
	)`, s.table, s.dim)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("creating collection %s: %w", s.table, err)
	}

	idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`,
		s.table, s.table)
	if _, err := s.pool.Exec(ctx, idx); err != nil {
		return fmt.Errorf("creating vector index on %s: %w", s.table, err)
	}

	s.logger.Debug("collection ensured", "collection", s.table, "dim", s.dim)
	return nil
}

// Recreate drops the collection and builds it again, discarding every
// stored point. Used by ingestion, which repopulates ids from zero; this
// avoids stale points when the corpus shrinks between runs.
func (s *Store) Recreate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.table)); err != nil {
		return fmt.Errorf("dropping collection %s: %w", s.table, err)
	}
	s.logger.Info("collection recreated", "collection", s.table, "dim", s.dim)
	return s.Ensure(ctx)
}

// Upsert inserts or replaces points by id in a single batch round trip.
// Upserting an empty slice is a no-op.
func (s *Store) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	sql := fmt.Sprintf(`INSERT INTO %s (id, embedding, source_path, chunk_index, content)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			source_path = EXCLUDED.source_path,
			chunk_index = EXCLUDED.chunk_index,
			content = EXCLUDED.content`, s.table)

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(sql, p.ID, pgvector.NewVector(p.Vector), p.Payload.SourcePath, p.Payload.ChunkIndex, p.Payload.Text)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() {
		if err := results.Close(); err != nil {
			s.logger.Warn("closing upsert batch", "error", err)
		}
	}()

	for i := range points {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting point %d: %w", points[i].ID, err)
		}
	}

	s.logger.Info("points upserted", "collection", s.table, "count", len(points))
	return nil
}

// Search returns up to topK nearest points by cosine distance, with their
// payloads and similarity scores.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("index: topK must be positive, got %d", topK)
	}

	queryCtx, cancel := context.WithTimeout(ctx, SearchTimeout)
	defer cancel()

	sql := fmt.Sprintf(`SELECT source_path, chunk_index, content, 1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, s.table)

	rows, err := s.pool.Query(queryCtx, sql, pgvector.NewVector(vector), topK)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search timeout: %w", err)
		}
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Payload.SourcePath, &r.Payload.ChunkIndex, &r.Payload.Text, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search results: %w", err)
	}

	return results, nil
}

// Count returns the number of stored points.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	sql := fmt.Sprintf(`SELECT count(*) FROM %s`, s.table)
	if err := s.pool.QueryRow(ctx, sql).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return count, nil
}
